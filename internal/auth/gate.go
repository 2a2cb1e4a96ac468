package auth

import "crypto/subtle"

// Credential is the single username/password-hash pair allowed to log in.
type Credential struct {
	Username     string
	PasswordHash string
}

type Gate struct {
	credential Credential
}

func NewGate(c Credential) *Gate {
	return &Gate{credential: c}
}

// CheckCredentials returns true only when the username matches exactly and
// the password verifies against the configured hash. The hash is verified
// even when the username is wrong so both failures take the same time.
func (g *Gate) CheckCredentials(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(g.credential.Username)) == 1
	passOK := CheckPasswordHash(password, g.credential.PasswordHash)
	return userOK && passOK
}
