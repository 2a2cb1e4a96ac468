package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const DefaultTokenTTL = 24 * time.Hour

// SessionTokens signs and validates the cookie value that binds a browser
// to a server-side session. The token subject is the session ID.
type SessionTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// SessionToken is a validated cookie token.
type SessionToken struct {
	SessionID string
	ExpiresAt time.Time
}

// NewSessionTokens uses secret as the HS256 key. An empty secret gets a
// random per-process key, which invalidates every cookie on restart.
// Tokens expire ttl after issue; ttl <= 0 means DefaultTokenTTL.
func NewSessionTokens(secret string, ttl time.Duration) (*SessionTokens, error) {
	if secret == "" {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			return nil, fmt.Errorf("generate session secret: %w", err)
		}
		secret = hex.EncodeToString(b)
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &SessionTokens{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

func (t *SessionTokens) Generate(sessionID string) (string, error) {
	now := t.now()
	claims := jwt.RegisteredClaims{
		Subject:   sessionID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

func (t *SessionTokens) Validate(tokenString string) (*SessionToken, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithExpirationRequired(), jwt.WithTimeFunc(t.now))
	if err != nil {
		return nil, err
	}

	if !token.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("invalid token")
	}
	return &SessionToken{SessionID: claims.Subject, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// NeedsRefresh reports whether tok is past half its lifetime, so an active
// session keeps a valid cookie while an idle one lets it lapse.
func (t *SessionTokens) NeedsRefresh(tok *SessionToken) bool {
	if tok == nil {
		return true
	}
	return tok.ExpiresAt.Sub(t.now()) < t.ttl/2
}
