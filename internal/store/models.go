package store

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// TimestampLayout is the HH:MM:SS form shown next to each message.
const TimestampLayout = "15:04:05"

type Session struct {
	ID            string    `json:"id"`
	Authenticated bool      `json:"authenticated"`
	CreatedAt     time.Time `json:"created_at"`
	LastSeenAt    time.Time `json:"last_seen_at"`
}

type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"-"`
}

func (m Message) Timestamp() string {
	return m.CreatedAt.Local().Format(TimestampLayout)
}

type Stats struct {
	Total     int `json:"total"`
	User      int `json:"user"`
	Assistant int `json:"assistant"`
}

// ComputeStats counts messages by role.
func ComputeStats(messages []Message) Stats {
	var s Stats
	for _, m := range messages {
		s.Total++
		switch m.Role {
		case RoleUser:
			s.User++
		case RoleAssistant:
			s.Assistant++
		}
	}
	return s
}
