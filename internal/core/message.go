package core

import "time"

// Message is the domain model for a session chat message.
type Message struct {
	ID         int64
	SessionID  string
	SenderID   string
	SenderName string
	Body       string
	CreatedAt  time.Time
}
