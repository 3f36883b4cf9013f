package models

import "time"

// Role identifies who authored a message row.
type Role string

const (
	// RoleUser marks text typed by the person using the widget. It is always rendered escaped.
	RoleUser Role = "user"
	// RoleAI marks text produced by the backend, greetings and error reports. It is rendered as
	// sanitized markdown.
	RoleAI Role = "ai"
)

// Message is a single conversation entry. Messages are created when the user sends text or a reply
// arrives, rendered immediately and never changed afterwards.
type Message struct {
	ID        string
	Role      Role
	Text      string
	Meta      string
	Timestamp time.Time
}
