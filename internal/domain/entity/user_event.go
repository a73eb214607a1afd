package entity

import "time"

const (
	UserCreated = "user.created"
	UserUpdated = "user.updated"
	UserDeleted = "user.deleted"
)

// UserEvent describes a committed change to a user. User is nil for deletions.
type UserEvent struct {
	Type       string    `json:"type"`
	UserID     string    `json:"userId"`
	User       *User     `json:"user,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}
