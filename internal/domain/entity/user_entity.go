package entity

import (
	"time"
)

// User is the aggregate root for user domain
// ID and Email never change after creation; Bio is nil when not set.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Bio       *string   `json:"bio"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
