package entity

import (
	"time"
)

// UserRecord is the aggregate root for the account domain. Username and
// Email are each unique across the store; PasswordHash holds a bcrypt digest
// with its per-record salt and is never logged or serialized back to clients.
type UserRecord struct {
	Username     string    `json:"-"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}
