package repository

import "github.com/shoplytics/shoplytics/internal/domain/entity"

// UserRepository defines the operations the credential service needs from a
// user store. Implementations return apperrors values: duplicate
// username/email on Create is a field-tagged validation error, GetByEmail on
// an absent address is a user-not-found error, and a corrupt backing store
// surfaces as a database error.
type UserRepository interface {
	Create(u *entity.UserRecord) error
	GetByUsername(username string) (*entity.UserRecord, error)
	GetByEmail(email string) (*entity.UserRecord, error)
	ExistsUsername(username string) (bool, error)
	ExistsEmail(email string) (bool, error)
	UpdatePassword(username, newHash string) error
}
