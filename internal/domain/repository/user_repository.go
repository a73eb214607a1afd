package repository

import (
	"context"
	"errors"
	"time"

	"github.com/oksasatya/go-users-crud/internal/domain/entity"
)

var (
	// ErrNotFound is returned when no user matches the lookup key.
	ErrNotFound = errors.New("not found")
	// ErrDuplicateEmail is returned when the store rejects a second user with the same email.
	ErrDuplicateEmail = errors.New("duplicate email")
)

// UserPatch is a partial update applied by the store against the row it
// currently holds. Nil fields keep their stored value. The stored updatedAt
// becomes UpdatedAt, or one microsecond past its previous value when
// UpdatedAt is not later.
type UserPatch struct {
	Name      *string
	Bio       *string
	UpdatedAt time.Time
}

// UserRepository defines the interface for user-related database operations.
type UserRepository interface {
	List(ctx context.Context) ([]entity.User, error)
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	Create(ctx context.Context, u *entity.User) error
	// Update merges p into the stored row and returns the row as written.
	Update(ctx context.Context, id string, p UserPatch) (*entity.User, error)
	Delete(ctx context.Context, id string) error
}

// Decorator is implemented by repositories that wrap another one.
type Decorator interface {
	Unwrap() UserRepository
}

// Store strips every decorator from r and returns the repository of record.
func Store(r UserRepository) UserRepository {
	for {
		d, ok := r.(Decorator)
		if !ok {
			return r
		}
		r = d.Unwrap()
	}
}
