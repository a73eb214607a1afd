package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/oksasatya/go-users-crud/internal/domain/entity"
	"github.com/oksasatya/go-users-crud/internal/domain/repository"
)

// UserRepository keeps users in a process-local map. Email uniqueness is
// enforced here the same way the postgres unique constraint does it.
// Instances in different processes do not share state.
type UserRepository struct {
	mu      sync.RWMutex
	byID    map[string]entity.User
	byEmail map[string]string
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[string]entity.User),
		byEmail: make(map[string]string),
	}
}

func (r *UserRepository) List(ctx context.Context) ([]entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]entity.User, 0, len(r.byID))
	for _, u := range r.byID {
		users = append(users, clone(u))
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].ID < users[j].ID
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := clone(u)
	return &c, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := clone(r.byID[id])
	return &c, nil
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[u.Email]; taken {
		return repository.ErrDuplicateEmail
	}
	r.byID[u.ID] = clone(*u)
	r.byEmail[u.Email] = u.ID
	return nil
}

func (r *UserRepository) Update(ctx context.Context, id string, p repository.UserPatch) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if p.Name != nil {
		cur.Name = *p.Name
	}
	if p.Bio != nil {
		cur.Bio = cloneBio(p.Bio)
	}
	if p.UpdatedAt.After(cur.UpdatedAt) {
		cur.UpdatedAt = p.UpdatedAt
	} else {
		cur.UpdatedAt = cur.UpdatedAt.Add(time.Microsecond)
	}
	r.byID[id] = cur
	c := clone(cur)
	return &c, nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	delete(r.byID, id)
	delete(r.byEmail, u.Email)
	return nil
}

func clone(u entity.User) entity.User {
	u.Bio = cloneBio(u.Bio)
	return u
}

func cloneBio(b *string) *string {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}

var _ repository.UserRepository = (*UserRepository)(nil)
