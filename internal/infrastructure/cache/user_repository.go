package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-users-crud/internal/domain/entity"
	"github.com/oksasatya/go-users-crud/internal/domain/repository"
	"github.com/oksasatya/go-users-crud/pkg/helpers"
)

// UserRepository is a read-through cache for GetByID in front of another
// repository. Writes go to the wrapped repository first and then advance a
// per-user generation while dropping the cached entry. A fill only lands if
// the generation it read before hitting the store is still current, so a
// read that raced a write cannot put the old row back. Redis errors are
// logged and the call falls through to the wrapped repository.
//
// Email lookups are never cached: the create path uses them for the
// uniqueness pre-check and must see the store.
type UserRepository struct {
	next   repository.UserRepository
	rdb    *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

func NewUserRepository(next repository.UserRepository, rdb *redis.Client, ttl time.Duration, logger *logrus.Logger) *UserRepository {
	return &UserRepository{next: next, rdb: rdb, ttl: ttl, logger: logger}
}

// generations outlive any cached value so an expired counter cannot let an
// old fill through
const genTTL = 24 * time.Hour

func userKey(id string) string {
	return "user:byid:" + id
}

func genKey(id string) string {
	return "user:gen:" + id
}

// Unwrap returns the wrapped repository.
func (r *UserRepository) Unwrap() repository.UserRepository {
	return r.next
}

func (r *UserRepository) List(ctx context.Context) ([]entity.User, error) {
	return r.next.List(ctx)
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	var cached entity.User
	hit, err := helpers.RedisGetJSON(ctx, r.rdb, userKey(id), &cached)
	if err != nil {
		r.warn(err, id, "user cache read failed")
	}
	if hit {
		return &cached, nil
	}

	gen, genErr := helpers.RedisGeneration(ctx, r.rdb, genKey(id))
	if genErr != nil {
		r.warn(genErr, id, "user cache generation read failed")
	}

	u, err := r.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if genErr == nil {
		if _, err := helpers.RedisSetJSONAtGen(ctx, r.rdb, userKey(id), genKey(id), gen, u, r.ttl); err != nil {
			r.warn(err, id, "user cache write failed")
		}
	}
	return u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.next.GetByEmail(ctx, email)
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	return r.next.Create(ctx, u)
}

func (r *UserRepository) Update(ctx context.Context, id string, p repository.UserPatch) (*entity.User, error) {
	u, err := r.next.Update(ctx, id, p)
	r.evict(ctx, id)
	return u, err
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	err := r.next.Delete(ctx, id)
	r.evict(ctx, id)
	return err
}

func (r *UserRepository) evict(ctx context.Context, id string) {
	if err := helpers.RedisBumpGeneration(ctx, r.rdb, genKey(id), genTTL, userKey(id)); err != nil {
		r.warn(err, id, "user cache evict failed")
	}
}

func (r *UserRepository) warn(err error, id, msg string) {
	if r.logger != nil {
		r.logger.WithError(err).WithField("user_id", id).Warn(msg)
	}
}

var (
	_ repository.UserRepository = (*UserRepository)(nil)
	_ repository.Decorator      = (*UserRepository)(nil)
)
