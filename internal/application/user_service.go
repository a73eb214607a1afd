package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-users-crud/internal/domain/entity"
	repo "github.com/oksasatya/go-users-crud/internal/domain/repository"
	"github.com/oksasatya/go-users-crud/pkg/validation"
)

const (
	defaultSearchSize = 10
	maxSearchSize     = 50

	sideEffectTimeout = 5 * time.Second
)

// Indexer keeps an external search index in sync with the store.
type Indexer interface {
	Index(ctx context.Context, u *entity.User) error
	Remove(ctx context.Context, id string) error
	Search(ctx context.Context, q string, size int) ([]entity.User, error)
}

// EventPublisher announces committed user changes.
type EventPublisher interface {
	PublishUserEvent(ctx context.Context, ev entity.UserEvent) error
}

type Service struct {
	Repo   repo.UserRepository
	Logger *logrus.Logger
	// Index and Events are optional; nil disables them.
	Index  Indexer
	Events EventPublisher

	validate *validator.Validate
	now      func() time.Time
}

func NewService(repo repo.UserRepository, logger *logrus.Logger, index Indexer, events EventPublisher) *Service {
	return &Service{
		Repo:     repo,
		Logger:   logger,
		Index:    index,
		Events:   events,
		validate: validation.New(),
		now:      time.Now,
	}
}

type CreateUserInput struct {
	Email string  `json:"email" validate:"required,email,max=255"`
	Name  string  `json:"name" validate:"required,fullname"`
	Bio   *string `json:"bio" validate:"omitnil,biography"`
}

// UpdateUserInput holds the mutable fields. Nil fields are left unchanged.
type UpdateUserInput struct {
	Name *string `json:"name" validate:"omitnil,fullname"`
	Bio  *string `json:"bio" validate:"omitnil,biography"`
}

func (s *Service) GetAll(ctx context.Context) ([]entity.User, error) {
	users, err := s.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*entity.User, error) {
	u, err := s.Repo.GetByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, &UserNotFoundError{Key: id}
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return u, nil
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	u, err := s.Repo.GetByEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, &UserNotFoundError{Key: email}
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// Create validates in, rejects a taken email and stores a new user.
// The email pre-check is only a fast path; the store's unique constraint
// decides races between concurrent creates.
func (s *Service) Create(ctx context.Context, in CreateUserInput) (*entity.User, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}

	existing, err := s.Repo.GetByEmail(ctx, in.Email)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if existing != nil {
		return nil, &UserAlreadyExistsError{Email: in.Email}
	}

	now := s.timestamp()
	u := &entity.User{
		ID:        uuid.NewString(),
		Email:     in.Email,
		Name:      in.Name,
		Bio:       in.Bio,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Repo.Create(ctx, u); err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			return nil, &UserAlreadyExistsError{Email: in.Email}
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.afterWrite(ctx, entity.UserCreated, u.ID, u)
	return u, nil
}

// Update merges the non-nil fields of in onto the stored user. The merge
// runs in the store against its current row, never against a cached copy.
func (s *Service) Update(ctx context.Context, id string, in UpdateUserInput) (*entity.User, error) {
	if _, err := s.GetByID(ctx, id); err != nil {
		return nil, err
	}
	if err := s.check(in); err != nil {
		return nil, err
	}

	u, err := s.Repo.Update(ctx, id, repo.UserPatch{Name: in.Name, Bio: in.Bio, UpdatedAt: s.timestamp()})
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, &UserNotFoundError{Key: id}
		}
		return nil, fmt.Errorf("update user %s: %w", id, err)
	}

	s.afterWrite(ctx, entity.UserUpdated, u.ID, u)
	return u, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return &UserNotFoundError{Key: id}
		}
		return fmt.Errorf("delete user %s: %w", id, err)
	}

	s.afterWrite(ctx, entity.UserDeleted, id, nil)
	return nil
}

// Resync makes the search index agree with the stored row for id: indexed
// when it exists, removed when it does not. It reads the store itself rather
// than trusting an event payload, so events handled late or out of order
// still converge on the latest row.
func (s *Service) Resync(ctx context.Context, id string) error {
	if s.Index == nil {
		return nil
	}
	u, err := repo.Store(s.Repo).GetByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		if err := s.Index.Remove(ctx, id); err != nil {
			return fmt.Errorf("remove user %s from index: %w", id, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("resync user %s: %w", id, err)
	}
	if err := s.Index.Index(ctx, u); err != nil {
		return fmt.Errorf("index user %s: %w", id, err)
	}
	return nil
}

// Search queries the search index. Without an index it finds nothing.
func (s *Service) Search(ctx context.Context, q string, size int) ([]entity.User, error) {
	if s.Index == nil {
		return []entity.User{}, nil
	}
	if size <= 0 {
		size = defaultSearchSize
	}
	if size > maxSearchSize {
		size = maxSearchSize
	}
	users, err := s.Index.Search(ctx, q, size)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	return users, nil
}

func (s *Service) check(in any) error {
	if err := s.validate.Struct(in); err != nil {
		details := validation.ToDetails(err)
		return &UserValidationError{Message: validation.Summary(details), Details: details}
	}
	return nil
}

// timestamp is truncated to what postgres timestamptz stores.
func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// afterWrite syncs the search index and publishes an event. Both are best
// effort: the write is already committed, so failures are only logged.
// They run detached from the caller's cancellation; a client that hangs up
// after the commit must not suppress them.
func (s *Service) afterWrite(ctx context.Context, kind, id string, u *entity.User) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	if s.Index != nil {
		var err error
		if u != nil {
			err = s.Index.Index(ctx, u)
		} else {
			err = s.Index.Remove(ctx, id)
		}
		if err != nil {
			s.warn(err, id, "search index sync failed")
		}
	}
	if s.Events != nil {
		ev := entity.UserEvent{Type: kind, UserID: id, User: u, OccurredAt: s.timestamp()}
		if err := s.Events.PublishUserEvent(ctx, ev); err != nil {
			s.warn(err, id, "publish user event failed")
		}
	}
}

func (s *Service) warn(err error, id, msg string) {
	if s.Logger != nil {
		s.Logger.WithError(err).WithField("user_id", id).Warn(msg)
	}
}
