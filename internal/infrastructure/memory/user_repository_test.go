package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-users-crud/internal/domain/entity"
	"github.com/oksasatya/go-users-crud/internal/domain/repository"
)

func newUser(id, email string, at time.Time) *entity.User {
	return &entity.User{ID: id, Email: email, Name: "name-" + id, CreatedAt: at, UpdatedAt: at}
}

func TestCreateAndGet(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repo.Create(ctx, newUser("1", "a@b.com", now)))

	byID, err := repo.GetByID(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", byID.Email)

	byEmail, err := repo.GetByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, "1", byEmail.ID)

	_, err = repo.GetByID(ctx, "2")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = repo.GetByEmail(ctx, "x@y.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCreate_DuplicateEmail(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.Create(ctx, newUser("1", "a@b.com", now)))
	assert.ErrorIs(t, repo.Create(ctx, newUser("2", "a@b.com", now)), repository.ErrDuplicateEmail)
}

func TestCreate_ConcurrentSameEmailOnlyOneWins(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()
	now := time.Now()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- repo.Create(ctx, newUser(fmt.Sprint(i), "same@b.com", now))
		}(i)
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, repository.ErrDuplicateEmail)
		}
	}
	assert.Equal(t, 1, ok)

	users, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestList_OrderedByCreation(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()
	base := time.Now()

	require.NoError(t, repo.Create(ctx, newUser("b", "b@b.com", base.Add(time.Second))))
	require.NoError(t, repo.Create(ctx, newUser("a", "a@b.com", base)))
	require.NoError(t, repo.Create(ctx, newUser("c", "c@b.com", base.Add(2*time.Second))))

	users, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{users[0].ID, users[1].ID, users[2].ID})
}

func TestUpdate_ChangesOnlyMutableFields(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, repo.Create(ctx, newUser("1", "a@b.com", now)))

	bio := "hi"
	later := now.Add(time.Minute)
	name := "New"
	updated, err := repo.Update(ctx, "1", repository.UserPatch{Name: &name, Bio: &bio, UpdatedAt: later})
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Name)

	got, err := repo.GetByID(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, *updated, *got)
	assert.Equal(t, "a@b.com", got.Email)
	assert.Equal(t, "New", got.Name)
	assert.Equal(t, "hi", *got.Bio)
	assert.True(t, got.UpdatedAt.Equal(later))
	assert.True(t, got.CreatedAt.Equal(now))

	_, err = repo.Update(ctx, "missing", repository.UserPatch{Name: &name})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUpdate_MergesOntoStoredRow(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, repo.Create(ctx, newUser("1", "a@b.com", now)))

	bio := "first"
	_, err := repo.Update(ctx, "1", repository.UserPatch{Bio: &bio, UpdatedAt: now.Add(time.Second)})
	require.NoError(t, err)

	// a name-only patch must not touch the bio written before it
	name := "Renamed"
	got, err := repo.Update(ctx, "1", repository.UserPatch{Name: &name, UpdatedAt: now.Add(2 * time.Second)})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	require.NotNil(t, got.Bio)
	assert.Equal(t, "first", *got.Bio)
}

func TestUpdate_UpdatedAtMovesForward(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, repo.Create(ctx, newUser("1", "a@b.com", now)))

	got, err := repo.Update(ctx, "1", repository.UserPatch{UpdatedAt: now.Add(-time.Hour)})
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.Equal(now.Add(time.Microsecond)))
}

func TestReturnedCopiesAreIsolated(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()
	bio := "orig"
	u := newUser("1", "a@b.com", time.Now())
	u.Bio = &bio
	require.NoError(t, repo.Create(ctx, u))

	got, err := repo.GetByID(ctx, "1")
	require.NoError(t, err)
	*got.Bio = "mutated"
	got.Name = "mutated"

	again, err := repo.GetByID(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "orig", *again.Bio)
	assert.Equal(t, "name-1", again.Name)
}

func TestDelete_FreesEmail(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, repo.Create(ctx, newUser("1", "a@b.com", now)))

	require.NoError(t, repo.Delete(ctx, "1"))
	assert.ErrorIs(t, repo.Delete(ctx, "1"), repository.ErrNotFound)

	_, err := repo.GetByID(ctx, "1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	require.NoError(t, repo.Create(ctx, newUser("2", "a@b.com", now)))
}
