package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/fabrico-auth/internal/api"
	"github.com/FACorreiaa/fabrico-auth/internal/types"
)

// MockUserStore is a testify mock of UserStore.
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) FindByEmail(ctx context.Context, email string) (*types.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockUserStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserStore) Insert(ctx context.Context, u *types.User) (*types.User, error) {
	args := m.Called(ctx, u)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func TestCachedUserStore_CachesHits(t *testing.T) {
	ctx := context.Background()
	backing := new(MockUserStore)
	user := &types.User{ID: 1, Email: "john@example.com", Name: "John"}
	backing.On("FindByEmail", ctx, "john@example.com").Return(user, nil).Once()

	store := NewCachedUserStore(backing, time.Minute, discardLogger())

	for i := 0; i < 3; i++ {
		got, err := store.FindByEmail(ctx, "john@example.com")
		require.NoError(t, err)
		assert.Equal(t, int64(1), got.ID)
	}
	backing.AssertExpectations(t)
}

func TestCachedUserStore_DoesNotCacheMisses(t *testing.T) {
	ctx := context.Background()
	backing := new(MockUserStore)
	backing.On("FindByEmail", ctx, "ghost@example.com").Return(nil, api.ErrNotFound).Twice()

	store := NewCachedUserStore(backing, time.Minute, discardLogger())

	for i := 0; i < 2; i++ {
		_, err := store.FindByEmail(ctx, "ghost@example.com")
		assert.ErrorIs(t, err, api.ErrNotFound)
	}
	backing.AssertExpectations(t)
}

func TestCachedUserStore_WritesPassThrough(t *testing.T) {
	ctx := context.Background()
	backing := new(MockUserStore)
	in := &types.User{Email: "john@example.com"}
	backing.On("ExistsByEmail", ctx, "john@example.com").Return(false, nil).Once()
	backing.On("Insert", ctx, in).Return(nil, ErrDuplicateEmail).Once()

	store := NewCachedUserStore(backing, time.Minute, discardLogger())

	exists, err := store.ExistsByEmail(ctx, "john@example.com")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = store.Insert(ctx, in)
	assert.ErrorIs(t, err, ErrDuplicateEmail)
	backing.AssertExpectations(t)
}

func TestCachedUserStore_ReturnsCopies(t *testing.T) {
	store := NewCachedUserStore(NewMemoryUserStore(discardLogger()), time.Minute, discardLogger())
	ctx := context.Background()
	_, err := store.Insert(ctx, &types.User{Name: "John", Email: "john@example.com", PasswordHash: "h"})
	require.NoError(t, err)

	got, err := store.FindByEmail(ctx, "john@example.com")
	require.NoError(t, err)
	got.Name = "mutated"

	again, err := store.FindByEmail(ctx, "john@example.com")
	require.NoError(t, err)
	assert.Equal(t, "John", again.Name)
}
