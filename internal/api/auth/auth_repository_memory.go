package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/FACorreiaa/fabrico-auth/internal/api"
	"github.com/FACorreiaa/fabrico-auth/internal/types"
)

var _ UserStore = (*MemoryUserStore)(nil)

// MemoryUserStore keeps users in process memory. It backs the "memory"
// repository driver and the test suites.
type MemoryUserStore struct {
	logger *slog.Logger

	mu      sync.RWMutex
	byEmail map[string]*types.User
	nextID  int64
	now     func() time.Time
}

func NewMemoryUserStore(logger *slog.Logger) *MemoryUserStore {
	return &MemoryUserStore{
		logger:  logger,
		byEmail: make(map[string]*types.User),
		now:     time.Now,
	}
}

// FindByEmail implements UserStore.
func (s *MemoryUserStore) FindByEmail(ctx context.Context, email string) (*types.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byEmail[email]
	if !ok {
		return nil, api.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// ExistsByEmail implements UserStore.
func (s *MemoryUserStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.byEmail[email]
	return ok, nil
}

// Insert implements UserStore. The uniqueness check and the write happen
// under one lock.
func (s *MemoryUserStore) Insert(ctx context.Context, u *types.User) (*types.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[u.Email]; taken {
		s.logger.WarnContext(ctx, "Insert rejected, email already stored", slog.String("method", "Insert"))
		return nil, ErrDuplicateEmail
	}

	s.nextID++
	saved := *u
	saved.ID = s.nextID
	saved.CreatedAt = s.now().UTC()
	saved.UpdatedAt = saved.CreatedAt
	s.byEmail[saved.Email] = &saved

	s.logger.DebugContext(ctx, "User inserted", slog.String("method", "Insert"), slog.Int64("userID", saved.ID))
	out := saved
	return &out, nil
}

// Len returns the number of stored users.
func (s *MemoryUserStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byEmail)
}
