package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/FACorreiaa/fabrico-auth/internal/types"
)

var _ UserStore = (*CachedUserStore)(nil)

// CachedUserStore is a read-through cache in front of another UserStore.
// Only successful FindByEmail lookups are cached; misses and writes always
// reach the backing store, so a cached entry can never hide a new user.
type CachedUserStore struct {
	next   UserStore
	cache  *cache.Cache
	logger *slog.Logger
}

// NewCachedUserStore wraps next with a cache whose entries live for ttl.
func NewCachedUserStore(next UserStore, ttl time.Duration, logger *slog.Logger) *CachedUserStore {
	return &CachedUserStore{
		next:   next,
		cache:  cache.New(ttl, 2*ttl),
		logger: logger,
	}
}

// FindByEmail implements UserStore.
func (s *CachedUserStore) FindByEmail(ctx context.Context, email string) (*types.User, error) {
	if v, ok := s.cache.Get(email); ok {
		u := *(v.(*types.User))
		s.logger.DebugContext(ctx, "User cache hit", slog.String("method", "FindByEmail"))
		return &u, nil
	}

	u, err := s.next.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	cp := *u
	s.cache.Set(email, &cp, cache.DefaultExpiration)
	return u, nil
}

// ExistsByEmail implements UserStore.
func (s *CachedUserStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return s.next.ExistsByEmail(ctx, email)
}

// Insert implements UserStore.
func (s *CachedUserStore) Insert(ctx context.Context, u *types.User) (*types.User, error) {
	return s.next.Insert(ctx, u)
}
