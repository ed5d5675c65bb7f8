package auth

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

var _ PasswordHasher = (*BcryptHasher)(nil)

// PasswordHasher hashes and checks passwords with an adaptive salted KDF.
type PasswordHasher interface {
	// Hash returns an encoded hash embedding algorithm, cost and salt.
	Hash(ctx context.Context, plaintext string) (string, error)

	// Verify reports whether plaintext matches stored.
	Verify(ctx context.Context, plaintext, stored string) bool

	// DummyVerify performs one verification whose result is discarded.
	DummyVerify(ctx context.Context, plaintext string)
}

// BcryptHasher runs bcrypt on a bounded number of goroutines at a time so that
// CPU-heavy hashing cannot starve the rest of the server.
type BcryptHasher struct {
	cost      int
	sem       *semaphore.Weighted
	dummyHash []byte
}

// NewBcryptHasher creates a bcrypt hasher. Cost outside bcrypt's range falls back
// to bcrypt.DefaultCost; workers <= 0 means runtime.NumCPU().
func NewBcryptHasher(cost, workers int) (*BcryptHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte("fabrico-dummy-password"), cost)
	if err != nil {
		return nil, fmt.Errorf("password: generate dummy hash: %w", err)
	}

	return &BcryptHasher{
		cost:      cost,
		sem:       semaphore.NewWeighted(int64(workers)),
		dummyHash: dummy,
	}, nil
}

// Cost returns the bcrypt cost used for new hashes.
func (h *BcryptHasher) Cost() int {
	return h.cost
}

func (h *BcryptHasher) Hash(ctx context.Context, plaintext string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("password: wait for hashing slot: %w", err)
	}
	defer h.sem.Release(1)

	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("password: hash: %w", err)
	}
	return string(hash), nil
}

func (h *BcryptHasher) Verify(ctx context.Context, plaintext, stored string) bool {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return false
	}
	defer h.sem.Release(1)

	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(plaintext)) == nil
}

func (h *BcryptHasher) DummyVerify(ctx context.Context, plaintext string) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return
	}
	defer h.sem.Release(1)

	_ = bcrypt.CompareHashAndPassword(h.dummyHash, []byte(plaintext))
}
