package auth

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestHasher(t *testing.T) *BcryptHasher {
	t.Helper()
	h, err := NewBcryptHasher(bcrypt.MinCost, 2)
	require.NoError(t, err)
	return h
}

func TestBcryptHasher_RoundTrip(t *testing.T) {
	h := newTestHasher(t)
	ctx := context.Background()

	for _, p := range []string{"password123", "pässwörd", "      x", strings.Repeat("a", 71)} {
		hash, err := h.Hash(ctx, p)
		require.NoError(t, err)
		assert.True(t, h.Verify(ctx, p, hash), "password %q", p)
		assert.False(t, h.Verify(ctx, p+"!", hash), "password %q", p)
	}
}

func TestBcryptHasher_HashDoesNotLeak(t *testing.T) {
	h := newTestHasher(t)
	ctx := context.Background()

	a, err := h.Hash(ctx, "password123")
	require.NoError(t, err)
	b, err := h.Hash(ctx, "password123")
	require.NoError(t, err)

	assert.NotEqual(t, "password123", a)
	assert.NotContains(t, a, "password123")
	assert.NotEqual(t, a, b, "salt must be fresh per hash")
	assert.True(t, strings.HasPrefix(a, "$2a$"))
}

func TestBcryptHasher_EmbedsCost(t *testing.T) {
	h, err := NewBcryptHasher(bcrypt.MinCost+1, 1)
	require.NoError(t, err)

	hash, err := h.Hash(context.Background(), "password123")
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost+1, cost)
}

func TestNewBcryptHasher_InvalidCostFallsBack(t *testing.T) {
	h, err := NewBcryptHasher(0, 0)
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, h.Cost())
}

func TestBcryptHasher_RejectsOverlongPassword(t *testing.T) {
	h := newTestHasher(t)
	_, err := h.Hash(context.Background(), strings.Repeat("a", 73))
	assert.ErrorIs(t, err, bcrypt.ErrPasswordTooLong)
}

func TestBcryptHasher_VerifyGarbageHash(t *testing.T) {
	h := newTestHasher(t)
	assert.False(t, h.Verify(context.Background(), "password123", "not-a-hash"))
	assert.False(t, h.Verify(context.Background(), "", ""))
}

func TestBcryptHasher_RespectsCancellation(t *testing.T) {
	h, err := NewBcryptHasher(bcrypt.MinCost, 1)
	require.NoError(t, err)

	// occupy the only slot
	require.NoError(t, h.sem.Acquire(context.Background(), 1))
	defer h.sem.Release(1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = h.Hash(ctx, "password123")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, h.Verify(ctx, "password123", "$2a$04$x"))
}

func TestBcryptHasher_Concurrent(t *testing.T) {
	h := newTestHasher(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hash, err := h.Hash(ctx, "password123")
			if assert.NoError(t, err) {
				assert.True(t, h.Verify(ctx, "password123", hash))
			}
			h.DummyVerify(ctx, "password123")
		}()
	}
	wg.Wait()
}
