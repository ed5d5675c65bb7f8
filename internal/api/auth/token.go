package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/FACorreiaa/fabrico-auth/config"
)

var (
	ErrTokenMalformed        = errors.New("token malformed")
	ErrTokenSignatureInvalid = errors.New("token signature invalid")
	ErrTokenExpired          = errors.New("token expired")
	ErrTokenSubjectMismatch  = errors.New("token subject mismatch")
)

// TokenType is the scheme reported to clients alongside the token.
const TokenType = "Bearer"

// signingMethod is the only algorithm minted and accepted.
var signingMethod = jwt.SigningMethodHS256

// Claims is the payload of a session token. Subject carries the user email.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenCodec mints and verifies HS256 session tokens.
// It is immutable after construction and safe for concurrent use.
type TokenCodec struct {
	key   []byte
	ttl   time.Duration
	clock func() time.Time
}

// NewTokenCodec creates a codec from a raw HMAC key of at least 32 bytes.
func NewTokenCodec(key []byte, ttl time.Duration) (*TokenCodec, error) {
	if len(key) < config.MinSecretBytes {
		return nil, fmt.Errorf("token codec: secret must be at least %d bytes, got %d", config.MinSecretBytes, len(key))
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token codec: ttl must be positive, got %s", ttl)
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &TokenCodec{key: k, ttl: ttl, clock: time.Now}, nil
}

// NewTokenCodecFromConfig decodes the base64 secret and millisecond TTL from cfg.
func NewTokenCodecFromConfig(cfg config.JWTConfig) (*TokenCodec, error) {
	key, err := cfg.SecretKey()
	if err != nil {
		return nil, fmt.Errorf("token codec: %w", err)
	}
	return NewTokenCodec(key, cfg.TTL())
}

// TTL returns the lifetime given to issued tokens.
func (c *TokenCodec) TTL() time.Duration {
	return c.ttl
}

// Now returns the codec's current time.
func (c *TokenCodec) Now() time.Time {
	return c.clock()
}

// Issue mints a token for subject at the current time with the configured TTL.
func (c *TokenCodec) Issue(subject string) (string, error) {
	return c.Mint(subject, c.clock(), c.ttl)
}

// Mint signs a token with sub=subject, iat=now and exp=now+ttl.
// Both timestamps are encoded as whole seconds.
func (c *TokenCodec) Mint(subject string, now time.Time, ttl time.Duration) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("token codec: sign: %w", err)
	}
	return signed, nil
}

// Parse verifies the signature of token and returns its claims.
// Expiry is deliberately not checked here; see Validate.
func (c *TokenCodec) Parse(token string) (*Claims, error) {
	// Fewer than three segments cannot be a compact JWS at all.
	if strings.Count(token, ".") < 2 {
		return nil, ErrTokenMalformed
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, c.keyFunc,
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithStrictDecoding(),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		// Past the segment check every failure means the bytes were not
		// produced by this server: altered encoding, header, payload, MAC or
		// a stray extra separator.
		return nil, fmt.Errorf("%w: %v", ErrTokenSignatureInvalid, err)
	}
	return claims, nil
}

// Check parses token and verifies subject and expiry against now.
func (c *TokenCodec) Check(token, expectedSubject string, now time.Time) error {
	claims, err := c.Parse(token)
	if err != nil {
		return err
	}
	if claims.Subject != expectedSubject {
		return ErrTokenSubjectMismatch
	}
	if claims.ExpiresAt == nil || !now.Before(claims.ExpiresAt.Time) {
		return ErrTokenExpired
	}
	return nil
}

// Validate reports whether token is authentic, belongs to expectedSubject and
// has not expired at now.
func (c *TokenCodec) Validate(token, expectedSubject string, now time.Time) bool {
	return c.Check(token, expectedSubject, now) == nil
}

func (c *TokenCodec) keyFunc(t *jwt.Token) (interface{}, error) {
	if t.Method == nil || t.Method.Alg() != signingMethod.Alg() {
		return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
	}
	return c.key, nil
}
