package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	"github.com/FACorreiaa/fabrico-auth/app/observability/metrics"
	"github.com/FACorreiaa/fabrico-auth/internal/api"
	"github.com/FACorreiaa/fabrico-auth/internal/types"
)

var _ AuthService = (*AuthServiceImpl)(nil)

var (
	ErrEmailTaken     = fmt.Errorf("%w: email already registered", api.ErrConflict)
	ErrBadCredentials = fmt.Errorf("%w: invalid email or password", api.ErrUnauthenticated)
)

const (
	MsgRegistered = "Registration successful"
	MsgLoggedIn   = "Login successful"
)

// AuthService registers users and exchanges credentials for session tokens.
type AuthService interface {
	Register(ctx context.Context, req types.RegisterRequest) (*types.AuthResponse, error)

	// Login fails with ErrBadCredentials for both an unknown email and a wrong
	// password.
	Login(ctx context.Context, req types.LoginRequest) (*types.AuthResponse, error)
}

type AuthServiceImpl struct {
	logger *slog.Logger
	store  UserStore
	hasher PasswordHasher
	codec  *TokenCodec
}

func NewAuthService(store UserStore, hasher PasswordHasher, codec *TokenCodec, logger *slog.Logger) *AuthServiceImpl {
	return &AuthServiceImpl{
		logger: logger,
		store:  store,
		hasher: hasher,
		codec:  codec,
	}
}

// CanonicalEmail is the form emails are stored and looked up in.
func CanonicalEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthServiceImpl) record(ctx context.Context, operation string, start time.Time, err error) {
	m := metrics.Get()
	outcome := outcomeOf(err)
	counter := m.LoginRequestsTotal
	if operation == "register" {
		counter = m.RegisterRequestsTotal
	}
	counter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
	m.AuthDurationSeconds.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("operation", operation)))
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, api.ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrEmailTaken):
		return "email_taken"
	case errors.Is(err, ErrBadCredentials):
		return "bad_credentials"
	default:
		return "error"
	}
}

// Register implements AuthService.
func (s *AuthServiceImpl) Register(ctx context.Context, req types.RegisterRequest) (resp *types.AuthResponse, err error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "Register")
	defer span.End()
	start := time.Now()
	defer func() { s.record(ctx, "register", start, err) }()

	l := s.logger.With(slog.String("method", "Register"))

	req.Email = CanonicalEmail(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	if err = api.Validate(req); err != nil {
		l.InfoContext(ctx, "Registration request rejected", slog.Any("error", err))
		span.SetStatus(codes.Error, "validation failed")
		return nil, err
	}

	exists, err := s.store.ExistsByEmail(ctx, req.Email)
	if err != nil {
		l.ErrorContext(ctx, "Failed to check email", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "email check failed")
		return nil, fmt.Errorf("error checking email: %w", err)
	}
	if exists {
		l.InfoContext(ctx, "Registration rejected, email taken")
		span.SetStatus(codes.Error, "email taken")
		return nil, ErrEmailTaken
	}

	hash, err := s.hasher.Hash(ctx, req.Password)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			span.SetStatus(codes.Error, "validation failed")
			return nil, api.NewValidationError("password", "must be at most 72 bytes")
		}
		l.ErrorContext(ctx, "Failed to hash password", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "hash failed")
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user, err := s.store.Insert(ctx, &types.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		PhoneNumber:  req.PhoneNumber,
		Role:         types.RoleUser,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			l.InfoContext(ctx, "Registration lost race for email")
			span.SetStatus(codes.Error, "email taken")
			return nil, ErrEmailTaken
		}
		l.ErrorContext(ctx, "Failed to insert user", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return nil, fmt.Errorf("error inserting user: %w", err)
	}

	token, err := s.codec.Issue(user.Email)
	if err != nil {
		l.ErrorContext(ctx, "Failed to issue token", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "token issue failed")
		return nil, fmt.Errorf("error issuing token: %w", err)
	}

	l.InfoContext(ctx, "User registered", slog.Int64("userID", user.ID))
	span.SetAttributes(attribute.Int64("user.id", user.ID))
	span.SetStatus(codes.Ok, "User registered")
	return authResponse(token, user, MsgRegistered), nil
}

// Login implements AuthService.
func (s *AuthServiceImpl) Login(ctx context.Context, req types.LoginRequest) (resp *types.AuthResponse, err error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "Login", trace.WithAttributes(
		attribute.String("auth.scheme", "password"),
	))
	defer span.End()
	start := time.Now()
	defer func() { s.record(ctx, "login", start, err) }()

	l := s.logger.With(slog.String("method", "Login"))

	req.Email = CanonicalEmail(req.Email)
	if err = api.Validate(req); err != nil {
		l.InfoContext(ctx, "Login request rejected", slog.Any("error", err))
		span.SetStatus(codes.Error, "validation failed")
		return nil, err
	}

	user, err := s.store.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			// keep the response time of an unknown email close to a wrong password
			s.hasher.DummyVerify(ctx, req.Password)
			l.InfoContext(ctx, "Login failed")
			span.SetStatus(codes.Error, "bad credentials")
			return nil, ErrBadCredentials
		}
		l.ErrorContext(ctx, "Failed to load user", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup failed")
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	if !s.hasher.Verify(ctx, req.Password, user.PasswordHash) {
		l.InfoContext(ctx, "Login failed")
		span.SetStatus(codes.Error, "bad credentials")
		return nil, ErrBadCredentials
	}

	token, err := s.codec.Issue(user.Email)
	if err != nil {
		l.ErrorContext(ctx, "Failed to issue token", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "token issue failed")
		return nil, fmt.Errorf("error issuing token: %w", err)
	}

	l.InfoContext(ctx, "User logged in", slog.Int64("userID", user.ID))
	span.SetAttributes(attribute.Int64("user.id", user.ID))
	span.SetStatus(codes.Ok, "User logged in")
	return authResponse(token, user, MsgLoggedIn), nil
}

func authResponse(token string, u *types.User, message string) *types.AuthResponse {
	return &types.AuthResponse{
		Token:   token,
		Type:    TokenType,
		UserID:  u.ID,
		Name:    u.Name,
		Email:   u.Email,
		Role:    u.Role,
		Message: message,
	}
}
