package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/fabrico-auth/app/observability/metrics"
	"github.com/FACorreiaa/fabrico-auth/internal/api"
	"github.com/FACorreiaa/fabrico-auth/internal/types"
)

var _ UserStore = (*PostgresUserStore)(nil)

// ErrDuplicateEmail is returned by Insert when the email is already stored.
var ErrDuplicateEmail = fmt.Errorf("%w: duplicate email", api.ErrConflict)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// UserStore is the persistence contract for users. Emails are expected in
// canonical (trimmed, lowercased) form.
type UserStore interface {
	// FindByEmail returns api.ErrNotFound when no user has email.
	FindByEmail(ctx context.Context, email string) (*types.User, error)

	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// Insert persists u and returns it with ID and timestamps set.
	// It fails with ErrDuplicateEmail and stores nothing if the email is taken.
	Insert(ctx context.Context, u *types.User) (*types.User, error)
}

// DB is the subset of *pgxpool.Pool used by PostgresUserStore.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresUserStore struct {
	logger *slog.Logger
	db     DB
}

func NewPostgresUserStore(db DB, logger *slog.Logger) *PostgresUserStore {
	return &PostgresUserStore{
		logger: logger,
		db:     db,
	}
}

func (r *PostgresUserStore) observe(ctx context.Context, operation string, start time.Time, err error) {
	m := metrics.Get()
	attrs := metric.WithAttributes(attribute.String("operation", operation))
	m.DbQueryDurationSeconds.Record(ctx, time.Since(start).Seconds(), attrs)
	if err != nil {
		m.DbQueryErrorsTotal.Add(ctx, 1, attrs)
	}
}

// FindByEmail implements UserStore.
func (r *PostgresUserStore) FindByEmail(ctx context.Context, email string) (*types.User, error) {
	ctx, span := otel.Tracer("UserStore").Start(ctx, "FindByEmail", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "FindByEmail"))
	start := time.Now()

	query := `
        SELECT id, name, email, password_hash, phone_number, role, created_at, updated_at
        FROM users
        WHERE email = $1`

	var u types.User
	var role string
	err := r.db.QueryRow(ctx, query, email).Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.PhoneNumber, &role, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.observe(ctx, "find_by_email", start, nil)
			l.DebugContext(ctx, "User not found by email")
			span.SetStatus(codes.Ok, "User not found")
			return nil, api.ErrNotFound
		}
		r.observe(ctx, "find_by_email", start, err)
		l.ErrorContext(ctx, "Failed to query user by email", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching user by email: %w", err)
	}
	r.observe(ctx, "find_by_email", start, nil)
	u.Role = types.Role(role)

	span.SetStatus(codes.Ok, "User found")
	return &u, nil
}

// ExistsByEmail implements UserStore.
func (r *PostgresUserStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	ctx, span := otel.Tracer("UserStore").Start(ctx, "ExistsByEmail", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "ExistsByEmail"))
	start := time.Now()

	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	r.observe(ctx, "exists_by_email", start, err)
	if err != nil {
		l.ErrorContext(ctx, "Failed to check email existence", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return false, fmt.Errorf("database error checking email: %w", err)
	}

	span.SetStatus(codes.Ok, "Email checked")
	return exists, nil
}

// Insert implements UserStore. The single INSERT runs in its own implicit
// transaction, so a unique violation leaves no row behind.
func (r *PostgresUserStore) Insert(ctx context.Context, u *types.User) (*types.User, error) {
	ctx, span := otel.Tracer("UserStore").Start(ctx, "Insert", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "Insert"))
	start := time.Now()

	query := `
        INSERT INTO users (name, email, password_hash, phone_number, role)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at, updated_at`

	saved := *u
	err := r.db.QueryRow(ctx, query, u.Name, u.Email, u.PasswordHash, u.PhoneNumber, string(u.Role)).
		Scan(&saved.ID, &saved.CreatedAt, &saved.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			r.observe(ctx, "insert", start, nil)
			l.WarnContext(ctx, "Insert rejected by unique constraint", slog.String("constraint", pgErr.ConstraintName))
			span.SetStatus(codes.Error, "duplicate email")
			return nil, ErrDuplicateEmail
		}
		r.observe(ctx, "insert", start, err)
		l.ErrorContext(ctx, "Failed to insert user", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB insert failed")
		return nil, fmt.Errorf("database error inserting user: %w", err)
	}
	r.observe(ctx, "insert", start, nil)

	l.InfoContext(ctx, "User inserted", slog.Int64("userID", saved.ID))
	span.SetAttributes(attribute.Int64("user.id", saved.ID))
	span.SetStatus(codes.Ok, "User inserted")
	return &saved, nil
}
