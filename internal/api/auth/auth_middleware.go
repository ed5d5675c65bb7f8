package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/FACorreiaa/fabrico-auth/app/observability/metrics"
	"github.com/FACorreiaa/fabrico-auth/internal/api"
	"github.com/FACorreiaa/fabrico-auth/internal/types"
)

type contextKey string

const PrincipalKey contextKey = "principal"

// bearerPrefix is matched case-sensitively.
const bearerPrefix = "Bearer "

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *types.Principal) context.Context {
	return context.WithValue(ctx, PrincipalKey, p)
}

// PrincipalFromContext returns the principal attached by Authenticate, if any.
func PrincipalFromContext(ctx context.Context) (*types.Principal, bool) {
	p, ok := ctx.Value(PrincipalKey).(*types.Principal)
	return p, ok && p != nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	return header[len(bearerPrefix):], true
}

// Authenticate resolves a bearer token into a principal on the request
// context. It never writes a response: requests with a missing or unusable
// token continue anonymously and Authorize decides whether they are admitted.
func Authenticate(logger *slog.Logger, codec *TokenCodec, store UserStore) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			l := logger.With(slog.String("middleware", "Authenticate"))

			token, ok := BearerToken(r.Header.Get("Authorization"))
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := codec.Parse(token)
			if err != nil {
				l.ErrorContext(ctx, "Cannot set user authentication", slog.Any("error", err))
				rejectToken(ctx, reasonOf(err))
				next.ServeHTTP(w, r)
				return
			}

			if _, authenticated := PrincipalFromContext(ctx); authenticated {
				next.ServeHTTP(w, r)
				return
			}

			user, err := store.FindByEmail(ctx, claims.Subject)
			if err != nil {
				if errors.Is(err, api.ErrNotFound) {
					l.WarnContext(ctx, "Token subject has no user")
					rejectToken(ctx, "unknown_subject")
				} else {
					l.ErrorContext(ctx, "Failed to load token subject", slog.Any("error", err))
					rejectToken(ctx, "store_error")
				}
				next.ServeHTTP(w, r)
				return
			}

			if err := codec.Check(token, user.Email, codec.Now()); err != nil {
				l.WarnContext(ctx, "Token rejected", slog.Any("error", err))
				rejectToken(ctx, reasonOf(err))
				next.ServeHTTP(w, r)
				return
			}

			l.DebugContext(ctx, "Request authenticated", slog.Int64("userID", user.ID))
			next.ServeHTTP(w, r.WithContext(WithPrincipal(ctx, types.NewPrincipal(user))))
		})
	}
}

func reasonOf(err error) string {
	switch {
	case errors.Is(err, ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, ErrTokenSignatureInvalid):
		return "signature_invalid"
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrTokenSubjectMismatch):
		return "subject_mismatch"
	default:
		return "invalid"
	}
}

func rejectToken(ctx context.Context, reason string) {
	metrics.Get().TokenRejectionsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}
