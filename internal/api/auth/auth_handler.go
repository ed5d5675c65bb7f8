package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/fabrico-auth/internal/api"
	"github.com/FACorreiaa/fabrico-auth/internal/types"
)

const (
	msgEmailTaken     = "Email already registered"
	msgBadCredentials = "Invalid email or password"
	msgInternal       = "Internal server error"
)

type HandlerImpl struct {
	authService AuthService
	logger      *slog.Logger
}

func NewAuthHandlerImpl(authService AuthService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		authService: authService,
		logger:      logger,
	}
}

// Register godoc
// @Summary      Register a new user
// @Description  Creates a USER account and returns a session token.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body types.RegisterRequest true "Registration details"
// @Success      201 {object} types.AuthResponse "Registration successful"
// @Failure      400 {object} types.ErrorResponse "Validation failed"
// @Failure      409 {object} types.ErrorResponse "Email already registered"
// @Failure      500 {object} types.ErrorResponse "Internal server error"
// @Router       /auth/register [post]
func (h *HandlerImpl) Register(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("AuthHandler").Start(r.Context(), "Register", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/auth/register"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "Register"))

	var req types.RegisterRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request body", slog.Any("error", err))
		span.SetStatus(codes.Error, "invalid request body")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := api.Validate(req); err != nil {
		span.SetStatus(codes.Error, "validation failed")
		api.ValidationErrorResponse(w, r, err)
		return
	}

	resp, err := h.authService.Register(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "registration failed")
		switch {
		case errors.Is(err, api.ErrValidation):
			api.ValidationErrorResponse(w, r, err)
		case errors.Is(err, ErrEmailTaken):
			api.ErrorResponse(w, r, http.StatusConflict, msgEmailTaken)
		default:
			l.ErrorContext(ctx, "Registration failed", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, msgInternal)
		}
		return
	}

	span.SetStatus(codes.Ok, "User registered")
	api.WriteJSONResponse(w, r, http.StatusCreated, resp)
}

// Login godoc
// @Summary      Log in
// @Description  Exchanges email and password for a session token.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body types.LoginRequest true "Credentials"
// @Success      200 {object} types.AuthResponse "Login successful"
// @Failure      400 {object} types.ErrorResponse "Validation failed"
// @Failure      401 {object} types.ErrorResponse "Invalid email or password"
// @Failure      500 {object} types.ErrorResponse "Internal server error"
// @Router       /auth/login [post]
func (h *HandlerImpl) Login(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("AuthHandler").Start(r.Context(), "Login", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/auth/login"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "Login"))

	var req types.LoginRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request body", slog.Any("error", err))
		span.SetStatus(codes.Error, "invalid request body")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := api.Validate(req); err != nil {
		span.SetStatus(codes.Error, "validation failed")
		api.ValidationErrorResponse(w, r, err)
		return
	}

	resp, err := h.authService.Login(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "login failed")
		switch {
		case errors.Is(err, api.ErrValidation):
			api.ValidationErrorResponse(w, r, err)
		case errors.Is(err, ErrBadCredentials):
			api.ErrorResponse(w, r, http.StatusUnauthorized, msgBadCredentials)
		default:
			l.ErrorContext(ctx, "Login failed", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, msgInternal)
		}
		return
	}

	span.SetStatus(codes.Ok, "User logged in")
	api.WriteJSONResponse(w, r, http.StatusOK, resp)
}
