package user

import (
	"log/slog"
	"net/http"

	"github.com/FACorreiaa/fabrico-auth/internal/api"
	"github.com/FACorreiaa/fabrico-auth/internal/api/auth"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	Me(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	logger *slog.Logger
}

// NewHandlerImpl creates a new user HandlerImpl instance.
func NewHandlerImpl(logger *slog.Logger) *HandlerImpl {
	if logger == nil {
		panic("PANIC: Attempting to create HandlerImpl with nil logger!")
	}
	return &HandlerImpl{logger: logger}
}

// Me godoc
// @Summary      Current user
// @Description  Returns the user the bearer token belongs to.
// @Tags         User
// @Produce      json
// @Success      200 {object} types.UserResponse "Current user"
// @Failure      401 {object} types.ErrorResponse "Unauthorized"
// @Security     BearerAuth
// @Router       /users/me [get]
func (h *HandlerImpl) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	principal, ok := auth.PrincipalFromContext(ctx)
	if !ok {
		h.logger.WarnContext(ctx, "No principal on request", slog.String("handler", "Me"))
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Unauthorized")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, principal.User.ToResponse())
}
