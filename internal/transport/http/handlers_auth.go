package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	authModel "sessiongate/internal/auth/models"
	"sessiongate/internal/platform/middleware"
	id "sessiongate/pkg/domain"
	dErrors "sessiongate/pkg/domain-errors"
	"sessiongate/pkg/platform/httputil"
)

const maxRequestBodyBytes = 1 << 20

type AuthService interface {
	Register(ctx context.Context, req *authModel.RegisterRequest) (*authModel.IdentityResult, error)
	Connect(ctx context.Context, authorization string) (*authModel.TokenResult, error)
	Disconnect(ctx context.Context, token string) error
	Me(ctx context.Context, identityID id.IdentityID) (*authModel.IdentityResult, error)
	AuthenticateHeaders(ctx context.Context, authorization, token string) (id.IdentityID, error)
}

// AuthHandler serves registration, login, logout and the current identity.
type AuthHandler struct {
	auth   AuthService
	logger *slog.Logger
}

func NewAuthHandler(auth AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

func (h *AuthHandler) Register(r chi.Router) {
	r.Post("/users", h.handleRegister)
	r.Get("/connect", h.handleConnect)
	r.Get("/disconnect", h.handleDisconnect)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(h.auth, h.logger))
		r.Get("/users/me", h.handleMe)
	})
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req authModel.RegisterRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "failed to decode register request",
			"error", err,
			"request_id", middleware.GetRequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Invalid JSON body"))
		return
	}

	res, err := h.auth.Register(ctx, &req)
	if err != nil {
		h.logFailure(ctx, "register failed", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, res)
}

func (h *AuthHandler) handleConnect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	res, err := h.auth.Connect(ctx, r.Header.Get("Authorization"))
	if err != nil {
		h.logFailure(ctx, "connect failed", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *AuthHandler) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.auth.Disconnect(ctx, r.Header.Get(middleware.HeaderToken)); err != nil {
		h.logFailure(ctx, "disconnect failed", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *AuthHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identityID := middleware.GetIdentityID(ctx)
	if identityID.IsNil() {
		h.logger.ErrorContext(ctx, "identity missing from context despite auth middleware",
			"request_id", middleware.GetRequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return
	}

	res, err := h.auth.Me(ctx, identityID)
	if err != nil {
		h.logFailure(ctx, "me failed", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, res)
}

// logFailure logs store outages and internal errors at error level and
// client mistakes at debug level.
func (h *AuthHandler) logFailure(ctx context.Context, msg string, err error) {
	attrs := []any{"error", err, "request_id", middleware.GetRequestID(ctx)}
	if de, ok := dErrors.As(err); ok && de.Code != dErrors.CodeInternal && de.Code != dErrors.CodeUnavailable {
		h.logger.DebugContext(ctx, msg, attrs...)
		return
	}
	h.logger.ErrorContext(ctx, msg, attrs...)
}
