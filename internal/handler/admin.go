package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hospitalhub/accessgate/internal/audit"
	apperrors "github.com/hospitalhub/accessgate/internal/errors"
	"github.com/hospitalhub/accessgate/internal/middleware"
)

// AdminAuth is the part of service.AdminService the handler needs.
type AdminAuth interface {
	Login(ctx context.Context, username, password string) (string, error)
	Logout(ctx context.Context, token string) error
	SessionTTL() time.Duration
}

type AdminHandler struct {
	adminService      AdminAuth
	sessionMiddleware func(http.Handler) http.Handler
	loginLimiter      func(http.Handler) http.Handler
	isProduction      bool
}

func NewAdminHandler(
	adminService AdminAuth,
	sessionMiddleware func(http.Handler) http.Handler,
	loginLimiter func(http.Handler) http.Handler,
	isProduction bool,
) *AdminHandler {
	return &AdminHandler{
		adminService:      adminService,
		sessionMiddleware: sessionMiddleware,
		loginLimiter:      loginLimiter,
		isProduction:      isProduction,
	}
}

func (h *AdminHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.With(h.loginLimiter).Post("/login", h.Login)
	r.Post("/logout", h.Logout)

	r.Group(func(r chi.Router) {
		r.Use(h.sessionMiddleware)
		r.Get("/me", h.Me)
	})

	return r
}

func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, r, apperrors.MissingRequired("username and password"))
		return
	}

	token, err := h.adminService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, r, apperrors.Database(err))
		return
	}

	if token == "" {
		audit.LogFromRequest(r, audit.Event{Type: audit.EventLoginFailure, Admin: req.Username})
		writeError(w, r, apperrors.Unauthorized("Invalid username or password"))
		return
	}

	audit.LogFromRequest(r, audit.Event{Type: audit.EventLoginSuccess, Admin: req.Username})
	ttl := h.adminService.SessionTTL()
	middleware.SetSessionCookie(w, token, ttl, h.isProduction)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"token":     token,
		"expiresAt": time.Now().Add(ttl).UTC().Format(time.RFC3339),
	})
}

func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := middleware.SessionToken(r); token != "" {
		if err := h.adminService.Logout(r.Context(), token); err != nil {
			writeError(w, r, apperrors.Database(err))
			return
		}
		audit.LogFromRequest(r, audit.Event{Type: audit.EventLogout})
	}

	middleware.ClearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *AdminHandler) Me(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, "", map[string]string{
		"username": middleware.GetAdmin(r.Context()),
	})
}
