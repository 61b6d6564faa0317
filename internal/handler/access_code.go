package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hospitalhub/accessgate/internal/accesscode"
	"github.com/hospitalhub/accessgate/internal/audit"
	apperrors "github.com/hospitalhub/accessgate/internal/errors"
	"github.com/hospitalhub/accessgate/internal/middleware"
	"github.com/hospitalhub/accessgate/internal/util"
)

type AccessCodeHandler struct {
	store           accesscode.Store
	adminMiddleware func(http.Handler) http.Handler
}

func NewAccessCodeHandler(store accesscode.Store, adminMiddleware func(http.Handler) http.Handler) *AccessCodeHandler {
	return &AccessCodeHandler{
		store:           store,
		adminMiddleware: adminMiddleware,
	}
}

func (h *AccessCodeHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/validate", h.Validate)

	r.Group(func(r chi.Router) {
		r.Use(h.adminMiddleware)
		r.Post("/generate", h.Generate)
		r.Get("/", h.List)
		r.Get("/valid", h.ListValid)
		r.Put("/{id}/deactivate", h.Deactivate)
		r.Delete("/{id}", h.Delete)
	})

	return r
}

func (h *AccessCodeHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Note string `json:"note"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	admin := middleware.GetAdmin(r.Context())
	code, err := h.store.Generate(r.Context(), admin, req.Note)
	if err != nil {
		if apperrors.GetCode(err) == apperrors.ErrCodeRateLimitExceeded {
			audit.LogFromRequest(r, audit.Event{
				Type:    audit.EventRateLimitExceed,
				Admin:   admin,
				Details: map[string]interface{}{"bucket": "code_gen"},
			})
		}
		writeError(w, r, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:    audit.EventCodeGenerate,
		Admin:   admin,
		CodeID:  code.ID,
		Details: map[string]interface{}{"code": util.MaskCode(code.Code)},
	})
	writeData(w, http.StatusCreated, "Access code generated", code)
}

// validationFailure is the 400 body for a rejected code. Reason carries the
// store's reason string so clients can show it verbatim.
type validationFailure struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Reason  string              `json:"reason"`
	Code    apperrors.ErrorCode `json:"code"`
}

func (h *AccessCodeHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.store.Validate(r.Context(), req.Code)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if !result.Valid {
		appErr := rejection(result.Reason)
		eventType := audit.EventCodeValidateFailure
		if result.Reason == accesscode.ReasonExpired {
			eventType = audit.EventCodeExpired
		}
		audit.LogFromRequest(r, audit.Event{
			Type:    eventType,
			Details: map[string]interface{}{"code": util.MaskCode(accesscode.Normalize(req.Code))},
		})
		writeJSON(w, http.StatusBadRequest, validationFailure{
			Message: appErr.Message,
			Reason:  result.Reason,
			Code:    appErr.Code,
		})
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:   audit.EventCodeValidate,
		CodeID: result.Code.ID,
		Details: map[string]interface{}{
			"code":        util.MaskCode(result.Code.Code),
			"usage_count": result.Code.UsageCount,
		},
	})
	writeData(w, http.StatusOK, "Access code is valid", result.Code)
}

func rejection(reason string) *apperrors.AppError {
	switch reason {
	case accesscode.ReasonRequired:
		return apperrors.AccessCodeRequired()
	case accesscode.ReasonExpired:
		return apperrors.AccessCodeExpired()
	default:
		return apperrors.InvalidAccessCode()
	}
}

func (h *AccessCodeHandler) List(w http.ResponseWriter, r *http.Request) {
	codes, err := h.store.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "", codes)
}

func (h *AccessCodeHandler) ListValid(w http.ResponseWriter, r *http.Request) {
	codes, err := h.store.ListValid(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "", codes)
}

func (h *AccessCodeHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ok, err := h.store.Deactivate(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !ok {
		writeError(w, r, apperrors.NotFound("Access code"))
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:   audit.EventCodeDeactivate,
		Admin:  middleware.GetAdmin(r.Context()),
		CodeID: id,
	})
	writeData(w, http.StatusOK, "Access code deactivated", nil)
}

func (h *AccessCodeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ok, err := h.store.Delete(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !ok {
		writeError(w, r, apperrors.NotFound("Access code"))
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:   audit.EventCodeDelete,
		Admin:  middleware.GetAdmin(r.Context()),
		CodeID: id,
	})
	writeData(w, http.StatusOK, "Access code deleted", nil)
}
