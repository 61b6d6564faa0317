package handler

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/rs/zerolog/log"

	apperrors "github.com/hospitalhub/accessgate/internal/errors"
	"github.com/hospitalhub/accessgate/internal/httputil"
)

// Response is the envelope every access code endpoint answers with.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

func writeData(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, Response{Success: true, Message: message, Data: data})
}

// writeError logs unexpected failures before answering with the mapped status.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if code := apperrors.GetCode(err); httputil.StatusFromCode(code) >= http.StatusInternalServerError {
		log.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	httputil.WriteError(w, err)
}

// decodeJSON decodes an optional JSON body. An empty body leaves dst untouched;
// a non-empty one must be sent as application/json.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mediaType != "application/json" {
		return apperrors.ValidationError("Content-Type must be application/json")
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err != nil {
		return apperrors.ValidationError("Invalid JSON body")
	}
	return nil
}
