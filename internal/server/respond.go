package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	errx "github.com/talksphere/server/internal/core/error"
	logx "github.com/talksphere/server/pkg/logger"
)

const maxJSONBodyBytes = 4 << 20

type errorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logx.FromRequest(r).Warn().Err(err).Msg("failed to write response")
	}
}

// writeError maps err to a status and a client-safe message. Causes of 5xx
// errors are logged and never sent.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errx.StatusOf(err)
	if status >= http.StatusInternalServerError {
		logx.FromRequest(r).Error().Err(err).Int("status", status).Msg("request failed")
	}
	writeJSON(w, r, status, errorBody{Message: errx.MessageOf(err)})
}

// decodeJSON reads a single JSON object from the request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return errx.New(err, http.StatusRequestEntityTooLarge, "request body is too large")
		case errors.Is(err, io.EOF):
			return errx.New(err, http.StatusBadRequest, "request body is required")
		default:
			return errx.New(err, http.StatusBadRequest, "invalid JSON body")
		}
	}
	return nil
}
