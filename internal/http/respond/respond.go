// Package respond writes the JSON envelope every endpoint returns and decodes
// request bodies.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// ErrBodyTooLarge is returned by Decode for bodies over the size cap.
var ErrBodyTooLarge = errors.New("request body too large")

// Envelope is the response shape: the HTTP status repeated as code, a
// human-readable message and an optional payload.
type Envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func JSON(w http.ResponseWriter, status int, message string, data any) {
	encode(w, status, Envelope{Code: status, Message: message, Data: data})
}

func Error(w http.ResponseWriter, status int, message string) {
	encode(w, status, Envelope{Code: status, Message: message})
}

// Decode reads one JSON value from the body into dst, writing 400 or 413 and
// returning false when it cannot. Unknown fields are ignored.
func Decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		Error(w, http.StatusRequestEntityTooLarge, ErrBodyTooLarge.Error())
		return false
	}
	Error(w, http.StatusBadRequest, "invalid JSON payload")
	return false
}

func encode(w http.ResponseWriter, status int, payload Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Warn("response encode failed", zap.Int("status", status), zap.Error(err))
	}
}
