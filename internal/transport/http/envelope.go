package http

import (
	"encoding/json"
	"net/http"

	"assessment-engine/internal/domain"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type meta struct {
	RequestID string `json:"request_id,omitempty"`
}

type envelope struct {
	OK    bool          `json:"ok"`
	Data  interface{}   `json:"data,omitempty"`
	Error *errorPayload `json:"error,omitempty"`
	Meta  meta          `json:"meta"`
}

func writeOK(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	writeEnvelope(w, status, envelope{
		OK:   true,
		Data: data,
		Meta: meta{RequestID: middleware.GetReqID(r.Context())},
	})
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	if msg == "" {
		msg = http.StatusText(status)
	}
	writeEnvelope(w, status, envelope{
		Error: &errorPayload{Code: code, Message: msg},
		Meta:  meta{RequestID: middleware.GetReqID(r.Context())},
	})
}

func writeEnvelope(w http.ResponseWriter, status int, res envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(res)
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindInvalidInput:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindInvalidState:
		return http.StatusConflict
	case domain.KindEmptyTest, domain.KindMismatchedQuestion:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError writes err with its taxonomy code. Storage failures are
// logged and reported without internal details.
func writeDomainError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	kind := domain.KindOf(err)
	msg := err.Error()
	if kind == domain.KindStorage {
		log.Error("request failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		msg = "internal storage error"
	}
	writeError(w, r, statusFor(kind), domain.CodeOf(err), msg)
}
