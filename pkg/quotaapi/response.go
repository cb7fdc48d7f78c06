package quotaapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/quotakit/pkg/logger"
)

// Envelope is the body of every response: Data on success, Error otherwise.
type Envelope struct {
	Data  any          `json:"data,omitempty"`
	Error *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail carries the stable error key in Code and a human readable
// Message. Server-side failures get a generic message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (h *Handler) ok(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, Envelope{Data: data})
}

// fail renders err. Server-side failures are logged at error level with the
// cause; the client only sees the key.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	httpErr := statusOf(err)

	detail := &ErrorDetail{Code: httpErr.Key}
	if httpErr.Code >= http.StatusInternalServerError || httpErr.Code == http.StatusConflict {
		h.log.ErrorContext(r.Context(), "quota request failed",
			logger.Operation(r.Method+" "+r.URL.Path),
			slog.Int("status", httpErr.Code),
			logger.Error(err),
		)
		detail.Message = http.StatusText(httpErr.Code)
	} else {
		detail.Message = clientMessage(err)
		h.log.DebugContext(r.Context(), "quota request rejected",
			slog.Int("status", httpErr.Code), logger.Error(err),
		)
	}

	writeJSON(w, httpErr.Code, Envelope{Error: detail})
}

// clientMessage returns the innermost explanation of a client error, which
// carries the validation reason rather than the sentinel text.
func clientMessage(err error) string {
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		if errs := joined.Unwrap(); len(errs) > 0 {
			return errs[len(errs)-1].Error()
		}
	}
	return err.Error()
}
