package httpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/quotakit/pkg/logger"
)

// Probe checks one dependency.
type Probe func(context.Context) error

// LivenessHandler always answers 200 {"status":"alive"}.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, map[string]any{"status": "alive"})
	}
}

// ReadinessHandler runs every probe with timeout and answers 200
// {"status":"ready"} when all pass, otherwise 503 naming the failed checks.
func ReadinessHandler(log *slog.Logger, timeout time.Duration, probes map[string]Probe) http.HandlerFunc {
	if log == nil {
		log = logger.Discard()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		failed := make(map[string]string)
		for name, probe := range probes {
			if err := probe(ctx); err != nil {
				log.ErrorContext(ctx, "readiness check failed", slog.String("check", name), logger.Error(err))
				failed[name] = err.Error()
			}
		}

		if len(failed) > 0 {
			writeStatus(w, http.StatusServiceUnavailable, map[string]any{"status": "not_ready", "failed": failed})
			return
		}
		writeStatus(w, http.StatusOK, map[string]any{"status": "ready"})
	}
}

func writeStatus(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
