package handlers

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// Ping отвечает на проверку доступности GET /api/ping.
func Ping(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		if _, err := fmt.Fprint(w, "ok"); err != nil {
			logger.Warn("failed to write ping response", zap.Error(err))
		}
	}
}
