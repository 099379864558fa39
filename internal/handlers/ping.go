package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/senyabanana/bid-engine/internal/models"
	"github.com/senyabanana/bid-engine/internal/utils"
)

// Pinger проверяет доступность хранилища.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingHandler обрабатывает GET запрос к /api/ping
func PingHandler(db Pinger, logger *slog.Logger, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				logger.Error("database ping failed", "error", err)
				utils.SendErrorResponse(w, http.StatusServiceUnavailable, models.KindInternal, "database unavailable")
				return
			}
		}

		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		if _, err := fmt.Fprint(w, "ok"); err != nil {
			logger.Warn("write ping response", "error", err)
		}
	}
}
