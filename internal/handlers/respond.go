package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/senyabanana/bid-engine/internal/models"
	"github.com/senyabanana/bid-engine/internal/utils"
)

// writeError отправляет ошибку сервиса клиенту. Внутренние ошибки логируются, а клиент получает общее сообщение.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, fallback string) {
	var errorResponse *models.ErrorResponse
	if errors.As(err, &errorResponse) && errorResponse.Kind != models.KindInternal {
		logger.Info("request rejected",
			"method", r.Method, "path", r.URL.Path, "kind", errorResponse.Kind, "reason", errorResponse.Message)
		utils.SendErrorResponse(w, errorResponse.StatusCode(), errorResponse.Kind, errorResponse.Message)
		return
	}

	logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	utils.SendErrorResponse(w, http.StatusInternalServerError, models.KindInternal, fallback)
}
