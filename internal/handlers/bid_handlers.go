package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/senyabanana/bid-engine/internal/models"
	"github.com/senyabanana/bid-engine/internal/services"
	"github.com/senyabanana/bid-engine/internal/utils"
)

// BidHandler - структура для обработки HTTP-запросов.
type BidHandler struct {
	Service  *services.BidService
	Listings *services.ListingService
	Logger   *slog.Logger
	Timeout  time.Duration
}

// NewBidHandler создает новый экземпляр BidHandler.
func NewBidHandler(service *services.BidService, listings *services.ListingService, logger *slog.Logger, timeout time.Duration) *BidHandler {
	return &BidHandler{
		Service:  service,
		Listings: listings,
		Logger:   logger,
		Timeout:  timeout,
	}
}

// CreateBid обрабатывает запросы для создания предложения.
func (h *BidHandler) CreateBid(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var bidReq models.BidRequest
	if err := json.NewDecoder(r.Body).Decode(&bidReq); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.KindInvalid, "invalid request body")
		return
	}

	newBid, err := h.Service.PlaceBid(ctx, CallerFromContext(ctx), bidReq)
	if err != nil {
		writeError(w, r, h.Logger, err, "failed to create bid")
		return
	}

	utils.SendJSON(w, http.StatusCreated, newBid)
}

// GetBid обрабатывает запросы для получения предложения.
func (h *BidHandler) GetBid(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	bid, err := h.Service.GetBid(ctx, CallerFromContext(ctx), r.PathValue("bidId"))
	if err != nil {
		writeError(w, r, h.Logger, err, "failed to get bid")
		return
	}

	utils.SendJSON(w, http.StatusOK, bid)
}

// EditBid обрабатывает запросы изменения предложения.
func (h *BidHandler) EditBid(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var updateReq models.BidUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&updateReq); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.KindInvalid, "invalid request body")
		return
	}

	updatedBid, err := h.Service.UpdateBid(ctx, CallerFromContext(ctx), r.PathValue("bidId"), updateReq)
	if err != nil {
		writeError(w, r, h.Logger, err, "failed to update bid")
		return
	}

	utils.SendJSON(w, http.StatusOK, updatedBid)
}

// RollbackBid обрабатывает запросы на откат цены и комментария к записи журнала.
func (h *BidHandler) RollbackBid(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	bid, err := h.Service.RollbackBid(ctx, CallerFromContext(ctx), r.PathValue("bidId"), r.PathValue("historyId"))
	if err != nil {
		writeError(w, r, h.Logger, err, "failed to rollback bid")
		return
	}

	utils.SendJSON(w, http.StatusOK, bid)
}

// AcceptBid обрабатывает запросы владельца объявления на принятие предложения.
func (h *BidHandler) AcceptBid(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	bid, err := h.Service.AcceptBid(ctx, CallerFromContext(ctx), r.PathValue("bidId"))
	if err != nil {
		writeError(w, r, h.Logger, err, "failed to accept bid")
		return
	}

	utils.SendJSON(w, http.StatusOK, bid)
}

// DeclineBid обрабатывает запросы владельца объявления на отклонение предложения.
func (h *BidHandler) DeclineBid(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	bid, err := h.Service.DeclineBid(ctx, CallerFromContext(ctx), r.PathValue("bidId"))
	if err != nil {
		writeError(w, r, h.Logger, err, "failed to decline bid")
		return
	}

	utils.SendJSON(w, http.StatusOK, bid)
}

// DeleteBid обрабатывает запросы на отзыв предложения.
func (h *BidHandler) DeleteBid(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	if err := h.Service.DeleteBid(ctx, CallerFromContext(ctx), r.PathValue("bidId")); err != nil {
		writeError(w, r, h.Logger, err, "failed to delete bid")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetBidHistory обрабатывает запросы журнала изменений предложения.
func (h *BidHandler) GetBidHistory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	history, err := h.Listings.GetBidHistory(ctx, CallerFromContext(ctx), r.PathValue("bidId"))
	if err != nil {
		writeError(w, r, h.Logger, err, "failed to get bid history")
		return
	}

	utils.SendJSON(w, http.StatusOK, history)
}
