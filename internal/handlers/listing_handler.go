package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/senyabanana/bid-engine/internal/models"
	"github.com/senyabanana/bid-engine/internal/services"
	"github.com/senyabanana/bid-engine/internal/utils"
)

// ListingHandler - структура для обработки HTTP-запросов к объявлениям.
type ListingHandler struct {
	Service *services.ListingService
	Logger  *slog.Logger
	Timeout time.Duration
}

// NewListingHandler создаёт новый экземпляр ListingHandler.
func NewListingHandler(service *services.ListingService, logger *slog.Logger, timeout time.Duration) *ListingHandler {
	return &ListingHandler{
		Service: service,
		Logger:  logger,
		Timeout: timeout,
	}
}

// GetJob обрабатывает запросы для получения работы.
func (h *ListingHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	h.getListing(w, r, models.JobRef(r.PathValue("id")))
}

// GetContract обрабатывает запросы для получения контракта.
func (h *ListingHandler) GetContract(w http.ResponseWriter, r *http.Request) {
	h.getListing(w, r, models.ContractRef(r.PathValue("id")))
}

func (h *ListingHandler) getListing(w http.ResponseWriter, r *http.Request, ref models.ListingRef) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	listing, err := h.Service.GetListing(ctx, ref)
	if err != nil {
		writeError(w, r, h.Logger, err, "failed to get listing")
		return
	}

	utils.SendJSON(w, http.StatusOK, listing)
}

// GetJobBids обрабатывает запросы для получения предложений по работе.
func (h *ListingHandler) GetJobBids(w http.ResponseWriter, r *http.Request) {
	h.getListingBids(w, r, models.JobRef(r.PathValue("id")))
}

// GetContractBids обрабатывает запросы для получения предложений по контракту.
func (h *ListingHandler) GetContractBids(w http.ResponseWriter, r *http.Request) {
	h.getListingBids(w, r, models.ContractRef(r.PathValue("id")))
}

func (h *ListingHandler) getListingBids(w http.ResponseWriter, r *http.Request, ref models.ListingRef) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	limitStr := r.URL.Query().Get("limit")
	offsetStr := r.URL.Query().Get("offset")

	bids, err := h.Service.GetListingBids(ctx, CallerFromContext(ctx), ref, limitStr, offsetStr)
	if err != nil {
		writeError(w, r, h.Logger, err, "failed to get listing bids")
		return
	}

	utils.SendJSON(w, http.StatusOK, bids)
}

// GetJobStats обрабатывает запросы статистики цен по работе.
func (h *ListingHandler) GetJobStats(w http.ResponseWriter, r *http.Request) {
	h.getStats(w, r, models.JobRef(r.PathValue("id")))
}

// GetContractStats обрабатывает запросы статистики цен по контракту.
func (h *ListingHandler) GetContractStats(w http.ResponseWriter, r *http.Request) {
	h.getStats(w, r, models.ContractRef(r.PathValue("id")))
}

func (h *ListingHandler) getStats(w http.ResponseWriter, r *http.Request, ref models.ListingRef) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	query := r.URL.Query()
	var filter models.StatsFilter
	var err error
	if filter.From, err = utils.ParseTimeParam("from", query.Get("from")); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.KindInvalid, err.Error())
		return
	}
	if filter.To, err = utils.ParseTimeParam("to", query.Get("to")); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, models.KindInvalid, err.Error())
		return
	}
	if status := query.Get("status"); status != "" {
		bidStatus := models.BidStatus(status)
		filter.Status = &bidStatus
	}

	stats, err := h.Service.StatsForListing(ctx, CallerFromContext(ctx), ref, filter)
	if err != nil {
		writeError(w, r, h.Logger, err, "failed to compute bid stats")
		return
	}

	utils.SendJSON(w, http.StatusOK, stats)
}

// GetCompanyBids обрабатывает запросы для получения предложений компании.
func (h *ListingHandler) GetCompanyBids(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	limitStr := r.URL.Query().Get("limit")
	offsetStr := r.URL.Query().Get("offset")

	bids, err := h.Service.GetCompanyBids(ctx, CallerFromContext(ctx), r.PathValue("companyId"), limitStr, offsetStr)
	if err != nil {
		writeError(w, r, h.Logger, err, "failed to get company bids")
		return
	}

	utils.SendJSON(w, http.StatusOK, bids)
}
