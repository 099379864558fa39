package router

import (
	"net/http"

	"github.com/senyabanana/bid-engine/internal/handlers"
)

func InitRoutes(ping http.HandlerFunc, auth *handlers.Authenticator, listingHandler *handlers.ListingHandler, bidHandler *handlers.BidHandler) http.Handler {
	mux := http.NewServeMux()
	protected := func(h http.HandlerFunc) http.Handler { return auth.Middleware(h) }

	mux.HandleFunc("GET /api/ping", ping)

	mux.Handle("POST /api/bids", protected(bidHandler.CreateBid))
	mux.Handle("GET /api/bids/{bidId}", protected(bidHandler.GetBid))
	mux.Handle("PATCH /api/bids/{bidId}", protected(bidHandler.EditBid))
	mux.Handle("DELETE /api/bids/{bidId}", protected(bidHandler.DeleteBid))
	mux.Handle("POST /api/bids/{bidId}/accept", protected(bidHandler.AcceptBid))
	mux.Handle("POST /api/bids/{bidId}/decline", protected(bidHandler.DeclineBid))
	mux.Handle("GET /api/bids/{bidId}/history", protected(bidHandler.GetBidHistory))
	mux.Handle("PUT /api/bids/{bidId}/rollback/{historyId}", protected(bidHandler.RollbackBid))

	mux.Handle("GET /api/jobs/{id}", protected(listingHandler.GetJob))
	mux.Handle("GET /api/jobs/{id}/bids", protected(listingHandler.GetJobBids))
	mux.Handle("GET /api/jobs/{id}/bids/stats", protected(listingHandler.GetJobStats))
	mux.Handle("GET /api/contracts/{id}", protected(listingHandler.GetContract))
	mux.Handle("GET /api/contracts/{id}/bids", protected(listingHandler.GetContractBids))
	mux.Handle("GET /api/contracts/{id}/bids/stats", protected(listingHandler.GetContractStats))
	mux.Handle("GET /api/companies/{companyId}/bids", protected(listingHandler.GetCompanyBids))

	return mux
}
