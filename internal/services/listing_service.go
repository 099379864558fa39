package services

import (
	"context"
	"errors"

	"github.com/senyabanana/bid-engine/internal/models"
	"github.com/senyabanana/bid-engine/internal/repository"
	"github.com/senyabanana/bid-engine/internal/utils"
)

// ListingService обслуживает запросы на чтение: объявления, списки предложений, журнал и статистику.
type ListingService struct {
	Store repository.Store
}

// NewListingService создаёт новый экземпляр ListingService.
func NewListingService(store repository.Store) *ListingService {
	return &ListingService{Store: store}
}

// GetListing получает объявление.
func (s *ListingService) GetListing(ctx context.Context, ref models.ListingRef) (*models.Listing, error) {
	if !isUUID(ref.ID) {
		return nil, models.NewNotFound("listing not found")
	}
	listing, err := s.Store.Repos().Listings.GetListing(ctx, ref, false)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, models.NewNotFound("listing not found")
	}
	return listing, err
}

// GetListingBids получает список предложений по объявлению; доступно только владельцу объявления.
func (s *ListingService) GetListingBids(ctx context.Context, callerId string, ref models.ListingRef, limitStr, offsetStr string) ([]models.Bid, error) {
	limit, offset, err := utils.ParseLimitOffset(limitStr, offsetStr)
	if err != nil {
		return nil, models.NewInvalid(err.Error())
	}
	if err := s.authorizeOwner(ctx, callerId, ref, "user is not authorized to view bids for this listing"); err != nil {
		return nil, err
	}
	return s.Store.Repos().Bids.GetListingBids(ctx, ref, limit, offset)
}

// GetCompanyBids получает список предложений компании; доступно только владельцу компании.
func (s *ListingService) GetCompanyBids(ctx context.Context, callerId, companyId, limitStr, offsetStr string) ([]models.Bid, error) {
	limit, offset, err := utils.ParseLimitOffset(limitStr, offsetStr)
	if err != nil {
		return nil, models.NewInvalid(err.Error())
	}
	if !isUUID(companyId) {
		return nil, models.NewInvalid("invalid companyId")
	}

	repos := s.Store.Repos()
	principal, err := resolvePrincipal(ctx, repos, callerId)
	if err != nil {
		return nil, err
	}
	if !OwnsCompany(principal, companyId) {
		return nil, models.NewForbidden("you do not own this company")
	}
	return repos.Bids.GetCompanyBids(ctx, companyId, limit, offset)
}

// GetBidHistory получает журнал изменений предложения.
func (s *ListingService) GetBidHistory(ctx context.Context, callerId, bidId string) ([]models.BidHistory, error) {
	if !isUUID(bidId) {
		return nil, models.NewNotFound("bid not found")
	}

	repos := s.Store.Repos()
	bid, err := repos.Bids.GetBid(ctx, bidId, false)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, models.NewNotFound("bid not found")
	}
	if err != nil {
		return nil, err
	}
	listing, err := repos.Listings.GetListing(ctx, bid.Listing, false)
	if err != nil {
		return nil, err
	}
	principal, err := resolvePrincipal(ctx, repos, callerId)
	if err != nil {
		return nil, err
	}
	if !CanViewBid(principal, bid, listing) {
		return nil, models.NewForbidden("user is not authorized to view this bid")
	}
	return repos.Bids.GetBidHistory(ctx, bidId)
}

// StatsForListing считает статистику цен по объявлению; доступно только владельцу объявления.
func (s *ListingService) StatsForListing(ctx context.Context, callerId string, ref models.ListingRef, filter models.StatsFilter) (*models.BidStats, error) {
	if filter.From != nil && filter.To != nil && !filter.From.Before(*filter.To) {
		return nil, models.NewInvalid("from must be before to")
	}
	if filter.Status != nil {
		if _, err := ParseBidStatus(string(*filter.Status)); err != nil {
			return nil, models.NewInvalid(err.Error())
		}
	}
	if err := s.authorizeOwner(ctx, callerId, ref, "user is not authorized to view stats for this listing"); err != nil {
		return nil, err
	}
	return s.Store.Repos().Bids.StatsForListing(ctx, ref, filter)
}

func (s *ListingService) authorizeOwner(ctx context.Context, callerId string, ref models.ListingRef, message string) error {
	listing, err := s.GetListing(ctx, ref)
	if err != nil {
		return err
	}
	principal, err := resolvePrincipal(ctx, s.Store.Repos(), callerId)
	if err != nil {
		return err
	}
	if !CanActOnListing(principal, listing) {
		return models.NewForbidden(message)
	}
	return nil
}
