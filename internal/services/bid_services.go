package services

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"
	"unicode/utf8"

	"github.com/senyabanana/bid-engine/internal/models"
	"github.com/senyabanana/bid-engine/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BidService выполняет команды над предложениями. Каждая команда - ровно одна транзакция,
// все проверки читают состояние внутри нее.
type BidService struct {
	Store  repository.Store
	Logger *slog.Logger
	now    func() time.Time
}

// NewBidService создает новый экземпляр BidService.
func NewBidService(store repository.Store, logger *slog.Logger) *BidService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BidService{Store: store, Logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// PlaceBid создает новое предложение от имени компании вызывающего пользователя.
func (s *BidService) PlaceBid(ctx context.Context, callerId string, bidReq models.BidRequest) (*models.Bid, error) {
	ref, err := models.NewListingRef(bidReq.JobID, bidReq.ContractID)
	if err != nil {
		return nil, err
	}
	if bidReq.CompanyID == "" {
		return nil, models.NewInvalid("missing required fields")
	}
	if !isUUID(bidReq.CompanyID) {
		return nil, models.NewInvalid("invalid companyId")
	}
	if !isUUID(ref.ID) {
		return nil, models.NewNotFound("listing not found or inactive")
	}
	if err := validatePrice(bidReq.Price); err != nil {
		return nil, err
	}
	if err := validateNote(bidReq.Note); err != nil {
		return nil, err
	}

	var created *models.Bid
	err = s.Store.WithTx(ctx, func(repos repository.Repositories) error {
		listing, err := repos.Listings.GetListing(ctx, ref, true)
		if errors.Is(err, repository.ErrNotFound) {
			return models.NewNotFound("listing not found or inactive")
		}
		if err != nil {
			return err
		}
		if !listing.Active {
			return models.NewInvalidState("listing not found or inactive")
		}

		principal, err := resolvePrincipal(ctx, repos, callerId)
		if err != nil {
			return err
		}
		if !OwnsCompany(principal, bidReq.CompanyID) {
			return models.NewForbidden("you do not own this company")
		}

		duplicate, err := repos.Bids.HasActiveBid(ctx, ref, bidReq.CompanyID)
		if err != nil {
			return err
		}
		if duplicate {
			return models.NewInvalidState("duplicate bid")
		}

		var ownerUserCompanies []string
		if listing.OwnerUserID != "" {
			if ownerUserCompanies, err = repos.Owners.OwnedCompanies(ctx, listing.OwnerUserID); err != nil {
				return err
			}
		}
		if isSelfBid(principal, bidReq.CompanyID, listing, ownerUserCompanies) {
			return models.NewForbidden("cannot bid on own listing")
		}

		if listing.BelowMinimum(bidReq.Price) {
			return models.NewInvalidState("bid below minimum price")
		}

		now := s.now()
		bid := &models.Bid{
			ID:        uuid.New().String(),
			Price:     bidReq.Price.Round(models.PricePrecision),
			CompanyID: bidReq.CompanyID,
			Note:      bidReq.Note,
			Listing:   ref,
			CreatedAt: now,
			UpdatedAt: now,
		}
		bid.SetStatus(models.PendingBid)
		if err := repos.Bids.CreateBid(ctx, bid); err != nil {
			return err
		}
		if err := appendHistory(ctx, repos, bid, "", callerId); err != nil {
			return err
		}
		created = bid
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.InfoContext(ctx, "bid placed", "bidId", created.ID, "listing", ref.String(), "companyId", created.CompanyID)
	return created, nil
}

// AcceptBid принимает предложение и атомарно отклоняет остальные, снимает объявление с торгов,
// а для контракта - и все входящие в него работы.
func (s *BidService) AcceptBid(ctx context.Context, callerId, bidId string) (*models.Bid, error) {
	if !isUUID(bidId) {
		return nil, models.NewNotFound("bid not found")
	}

	var (
		accepted        *models.Bid
		declinedCount   int
		deactivatedJobs []string
	)
	err := s.Store.WithTx(ctx, func(repos repository.Repositories) error {
		bid, listing, snapshot, err := lockBid(ctx, repos, bidId)
		if err != nil {
			return err
		}

		principal, err := resolvePrincipal(ctx, repos, callerId)
		if err != nil {
			return err
		}
		if !CanActOnListing(principal, listing) {
			return models.NewForbidden("only the listing owner can accept a bid")
		}

		if bid.Status != models.PendingBid || !bid.Active {
			if snapshot == models.PendingBid {
				return models.NewConflict("bid was resolved by a concurrent accept")
			}
			return models.NewInvalidState("bid already resolved")
		}
		if !listing.Active {
			return models.NewInvalidState("listing inactive")
		}

		if err := s.applyTransition(ctx, repos, bid, EventAccept, callerId); err != nil {
			return err
		}
		if err := repos.Bids.MarkWinner(ctx, bid.ID); err != nil {
			if errors.Is(err, repository.ErrWinnerExists) {
				return models.NewConflict("listing already has an accepted bid")
			}
			return err
		}
		bid.IsWinner = true

		declined, err := s.declinePending(ctx, repos, listing.Ref, bid.ID, callerId)
		if err != nil {
			return err
		}
		declinedCount = declined

		if err := repos.Listings.DeactivateListing(ctx, listing.Ref); err != nil {
			return err
		}

		if listing.Ref.Kind == models.ContractListing && len(listing.MemberJobIDs) > 0 {
			if err := repos.Listings.DeactivateJobs(ctx, listing.MemberJobIDs); err != nil {
				return err
			}
			for _, jobId := range listing.MemberJobIDs {
				declined, err := s.declinePending(ctx, repos, models.JobRef(jobId), "", callerId)
				if err != nil {
					return err
				}
				declinedCount += declined
			}
			deactivatedJobs = listing.MemberJobIDs
		}

		accepted = bid
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.InfoContext(ctx, "bid accepted",
		"bidId", accepted.ID,
		"listing", accepted.Listing.String(),
		"declined", declinedCount,
		"deactivatedJobs", len(deactivatedJobs))
	return accepted, nil
}

// DeclineBid отклоняет одно предложение по решению владельца объявления.
func (s *BidService) DeclineBid(ctx context.Context, callerId, bidId string) (*models.Bid, error) {
	if !isUUID(bidId) {
		return nil, models.NewNotFound("bid not found")
	}

	var declined *models.Bid
	err := s.Store.WithTx(ctx, func(repos repository.Repositories) error {
		bid, listing, _, err := lockBid(ctx, repos, bidId)
		if err != nil {
			return err
		}

		principal, err := resolvePrincipal(ctx, repos, callerId)
		if err != nil {
			return err
		}
		if !CanActOnListing(principal, listing) {
			return models.NewForbidden("only the listing owner can decline a bid")
		}
		if bid.Status.IsTerminal() {
			return models.NewInvalidState(ErrBidNotUpdatable)
		}
		if !listing.Active {
			return models.NewInvalidState("listing inactive")
		}

		if err := s.applyTransition(ctx, repos, bid, EventDecline, callerId); err != nil {
			return err
		}
		declined = bid
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.InfoContext(ctx, "bid declined", "bidId", declined.ID, "listing", declined.Listing.String())
	return declined, nil
}

// UpdateBid меняет цену, комментарий или отзывает предложение по запросу компании-автора.
func (s *BidService) UpdateBid(ctx context.Context, callerId, bidId string, updateReq models.BidUpdateRequest) (*models.Bid, error) {
	if updateReq.IsEmpty() {
		return nil, models.NewInvalid("no valid fields to update")
	}
	if !isUUID(bidId) {
		return nil, models.NewNotFound("bid not found")
	}

	event := EventEdit
	if updateReq.Status != nil {
		status, err := ParseBidStatus(string(*updateReq.Status))
		if err != nil {
			return nil, models.NewInvalid(err.Error())
		}
		switch status {
		case models.AcceptedBid, models.DeclinedBid:
			return nil, models.NewInvalidState("bids can only be accepted or declined by the listing owner")
		case models.RetractedBid:
			event = EventRetract
		}
	}
	if updateReq.Price != nil {
		if err := validatePrice(*updateReq.Price); err != nil {
			return nil, err
		}
	}
	if updateReq.Note != nil {
		if err := validateNote(*updateReq.Note); err != nil {
			return nil, err
		}
	}

	updated, err := s.editOwnBid(ctx, callerId, bidId, event, func(_ repository.Repositories, bid *models.Bid, listing *models.Listing) error {
		if updateReq.Price != nil {
			if listing.BelowMinimum(*updateReq.Price) {
				return models.NewInvalidState("bid below minimum price")
			}
			bid.Price = updateReq.Price.Round(models.PricePrecision)
		}
		if updateReq.Note != nil {
			bid.Note = *updateReq.Note
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.InfoContext(ctx, "bid updated", "bidId", updated.ID, "status", updated.Status)
	return updated, nil
}

// RollbackBid возвращает цену и комментарий предложения к состоянию из записи журнала.
// Статус не меняется: откатить можно только ожидающее предложение.
func (s *BidService) RollbackBid(ctx context.Context, callerId, bidId, historyId string) (*models.Bid, error) {
	if !isUUID(bidId) {
		return nil, models.NewNotFound("bid not found")
	}
	if !isUUID(historyId) {
		return nil, models.NewNotFound("history entry not found")
	}

	restored, err := s.editOwnBid(ctx, callerId, bidId, EventEdit, func(repos repository.Repositories, bid *models.Bid, listing *models.Listing) error {
		history, err := repos.Bids.GetBidHistory(ctx, bid.ID)
		if err != nil {
			return err
		}
		idx := slices.IndexFunc(history, func(h models.BidHistory) bool { return h.ID == historyId })
		if idx < 0 {
			return models.NewNotFound("history entry not found")
		}
		entry := history[idx]
		if listing.BelowMinimum(entry.Price) {
			return models.NewInvalidState("bid below minimum price")
		}
		bid.Price = entry.Price
		bid.Note = entry.Note
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.InfoContext(ctx, "bid rolled back", "bidId", restored.ID, "historyId", historyId)
	return restored, nil
}

// editOwnBid применяет изменение компании-автора к ожидающему предложению на активном объявлении.
func (s *BidService) editOwnBid(
	ctx context.Context,
	callerId, bidId string,
	event BidEvent,
	mutate func(repos repository.Repositories, bid *models.Bid, listing *models.Listing) error,
) (*models.Bid, error) {
	var updated *models.Bid
	err := s.Store.WithTx(ctx, func(repos repository.Repositories) error {
		bid, listing, _, err := lockBid(ctx, repos, bidId)
		if err != nil {
			return err
		}

		principal, err := resolvePrincipal(ctx, repos, callerId)
		if err != nil {
			return err
		}
		if !OwnsCompany(principal, bid.CompanyID) {
			return models.NewForbidden("you do not own the bidding company")
		}
		if bid.Status.IsTerminal() {
			return models.NewInvalidState(ErrBidNotUpdatable)
		}
		if !listing.Active {
			return models.NewInvalidState("listing inactive")
		}

		if err := mutate(repos, bid, listing); err != nil {
			return err
		}
		if err := s.applyTransition(ctx, repos, bid, event, callerId); err != nil {
			return err
		}
		updated = bid
		return nil
	})
	return updated, err
}

// DeleteBid отзывает ожидающее предложение (мягкое удаление: retracted, active=false).
func (s *BidService) DeleteBid(ctx context.Context, callerId, bidId string) error {
	if !isUUID(bidId) {
		return models.NewNotFound("bid not found")
	}

	err := s.Store.WithTx(ctx, func(repos repository.Repositories) error {
		bid, listing, _, err := lockBid(ctx, repos, bidId)
		if err != nil {
			return err
		}

		principal, err := resolvePrincipal(ctx, repos, callerId)
		if err != nil {
			return err
		}
		if !OwnsCompany(principal, bid.CompanyID) {
			return models.NewForbidden("you do not own the bidding company")
		}
		if bid.Status != models.PendingBid {
			return models.NewInvalidState("only pending bids can be deleted")
		}
		if !listing.Active {
			return models.NewInvalidState("listing inactive")
		}

		return s.applyTransition(ctx, repos, bid, EventRetract, callerId)
	})
	if err != nil {
		return err
	}

	s.Logger.InfoContext(ctx, "bid retracted", "bidId", bidId)
	return nil
}

// GetBid возвращает предложение компании-автору или владельцу объявления.
func (s *BidService) GetBid(ctx context.Context, callerId, bidId string) (*models.Bid, error) {
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
	return bid, nil
}

// lockBid читает предложение, блокирует строку его объявления и перечитывает предложение под блокировкой.
// Возвращает также статус предложения до ожидания блокировки.
func lockBid(ctx context.Context, repos repository.Repositories, bidId string) (*models.Bid, *models.Listing, models.BidStatus, error) {
	snapshot, err := repos.Bids.GetBid(ctx, bidId, false)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, "", models.NewNotFound("bid not found")
	}
	if err != nil {
		return nil, nil, "", err
	}

	listing, err := repos.Listings.GetListing(ctx, snapshot.Listing, true)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, "", models.NewNotFound("listing not found")
	}
	if err != nil {
		return nil, nil, "", err
	}

	bid, err := repos.Bids.GetBid(ctx, bidId, true)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, "", models.NewNotFound("bid not found")
	}
	if err != nil {
		return nil, nil, "", err
	}
	return bid, listing, snapshot.Status, nil
}

// applyTransition применяет событие к предложению, сохраняет его и пишет запись в журнал.
func (s *BidService) applyTransition(ctx context.Context, repos repository.Repositories, bid *models.Bid, event BidEvent, actorId string) error {
	next, err := Transition(bid.Status, event)
	if err != nil {
		return err
	}
	from := bid.Status
	bid.SetStatus(next)
	bid.UpdatedAt = s.now()
	if err := repos.Bids.UpdateBid(ctx, bid); err != nil {
		return err
	}
	return appendHistory(ctx, repos, bid, from, actorId)
}

// declinePending отклоняет ожидающие предложения объявления и пишет их в журнал.
func (s *BidService) declinePending(ctx context.Context, repos repository.Repositories, ref models.ListingRef, exceptBidId, actorId string) (int, error) {
	declined, err := repos.Bids.DeclinePendingBids(ctx, ref, exceptBidId)
	if err != nil {
		return 0, err
	}
	for i := range declined {
		if err := appendHistory(ctx, repos, &declined[i], models.PendingBid, actorId); err != nil {
			return 0, err
		}
	}
	return len(declined), nil
}

func appendHistory(ctx context.Context, repos repository.Repositories, bid *models.Bid, from models.BidStatus, actorId string) error {
	return repos.Bids.AppendHistory(ctx, models.BidHistory{
		ID:          uuid.New().String(),
		BidID:       bid.ID,
		FromStatus:  from,
		ToStatus:    bid.Status,
		Price:       bid.Price,
		Note:        bid.Note,
		ActorUserID: actorId,
		CreatedAt:   bid.UpdatedAt,
	})
}

// resolvePrincipal заново получает компании пользователя в текущей области видимости.
func resolvePrincipal(ctx context.Context, repos repository.Repositories, callerId string) (models.Principal, error) {
	if callerId == "" {
		return models.Principal{}, models.NewErrorResponse(models.KindUnauthorized, "user is not authenticated")
	}
	companies, err := repos.Owners.OwnedCompanies(ctx, callerId)
	if err != nil {
		return models.Principal{}, err
	}
	return models.NewPrincipal(callerId, companies...), nil
}

func validatePrice(price decimal.Decimal) error {
	if !price.IsPositive() {
		return models.NewInvalid("price must be positive")
	}
	if !price.Equal(price.Round(models.PricePrecision)) {
		return models.NewInvalid("price must have at most two decimal places")
	}
	if price.GreaterThan(models.MaxPrice) {
		return models.NewInvalid("price must not exceed " + models.MaxPrice.StringFixed(models.PricePrecision))
	}
	return nil
}

func validateNote(note string) error {
	if utf8.RuneCountInString(note) > models.MaxNoteLength {
		return models.NewInvalid("note is too long")
	}
	return nil
}

// isUUID принимает только каноническую запись 8-4-4-4-12.
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil && len(id) == 36
}
