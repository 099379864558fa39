package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/senyabanana/bid-engine/internal/models"

	"github.com/google/uuid"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"
)

func newTestBid(ref models.ListingRef, companyId, price string, createdAt time.Time) *models.Bid {
	bid := &models.Bid{
		ID:        uuid.NewString(),
		Price:     decimal.RequireFromString(price),
		CompanyID: companyId,
		Listing:   ref,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	bid.SetStatus(models.PendingBid)
	return bid
}

func TestMemoryStoreRollsBackOnError(t *testing.T) {
	store := NewMemoryStore()
	job := models.JobRef(uuid.NewString())
	store.AddListing(models.Listing{Ref: job, Active: true})
	ctx := context.Background()
	boom := errors.New("boom")

	bid := newTestBid(job, uuid.NewString(), "10", time.Now())
	err := store.WithTx(ctx, func(repos Repositories) error {
		assert.NoError(t, repos.Bids.CreateBid(ctx, bid))
		assert.NoError(t, repos.Listings.DeactivateListing(ctx, job))
		return boom
	})
	check.True(t, errors.Is(err, boom))

	_, err = store.Repos().Bids.GetBid(ctx, bid.ID, false)
	check.True(t, errors.Is(err, ErrNotFound))
	listing, err := store.Repos().Listings.GetListing(ctx, job, false)
	assert.NoError(t, err)
	check.True(t, listing.Active)
}

func TestMemoryStoreRollsBackOnCancelledContext(t *testing.T) {
	store := NewMemoryStore()
	job := models.JobRef(uuid.NewString())
	store.AddListing(models.Listing{Ref: job, Active: true})
	ctx, cancel := context.WithCancel(context.Background())

	err := store.WithTx(ctx, func(repos Repositories) error {
		cancel()
		return repos.Listings.DeactivateListing(ctx, job)
	})
	check.True(t, errors.Is(err, context.Canceled))

	listing, err := store.Repos().Listings.GetListing(context.Background(), job, false)
	assert.NoError(t, err)
	check.True(t, listing.Active)
}

func TestMemoryStoreMarkWinnerIsExclusive(t *testing.T) {
	store := NewMemoryStore()
	job := models.JobRef(uuid.NewString())
	store.AddListing(models.Listing{Ref: job, Active: true})
	ctx := context.Background()
	repos := store.Repos()

	first := newTestBid(job, uuid.NewString(), "10", time.Now())
	second := newTestBid(job, uuid.NewString(), "20", time.Now())
	assert.NoError(t, repos.Bids.CreateBid(ctx, first))
	assert.NoError(t, repos.Bids.CreateBid(ctx, second))

	assert.NoError(t, repos.Bids.MarkWinner(ctx, first.ID))
	assert.NoError(t, repos.Bids.MarkWinner(ctx, first.ID))
	check.True(t, errors.Is(repos.Bids.MarkWinner(ctx, second.ID), ErrWinnerExists))
	check.True(t, errors.Is(repos.Bids.MarkWinner(ctx, uuid.NewString()), ErrNotFound))
}

func TestMemoryStoreDeclinePendingBids(t *testing.T) {
	store := NewMemoryStore()
	job := models.JobRef(uuid.NewString())
	other := models.JobRef(uuid.NewString())
	store.AddListing(models.Listing{Ref: job, Active: true})
	store.AddListing(models.Listing{Ref: other, Active: true})
	ctx := context.Background()
	repos := store.Repos()

	now := time.Now()
	keep := newTestBid(job, uuid.NewString(), "10", now)
	pending := newTestBid(job, uuid.NewString(), "20", now.Add(time.Second))
	retracted := newTestBid(job, uuid.NewString(), "30", now.Add(2*time.Second))
	retracted.SetStatus(models.RetractedBid)
	elsewhere := newTestBid(other, uuid.NewString(), "40", now)
	for _, b := range []*models.Bid{keep, pending, retracted, elsewhere} {
		assert.NoError(t, repos.Bids.CreateBid(ctx, b))
	}

	declined, err := repos.Bids.DeclinePendingBids(ctx, job, keep.ID)
	assert.NoError(t, err)
	assert.Equal(t, 1, len(declined))
	check.Equal(t, pending.ID, declined[0].ID)
	check.Equal(t, models.DeclinedBid, declined[0].Status)
	check.False(t, declined[0].Active)

	got, err := repos.Bids.GetBid(ctx, retracted.ID, false)
	assert.NoError(t, err)
	check.Equal(t, models.RetractedBid, got.Status)
	got, err = repos.Bids.GetBid(ctx, elsewhere.ID, false)
	assert.NoError(t, err)
	check.Equal(t, models.PendingBid, got.Status)
}

func TestMemoryStoreContractMembers(t *testing.T) {
	store := NewMemoryStore()
	contract := models.ContractRef(uuid.NewString())
	store.AddListing(models.Listing{Ref: contract, Active: true})
	j1, j2 := uuid.NewString(), uuid.NewString()
	store.AddListing(models.Listing{Ref: models.JobRef(j1), Active: true, ContractID: contract.ID})
	store.AddListing(models.Listing{Ref: models.JobRef(j2), Active: true, ContractID: contract.ID})
	ctx := context.Background()

	listing, err := store.Repos().Listings.GetListing(ctx, contract, true)
	assert.NoError(t, err)
	check.Equal(t, []string{j1, j2}, listing.MemberJobIDs)

	assert.NoError(t, store.Repos().Listings.DeactivateJobs(ctx, listing.MemberJobIDs))
	for _, id := range []string{j1, j2} {
		job, err := store.Repos().Listings.GetListing(ctx, models.JobRef(id), false)
		assert.NoError(t, err)
		check.False(t, job.Active)
	}
}

func TestMemoryStoreContractMembersAddedFirst(t *testing.T) {
	store := NewMemoryStore()
	contract := models.ContractRef(uuid.NewString())
	j1, j2 := uuid.NewString(), uuid.NewString()
	store.AddListing(models.Listing{Ref: models.JobRef(j1), Active: true, ContractID: contract.ID})
	store.AddListing(models.Listing{Ref: contract, Active: true})
	store.AddListing(models.Listing{Ref: models.JobRef(j2), Active: true, ContractID: contract.ID})
	store.AddListing(models.Listing{Ref: models.JobRef(uuid.NewString()), Active: true})
	ctx := context.Background()

	listing, err := store.Repos().Listings.GetListing(ctx, contract, false)
	assert.NoError(t, err)
	check.Equal(t, []string{j1, j2}, listing.MemberJobIDs)

	store.AddListing(models.Listing{Ref: contract, Title: "renamed", Active: true})
	listing, err = store.Repos().Listings.GetListing(ctx, contract, false)
	assert.NoError(t, err)
	check.Equal(t, "renamed", listing.Title)
	check.Equal(t, []string{j1, j2}, listing.MemberJobIDs)

	err = store.WithTx(ctx, func(repos Repositories) error {
		listing, err := repos.Listings.GetListing(ctx, contract, true)
		if err != nil {
			return err
		}
		check.Equal(t, []string{j1, j2}, listing.MemberJobIDs)
		return nil
	})
	assert.NoError(t, err)
}

func TestComputeStats(t *testing.T) {
	day1 := time.Date(2024, 5, 1, 23, 30, 0, 0, time.UTC)
	day2 := time.Date(2024, 5, 2, 0, 30, 0, 0, time.UTC)
	ref := models.JobRef("j")
	bids := []models.Bid{
		*newTestBid(ref, "a", "100.00", day1),
		*newTestBid(ref, "b", "150.50", day1),
		*newTestBid(ref, "c", "300.00", day2),
		*newTestBid(ref, "d", "10.01", day2),
	}

	stats := computeStats(bids)
	check.Equal(t, int64(4), stats.Count)
	check.Equal(t, "125.25", stats.Median.StringFixed(2))
	check.Equal(t, "140.13", stats.Average.StringFixed(2))
	check.Equal(t, "10.01", stats.Min.StringFixed(2))
	check.Equal(t, "300.00", stats.Max.StringFixed(2))

	assert.Equal(t, 2, len(stats.DailyAverages))
	check.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), stats.DailyAverages[0].Day)
	check.Equal(t, "125.25", stats.DailyAverages[0].Average.StringFixed(2))
	check.Equal(t, int64(2), stats.DailyAverages[0].Count)
	check.Equal(t, "155.01", stats.DailyAverages[1].Average.StringFixed(2))

	empty := computeStats(nil)
	check.Equal(t, int64(0), empty.Count)
	check.Equal(t, 0, len(empty.DailyAverages))
}

func TestPage(t *testing.T) {
	bids := make([]models.Bid, 7)
	check.Equal(t, 5, len(page(bids, 5, 0)))
	check.Equal(t, 2, len(page(bids, 5, 5)))
	check.Equal(t, 0, len(page(bids, 5, 7)))
	check.Equal(t, 7, len(page(bids, 0, 0)))
}
