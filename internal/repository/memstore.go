package repository

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/senyabanana/bid-engine/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	_ Store               = (*MemoryStore)(nil)
	_ Store               = (*PostgresStore)(nil)
	_ BidRepository       = (*memRepo)(nil)
	_ ListingRepository   = (*memRepo)(nil)
	_ OwnershipRepository = (*memRepo)(nil)
)

type memState struct {
	bids     map[string]models.Bid
	history  []models.BidHistory
	listings map[models.ListingRef]models.Listing
	added    map[models.ListingRef]int // порядок добавления, как created_at в SQL
	owners   map[string][]string
}

func (s *memState) clone() *memState {
	return &memState{
		bids:     maps.Clone(s.bids),
		history:  slices.Clone(s.history),
		listings: maps.Clone(s.listings),
		added:    maps.Clone(s.added),
		owners:   maps.Clone(s.owners),
	}
}

// MemoryStore - реализация Store в памяти. Транзакции выполняются строго по очереди,
// откат отбрасывает копию состояния, снятую в начале транзакции.
type MemoryStore struct {
	mu    sync.Mutex
	state *memState
}

// NewMemoryStore создает пустое хранилище.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: &memState{
		bids:     make(map[string]models.Bid),
		listings: make(map[models.ListingRef]models.Listing),
		added:    make(map[models.ListingRef]int),
		owners:   make(map[string][]string),
	}}
}

// AddListing добавляет или заменяет работу или контракт. Состав контракта вычисляется
// по ContractID работ при чтении, поэтому порядок добавления не важен.
func (s *MemoryStore) AddListing(listing models.Listing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	listing.MemberJobIDs = nil
	s.state.listings[listing.Ref] = listing
	if _, ok := s.state.added[listing.Ref]; !ok {
		s.state.added[listing.Ref] = len(s.state.added)
	}
}

// AddOwner делает пользователя владельцем компании.
func (s *MemoryStore) AddOwner(userId, companyId string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.owners[userId] = append(slices.Clone(s.state.owners[userId]), companyId)
}

// Repos возвращает репозитории, каждая операция которых - отдельная транзакция.
func (s *MemoryStore) Repos() Repositories {
	return (&memRepo{store: s}).repositories()
}

// WithTx выполняет fn над копией состояния и публикует ее только при успехе.
func (s *MemoryStore) WithTx(ctx context.Context, fn func(repos Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	tx := s.state.clone()
	if err := fn((&memRepo{store: s, tx: tx}).repositories()); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = tx
	return nil
}

type memRepo struct {
	store *MemoryStore
	tx    *memState
}

func (r *memRepo) repositories() Repositories {
	return Repositories{Bids: r, Listings: r, Owners: r}
}

func (r *memRepo) with(fn func(s *memState) error) error {
	if r.tx != nil {
		return fn(r.tx)
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return fn(r.store.state)
}

func (r *memRepo) CreateBid(ctx context.Context, bid *models.Bid) error {
	return r.with(func(s *memState) error {
		if _, ok := s.listings[bid.Listing]; !ok {
			return ErrNotFound
		}
		if _, ok := s.bids[bid.ID]; ok {
			return errors.New("duplicate bid id")
		}
		s.bids[bid.ID] = *bid
		return nil
	})
}

func (r *memRepo) GetBid(ctx context.Context, bidId string, forUpdate bool) (*models.Bid, error) {
	var bid models.Bid
	err := r.with(func(s *memState) error {
		b, ok := s.bids[bidId]
		if !ok {
			return ErrNotFound
		}
		bid = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &bid, nil
}

func (r *memRepo) HasActiveBid(ctx context.Context, ref models.ListingRef, companyId string) (bool, error) {
	var exists bool
	err := r.with(func(s *memState) error {
		for _, b := range s.bids {
			if b.Listing == ref && b.CompanyID == companyId && b.Active {
				exists = true
				return nil
			}
		}
		return nil
	})
	return exists, err
}

func (r *memRepo) UpdateBid(ctx context.Context, bid *models.Bid) error {
	return r.with(func(s *memState) error {
		current, ok := s.bids[bid.ID]
		if !ok {
			return ErrNotFound
		}
		current.Price = bid.Price
		current.Note = bid.Note
		current.Status = bid.Status
		current.Active = bid.Active
		current.UpdatedAt = bid.UpdatedAt
		s.bids[bid.ID] = current
		return nil
	})
}

func (r *memRepo) MarkWinner(ctx context.Context, bidId string) error {
	return r.with(func(s *memState) error {
		bid, ok := s.bids[bidId]
		if !ok {
			return ErrNotFound
		}
		for id, other := range s.bids {
			if id != bidId && other.Listing == bid.Listing && other.IsWinner {
				return ErrWinnerExists
			}
		}
		bid.IsWinner = true
		s.bids[bidId] = bid
		return nil
	})
}

func (r *memRepo) DeclinePendingBids(ctx context.Context, ref models.ListingRef, exceptBidId string) ([]models.Bid, error) {
	var declined []models.Bid
	err := r.with(func(s *memState) error {
		now := time.Now().UTC()
		for id, b := range s.bids {
			if id == exceptBidId || b.Listing != ref || b.Status != models.PendingBid {
				continue
			}
			b.SetStatus(models.DeclinedBid)
			b.UpdatedAt = now
			s.bids[id] = b
			declined = append(declined, b)
		}
		return nil
	})
	sortBids(declined)
	return declined, err
}

func (r *memRepo) AppendHistory(ctx context.Context, entry models.BidHistory) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	return r.with(func(s *memState) error {
		s.history = append(s.history, entry)
		return nil
	})
}

func (r *memRepo) GetBidHistory(ctx context.Context, bidId string) ([]models.BidHistory, error) {
	history := make([]models.BidHistory, 0)
	err := r.with(func(s *memState) error {
		for _, h := range s.history {
			if h.BidID == bidId {
				history = append(history, h)
			}
		}
		return nil
	})
	return history, err
}

func (r *memRepo) GetListingBids(ctx context.Context, ref models.ListingRef, limit, offset int) ([]models.Bid, error) {
	bids := r.filterBids(func(b models.Bid) bool { return b.Listing == ref })
	sort.SliceStable(bids, func(i, j int) bool {
		if !bids[i].Price.Equal(bids[j].Price) {
			return bids[i].Price.LessThan(bids[j].Price)
		}
		return bids[i].CreatedAt.Before(bids[j].CreatedAt)
	})
	return page(bids, limit, offset), nil
}

func (r *memRepo) GetCompanyBids(ctx context.Context, companyId string, limit, offset int) ([]models.Bid, error) {
	bids := r.filterBids(func(b models.Bid) bool { return b.CompanyID == companyId })
	sortBids(bids)
	slices.Reverse(bids)
	return page(bids, limit, offset), nil
}

func (r *memRepo) StatsForListing(ctx context.Context, ref models.ListingRef, filter models.StatsFilter) (*models.BidStats, error) {
	bids := r.filterBids(func(b models.Bid) bool {
		if b.Listing != ref {
			return false
		}
		if filter.From != nil && b.CreatedAt.Before(*filter.From) {
			return false
		}
		if filter.To != nil && !b.CreatedAt.Before(*filter.To) {
			return false
		}
		return filter.Status == nil || b.Status == *filter.Status
	})
	return computeStats(bids), nil
}

func (r *memRepo) filterBids(keep func(models.Bid) bool) []models.Bid {
	bids := make([]models.Bid, 0)
	_ = r.with(func(s *memState) error {
		for _, b := range s.bids {
			if keep(b) {
				bids = append(bids, b)
			}
		}
		return nil
	})
	return bids
}

func (r *memRepo) GetListing(ctx context.Context, ref models.ListingRef, forUpdate bool) (*models.Listing, error) {
	var listing models.Listing
	err := r.with(func(s *memState) error {
		l, ok := s.listings[ref]
		if !ok {
			return ErrNotFound
		}
		listing = l
		if ref.Kind == models.ContractListing {
			listing.MemberJobIDs = s.memberJobs(ref.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

func (s *memState) memberJobs(contractId string) []string {
	var jobs []models.ListingRef
	for ref, l := range s.listings {
		if ref.Kind == models.JobListing && l.ContractID == contractId {
			jobs = append(jobs, ref)
		}
	}
	sort.Slice(jobs, func(i, j int) bool { return s.added[jobs[i]] < s.added[jobs[j]] })

	ids := make([]string, 0, len(jobs))
	for _, ref := range jobs {
		ids = append(ids, ref.ID)
	}
	return ids
}

func (r *memRepo) DeactivateListing(ctx context.Context, ref models.ListingRef) error {
	return r.with(func(s *memState) error {
		l, ok := s.listings[ref]
		if !ok {
			return ErrNotFound
		}
		l.Active = false
		s.listings[ref] = l
		return nil
	})
}

func (r *memRepo) DeactivateJobs(ctx context.Context, jobIds []string) error {
	return r.with(func(s *memState) error {
		for _, id := range jobIds {
			ref := models.JobRef(id)
			if l, ok := s.listings[ref]; ok {
				l.Active = false
				s.listings[ref] = l
			}
		}
		return nil
	})
}

func (r *memRepo) OwnedCompanies(ctx context.Context, userId string) ([]string, error) {
	var companies []string
	err := r.with(func(s *memState) error {
		companies = slices.Clone(s.owners[userId])
		return nil
	})
	slices.Sort(companies)
	return companies, err
}

func sortBids(bids []models.Bid) {
	sort.SliceStable(bids, func(i, j int) bool {
		if bids[i].CreatedAt.Equal(bids[j].CreatedAt) {
			return bids[i].ID < bids[j].ID
		}
		return bids[i].CreatedAt.Before(bids[j].CreatedAt)
	})
}

func page(bids []models.Bid, limit, offset int) []models.Bid {
	if offset >= len(bids) {
		return []models.Bid{}
	}
	end := len(bids)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return bids[offset:end]
}

// computeStats считает ту же статистику, что и SQL-версия: медиану, среднее, экстремумы и средние по дням (UTC).
func computeStats(bids []models.Bid) *models.BidStats {
	stats := &models.BidStats{DailyAverages: make([]models.DailyBidAverage, 0)}
	if len(bids) == 0 {
		return stats
	}

	prices := make([]decimal.Decimal, 0, len(bids))
	for _, b := range bids {
		prices = append(prices, b.Price)
	}
	sort.Slice(prices, func(i, j int) bool { return prices[i].LessThan(prices[j]) })

	n := len(prices)
	stats.Count = int64(n)
	stats.Min = prices[0]
	stats.Max = prices[n-1]
	if n%2 == 1 {
		stats.Median = prices[n/2]
	} else {
		stats.Median = prices[n/2-1].Add(prices[n/2]).Div(decimal.NewFromInt(2)).Round(models.PricePrecision)
	}
	stats.Average = decimal.Sum(prices[0], prices[1:]...).Div(decimal.NewFromInt(int64(n))).Round(models.PricePrecision)

	type dayAgg struct {
		sum   decimal.Decimal
		count int64
	}
	days := make(map[time.Time]*dayAgg)
	for _, b := range bids {
		day := b.CreatedAt.UTC().Truncate(24 * time.Hour)
		agg, ok := days[day]
		if !ok {
			agg = &dayAgg{}
			days[day] = agg
		}
		agg.sum = agg.sum.Add(b.Price)
		agg.count++
	}
	for day, agg := range days {
		stats.DailyAverages = append(stats.DailyAverages, models.DailyBidAverage{
			Day:     day,
			Average: agg.sum.Div(decimal.NewFromInt(agg.count)).Round(models.PricePrecision),
			Count:   agg.count,
		})
	}
	sort.Slice(stats.DailyAverages, func(i, j int) bool {
		return stats.DailyAverages[i].Day.Before(stats.DailyAverages[j].Day)
	})
	return stats
}
