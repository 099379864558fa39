package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/senyabanana/bid-engine/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// BidRepository - интерфейс для работы с предложениями и их привязкой к объявлениям.
type BidRepository interface {
	CreateBid(ctx context.Context, bid *models.Bid) error
	GetBid(ctx context.Context, bidId string, forUpdate bool) (*models.Bid, error)
	HasActiveBid(ctx context.Context, ref models.ListingRef, companyId string) (bool, error)
	UpdateBid(ctx context.Context, bid *models.Bid) error
	MarkWinner(ctx context.Context, bidId string) error
	DeclinePendingBids(ctx context.Context, ref models.ListingRef, exceptBidId string) ([]models.Bid, error)
	AppendHistory(ctx context.Context, entry models.BidHistory) error
	GetBidHistory(ctx context.Context, bidId string) ([]models.BidHistory, error)
	GetListingBids(ctx context.Context, ref models.ListingRef, limit, offset int) ([]models.Bid, error)
	GetCompanyBids(ctx context.Context, companyId string, limit, offset int) ([]models.Bid, error)
	StatsForListing(ctx context.Context, ref models.ListingRef, filter models.StatsFilter) (*models.BidStats, error)
}

// PostgresBidRepository - реализация BidRepository для базы данных.
type PostgresBidRepository struct {
	DB DBTX
}

// NewPostgresBidRepository создает новый экземпляр PostgresBidRepository.
func NewPostgresBidRepository(db DBTX) *PostgresBidRepository {
	return &PostgresBidRepository{DB: db}
}

const bidColumns = `b.id::text, b.price::text, b.company_id::text, b.note, b.status, b.active,
	COALESCE(l.job_id::text, ''), COALESCE(l.contract_id::text, ''), l.is_winner, b.created_at, b.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBid(row rowScanner) (*models.Bid, error) {
	var (
		bid        models.Bid
		jobId      string
		contractId string
	)
	if err := row.Scan(
		&bid.ID,
		&bid.Price,
		&bid.CompanyID,
		&bid.Note,
		&bid.Status,
		&bid.Active,
		&jobId,
		&contractId,
		&bid.IsWinner,
		&bid.CreatedAt,
		&bid.UpdatedAt); err != nil {
		return nil, err
	}
	if jobId != "" {
		bid.Listing = models.JobRef(jobId)
	} else {
		bid.Listing = models.ContractRef(contractId)
	}
	return &bid, nil
}

// linkColumn возвращает колонку bid_listing_link для типа объявления.
func linkColumn(ref models.ListingRef) (string, error) {
	switch ref.Kind {
	case models.JobListing:
		return "l.job_id", nil
	case models.ContractListing:
		return "l.contract_id", nil
	}
	return "", fmt.Errorf("unknown listing kind %q", ref.Kind)
}

// CreateBid создает предложение и его привязку к объявлению.
func (r *PostgresBidRepository) CreateBid(ctx context.Context, bid *models.Bid) error {
	insertBidQuery := `INSERT INTO bids (id, price, company_id, note, status, active, created_at, updated_at)
                   VALUES ($1, $2::numeric, $3, $4, $5, $6, $7, $8)`
	_, err := r.DB.Exec(
		ctx,
		insertBidQuery,
		bid.ID,
		bid.Price.StringFixed(models.PricePrecision),
		bid.CompanyID,
		bid.Note,
		bid.Status,
		bid.Active,
		bid.CreatedAt,
		bid.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert bid: %w", err)
	}

	var jobId, contractId *string
	switch bid.Listing.Kind {
	case models.JobListing:
		jobId = &bid.Listing.ID
	case models.ContractListing:
		contractId = &bid.Listing.ID
	default:
		return fmt.Errorf("unknown listing kind %q", bid.Listing.Kind)
	}
	insertLinkQuery := `INSERT INTO bid_listing_link (bid_id, job_id, contract_id, is_winner) VALUES ($1, $2, $3, false)`
	if _, err = r.DB.Exec(ctx, insertLinkQuery, bid.ID, jobId, contractId); err != nil {
		return fmt.Errorf("insert bid link: %w", err)
	}
	return nil
}

// GetBid возвращает предложение вместе с привязкой; при forUpdate строка предложения блокируется.
func (r *PostgresBidRepository) GetBid(ctx context.Context, bidId string, forUpdate bool) (*models.Bid, error) {
	query := `SELECT ` + bidColumns + `
		FROM bids b
		JOIN bid_listing_link l ON l.bid_id = b.id
		WHERE b.id = $1`
	if forUpdate {
		query += " FOR UPDATE OF b"
	}
	bid, err := scanBid(r.DB.QueryRow(ctx, query, bidId))
	if err != nil {
		return nil, notFound(err)
	}
	return bid, nil
}

// HasActiveBid проверяет, есть ли у компании активное предложение на объявление.
func (r *PostgresBidRepository) HasActiveBid(ctx context.Context, ref models.ListingRef, companyId string) (bool, error) {
	column, err := linkColumn(ref)
	if err != nil {
		return false, err
	}
	var exists bool
	query := `SELECT EXISTS(
			SELECT 1
			FROM bids b
			JOIN bid_listing_link l ON l.bid_id = b.id
			WHERE ` + column + ` = $1 AND b.company_id = $2 AND b.active
		)`
	err = r.DB.QueryRow(ctx, query, ref.ID, companyId).Scan(&exists)
	return exists, err
}

// UpdateBid сохраняет изменяемые поля предложения.
func (r *PostgresBidRepository) UpdateBid(ctx context.Context, bid *models.Bid) error {
	updateQuery := `UPDATE bids SET price = $2::numeric, note = $3, status = $4, active = $5, updated_at = $6 WHERE id = $1`
	tag, err := r.DB.Exec(
		ctx,
		updateQuery,
		bid.ID,
		bid.Price.StringFixed(models.PricePrecision),
		bid.Note,
		bid.Status,
		bid.Active,
		bid.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update bid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkWinner помечает привязку предложения как выигравшую.
func (r *PostgresBidRepository) MarkWinner(ctx context.Context, bidId string) error {
	tag, err := r.DB.Exec(ctx, `UPDATE bid_listing_link SET is_winner = true WHERE bid_id = $1`, bidId)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrWinnerExists
		}
		return fmt.Errorf("mark winner: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeclinePendingBids отклоняет все ожидающие предложения объявления, кроме exceptBidId.
func (r *PostgresBidRepository) DeclinePendingBids(ctx context.Context, ref models.ListingRef, exceptBidId string) ([]models.Bid, error) {
	column, err := linkColumn(ref)
	if err != nil {
		return nil, err
	}
	query := `
		UPDATE bids b
		SET status = $1, active = false, updated_at = $2
		FROM bid_listing_link l
		WHERE l.bid_id = b.id
		AND ` + column + ` = $3
		AND b.status = $4
		AND b.id::text <> $5
		RETURNING ` + bidColumns
	rows, err := r.DB.Query(ctx, query, models.DeclinedBid, time.Now().UTC(), ref.ID, models.PendingBid, exceptBidId)
	if err != nil {
		return nil, fmt.Errorf("decline pending bids: %w", err)
	}
	defer rows.Close()

	var declined []models.Bid
	for rows.Next() {
		bid, err := scanBid(rows)
		if err != nil {
			return nil, err
		}
		declined = append(declined, *bid)
	}
	return declined, rows.Err()
}

// AppendHistory добавляет запись в журнал изменений предложения.
func (r *PostgresBidRepository) AppendHistory(ctx context.Context, entry models.BidHistory) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	historyInsertQuery := `INSERT INTO bid_history (id, bid_id, from_status, to_status, price, note, actor_user_id, created_at)
                          VALUES ($1, $2, NULLIF($3, ''), $4, $5::numeric, $6, NULLIF($7, ''), $8)`
	_, err := r.DB.Exec(
		ctx,
		historyInsertQuery,
		entry.ID,
		entry.BidID,
		entry.FromStatus,
		entry.ToStatus,
		entry.Price.StringFixed(models.PricePrecision),
		entry.Note,
		entry.ActorUserID,
		entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert bid history: %w", err)
	}
	return nil
}

// GetBidHistory возвращает журнал изменений предложения в хронологическом порядке.
func (r *PostgresBidRepository) GetBidHistory(ctx context.Context, bidId string) ([]models.BidHistory, error) {
	query := `
		SELECT id::text, bid_id::text, COALESCE(from_status, ''), to_status, price::text, note, COALESCE(actor_user_id, ''), created_at
		FROM bid_history
		WHERE bid_id = $1
		ORDER BY created_at, seq`
	rows, err := r.DB.Query(ctx, query, bidId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := make([]models.BidHistory, 0)
	for rows.Next() {
		var h models.BidHistory
		if err := rows.Scan(
			&h.ID,
			&h.BidID,
			&h.FromStatus,
			&h.ToStatus,
			&h.Price,
			&h.Note,
			&h.ActorUserID,
			&h.CreatedAt); err != nil {
			return nil, err
		}
		history = append(history, h)
	}
	return history, rows.Err()
}

// GetListingBids возвращает список предложений для объявления.
func (r *PostgresBidRepository) GetListingBids(ctx context.Context, ref models.ListingRef, limit, offset int) ([]models.Bid, error) {
	column, err := linkColumn(ref)
	if err != nil {
		return nil, err
	}
	query := `
		SELECT ` + bidColumns + `
		FROM bids b
		JOIN bid_listing_link l ON l.bid_id = b.id
		WHERE ` + column + ` = $1
		ORDER BY b.price, b.created_at
		LIMIT $2 OFFSET $3`
	return r.queryBids(ctx, query, ref.ID, limit, offset)
}

// GetCompanyBids возвращает список предложений компании.
func (r *PostgresBidRepository) GetCompanyBids(ctx context.Context, companyId string, limit, offset int) ([]models.Bid, error) {
	query := `
		SELECT ` + bidColumns + `
		FROM bids b
		JOIN bid_listing_link l ON l.bid_id = b.id
		WHERE b.company_id = $1
		ORDER BY b.created_at DESC
		LIMIT $2 OFFSET $3`
	return r.queryBids(ctx, query, companyId, limit, offset)
}

func (r *PostgresBidRepository) queryBids(ctx context.Context, query string, args ...any) ([]models.Bid, error) {
	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bids := make([]models.Bid, 0)
	for rows.Next() {
		bid, err := scanBid(rows)
		if err != nil {
			return nil, err
		}
		bids = append(bids, *bid)
	}
	return bids, rows.Err()
}

// StatsForListing считает медиану, среднее, минимум, максимум и средние по дням.
func (r *PostgresBidRepository) StatsForListing(ctx context.Context, ref models.ListingRef, filter models.StatsFilter) (*models.BidStats, error) {
	column, err := linkColumn(ref)
	if err != nil {
		return nil, err
	}

	conditions := []string{column + " = $1"}
	args := []interface{}{ref.ID} // Первый аргумент всегда будет id объявления
	argIndex := 2

	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("b.created_at >= $%d", argIndex))
		args = append(args, *filter.From)
		argIndex++
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("b.created_at < $%d", argIndex))
		args = append(args, *filter.To)
		argIndex++
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("b.status = $%d", argIndex))
		args = append(args, *filter.Status)
	}
	where := strings.Join(conditions, " AND ")

	stats := models.BidStats{DailyAverages: make([]models.DailyBidAverage, 0)}
	summaryQuery := `
		SELECT COUNT(*),
		       COALESCE(percentile_cont(0.5) WITHIN GROUP (ORDER BY b.price), 0)::numeric(14, 2)::text,
		       COALESCE(AVG(b.price), 0)::numeric(14, 2)::text,
		       COALESCE(MIN(b.price), 0)::text,
		       COALESCE(MAX(b.price), 0)::text
		FROM bids b
		JOIN bid_listing_link l ON l.bid_id = b.id
		WHERE ` + where
	err = r.DB.QueryRow(ctx, summaryQuery, args...).Scan(
		&stats.Count,
		&stats.Median,
		&stats.Average,
		&stats.Min,
		&stats.Max)
	if err != nil {
		return nil, fmt.Errorf("bid stats: %w", err)
	}
	if stats.Count == 0 {
		return &stats, nil
	}

	dailyQuery := `
		SELECT date_trunc('day', b.created_at, 'UTC') AS day, AVG(b.price)::numeric(14, 2)::text, COUNT(*)
		FROM bids b
		JOIN bid_listing_link l ON l.bid_id = b.id
		WHERE ` + where + `
		GROUP BY day
		ORDER BY day`
	rows, err := r.DB.Query(ctx, dailyQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("bid daily stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var daily models.DailyBidAverage
		if err := rows.Scan(&daily.Day, &daily.Average, &daily.Count); err != nil {
			return nil, err
		}
		stats.DailyAverages = append(stats.DailyAverages, daily)
	}
	return &stats, rows.Err()
}
