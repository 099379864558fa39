package repository

import (
	"context"
	"fmt"

	"github.com/senyabanana/bid-engine/internal/models"

	"github.com/lib/pq"
)

// ListingRepository - интерфейс справочника объявлений (работ и контрактов).
type ListingRepository interface {
	GetListing(ctx context.Context, ref models.ListingRef, forUpdate bool) (*models.Listing, error)
	DeactivateListing(ctx context.Context, ref models.ListingRef) error
	DeactivateJobs(ctx context.Context, jobIds []string) error
}

// PostgresListingRepository - реализация ListingRepository для базы данных.
type PostgresListingRepository struct {
	DB DBTX
}

// NewPostgresListingRepository создаёт новый экземпляр PostgresListingRepository.
func NewPostgresListingRepository(db DBTX) *PostgresListingRepository {
	return &PostgresListingRepository{DB: db}
}

// GetListing возвращает объявление; при forUpdate строка объявления блокируется до конца транзакции.
func (r *PostgresListingRepository) GetListing(ctx context.Context, ref models.ListingRef, forUpdate bool) (*models.Listing, error) {
	switch ref.Kind {
	case models.JobListing:
		return r.getJob(ctx, ref.ID, forUpdate)
	case models.ContractListing:
		return r.getContract(ctx, ref.ID, forUpdate)
	}
	return nil, fmt.Errorf("unknown listing kind %q", ref.Kind)
}

func (r *PostgresListingRepository) getJob(ctx context.Context, jobId string, forUpdate bool) (*models.Listing, error) {
	listing := models.Listing{Ref: models.JobRef(jobId)}
	query := `SELECT title, active, COALESCE(owner_user_id::text, ''), COALESCE(owner_company_id::text, ''), COALESCE(contract_id::text, '')
	          FROM jobs WHERE id = $1` + lockClause(forUpdate)
	err := r.DB.QueryRow(ctx, query, jobId).Scan(
		&listing.Title,
		&listing.Active,
		&listing.OwnerUserID,
		&listing.OwnerCompanyID,
		&listing.ContractID,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &listing, nil
}

func (r *PostgresListingRepository) getContract(ctx context.Context, contractId string, forUpdate bool) (*models.Listing, error) {
	listing := models.Listing{Ref: models.ContractRef(contractId)}
	query := `SELECT title, active, owner_company_id::text, minimum_price::text
	          FROM contracts WHERE id = $1` + lockClause(forUpdate)
	err := r.DB.QueryRow(ctx, query, contractId).Scan(
		&listing.Title,
		&listing.Active,
		&listing.OwnerCompanyID,
		&listing.MinimumPrice,
	)
	if err != nil {
		return nil, notFound(err)
	}

	rows, err := r.DB.Query(ctx, `SELECT id::text FROM jobs WHERE contract_id = $1 ORDER BY created_at, id`, contractId)
	if err != nil {
		return nil, fmt.Errorf("contract member jobs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var jobId string
		if err := rows.Scan(&jobId); err != nil {
			return nil, err
		}
		listing.MemberJobIDs = append(listing.MemberJobIDs, jobId)
	}
	return &listing, rows.Err()
}

// DeactivateListing снимает объявление с торгов.
func (r *PostgresListingRepository) DeactivateListing(ctx context.Context, ref models.ListingRef) error {
	var query string
	switch ref.Kind {
	case models.JobListing:
		query = `UPDATE jobs SET active = false, updated_at = NOW() WHERE id = $1`
	case models.ContractListing:
		query = `UPDATE contracts SET active = false, updated_at = NOW() WHERE id = $1`
	default:
		return fmt.Errorf("unknown listing kind %q", ref.Kind)
	}
	tag, err := r.DB.Exec(ctx, query, ref.ID)
	if err != nil {
		return fmt.Errorf("deactivate %s: %w", ref, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeactivateJobs снимает с торгов работы, входящие в контракт.
func (r *PostgresListingRepository) DeactivateJobs(ctx context.Context, jobIds []string) error {
	if len(jobIds) == 0 {
		return nil
	}
	_, err := r.DB.Exec(ctx,
		`UPDATE jobs SET active = false, updated_at = NOW() WHERE id::text = ANY($1) AND active`,
		pq.Array(jobIds))
	if err != nil {
		return fmt.Errorf("deactivate member jobs: %w", err)
	}
	return nil
}
