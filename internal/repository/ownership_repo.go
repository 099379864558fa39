package repository

import (
	"context"
	"fmt"
)

// OwnershipRepository - интерфейс для получения компаний, которыми владеет пользователь.
type OwnershipRepository interface {
	OwnedCompanies(ctx context.Context, userId string) ([]string, error)
}

// PostgresOwnershipRepository - реализация OwnershipRepository для базы данных.
type PostgresOwnershipRepository struct {
	DB DBTX
}

// NewPostgresOwnershipRepository создаёт новый экземпляр PostgresOwnershipRepository.
func NewPostgresOwnershipRepository(db DBTX) *PostgresOwnershipRepository {
	return &PostgresOwnershipRepository{DB: db}
}

// OwnedCompanies возвращает идентификаторы компаний пользователя.
func (r *PostgresOwnershipRepository) OwnedCompanies(ctx context.Context, userId string) ([]string, error) {
	rows, err := r.DB.Query(ctx, `SELECT company_id::text FROM company_owners WHERE user_id = $1 ORDER BY company_id`, userId)
	if err != nil {
		return nil, fmt.Errorf("owned companies: %w", err)
	}
	defer rows.Close()

	companies := make([]string, 0)
	for rows.Next() {
		var companyId string
		if err := rows.Scan(&companyId); err != nil {
			return nil, err
		}
		companies = append(companies, companyId)
	}
	return companies, rows.Err()
}
