package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound возвращается, когда запись отсутствует.
var ErrNotFound = errors.New("record not found")

// ErrWinnerExists возвращается при попытке отметить второе выигравшее предложение объявления.
var ErrWinnerExists = errors.New("listing already has a winning bid")

// uniqueViolation - код ошибки PostgreSQL для нарушения уникального индекса.
const uniqueViolation = "23505"

// DBTX - общий интерфейс пула соединений и транзакции.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repositories - набор репозиториев, работающих в одной области видимости (пул или транзакция).
type Repositories struct {
	Bids     BidRepository
	Listings ListingRepository
	Owners   OwnershipRepository
}

// Store открывает транзакции и выдает репозитории для чтения вне транзакций.
type Store interface {
	Repos() Repositories
	// WithTx выполняет fn в одной транзакции: commit при nil, rollback при ошибке или панике.
	WithTx(ctx context.Context, fn func(repos Repositories) error) error
}

// PostgresStore - реализация Store для PostgreSQL.
type PostgresStore struct {
	DB *pgxpool.Pool
}

// NewPostgresStore создает новый экземпляр PostgresStore.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{DB: db}
}

func newRepositories(db DBTX) Repositories {
	return Repositories{
		Bids:     NewPostgresBidRepository(db),
		Listings: NewPostgresListingRepository(db),
		Owners:   NewPostgresOwnershipRepository(db),
	}
}

// Repos возвращает репозитории поверх пула.
func (s *PostgresStore) Repos() Repositories {
	return newRepositories(s.DB)
}

// WithTx выполняет fn в транзакции READ COMMITTED.
// Сериализация конкурирующих команд достигается блокировкой строки объявления (FOR UPDATE).
func (s *PostgresStore) WithTx(ctx context.Context, fn func(repos Repositories) error) (err error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
		}
	}()

	if err = fn(newRepositories(tx)); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func lockClause(forUpdate bool) string {
	if forUpdate {
		return " FOR UPDATE"
	}
	return ""
}
