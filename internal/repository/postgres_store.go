package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// querier - общее подмножество *pgxpool.Pool и pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore - реализация Store поверх пула соединений.
type PostgresStore struct {
	DB *pgxpool.Pool
	postgresRepos
}

// NewPostgresStore создает новый экземпляр PostgresStore.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{DB: db, postgresRepos: postgresRepos{db: db}}
}

// WithinTx выполняет fn в транзакции READ COMMITTED. Сериализацию конкурирующих
// операций обеспечивают блокировки строк SELECT ... FOR UPDATE.
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(repos Repositories) error) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(postgresRepos{db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", mapPgError(err))
	}
	return nil
}

type postgresRepos struct {
	db querier
}

func (r postgresRepos) Requests() RequestRepository {
	return &PostgresRequestRepository{DB: r.db}
}

func (r postgresRepos) Offers() OfferRepository {
	return &PostgresOfferRepository{DB: r.db}
}

func (r postgresRepos) CounterOffers() CounterOfferRepository {
	return &PostgresCounterOfferRepository{DB: r.db}
}

func (r postgresRepos) Orders() OrderRepository {
	return &PostgresOrderRepository{DB: r.db}
}

func (r postgresRepos) Members() MembershipRepository {
	return &PostgresMembershipRepository{DB: r.db}
}

func (r postgresRepos) Reference() ReferenceRepository {
	return &PostgresReferenceRepository{DB: r.db}
}

// mapPgError приводит ошибки драйвера к ошибкам репозитория.
func mapPgError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}

func lockClause(forUpdate bool) string {
	if forUpdate {
		return " FOR UPDATE"
	}
	return ""
}
