package repository

import (
	"context"
	"fmt"

	"github.com/senyabanana/rfq-service/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const counterOfferColumns = `id, offer_id, sender_user_id, sender_company_id, sender_role, price, volume, delivery_date,
	comment, status, created_at, updated_at`

// PostgresCounterOfferRepository - реализация CounterOfferRepository для базы данных.
type PostgresCounterOfferRepository struct {
	DB querier
}

// Create сохраняет встречное предложение.
func (r *PostgresCounterOfferRepository) Create(ctx context.Context, co *models.CounterOffer) error {
	insertQuery := `INSERT INTO counter_offer (` + counterOfferColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.DB.Exec(
		ctx,
		insertQuery,
		co.ID,
		co.OfferID,
		co.SenderUserID,
		co.SenderCompanyID,
		co.SenderRole,
		co.Price,
		co.Volume,
		co.DeliveryDate,
		co.Comment,
		co.Status,
		co.CreatedAt,
		co.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert counter offer: %w", mapPgError(err))
	}
	return nil
}

// Get возвращает встречное предложение по ID.
func (r *PostgresCounterOfferRepository) Get(ctx context.Context, id string, forUpdate bool) (*models.CounterOffer, error) {
	query := `SELECT ` + counterOfferColumns + ` FROM counter_offer WHERE id = $1` + lockClause(forUpdate)
	co, err := scanCounterOffer(r.DB.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapPgError(err)
	}
	return co, nil
}

// Update меняет статус встречного предложения.
func (r *PostgresCounterOfferRepository) Update(ctx context.Context, co *models.CounterOffer) error {
	tag, err := r.DB.Exec(ctx, `UPDATE counter_offer SET status = $1, updated_at = $2 WHERE id = $3`,
		co.Status, co.UpdatedAt, co.ID)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByOffer возвращает историю торга по предложению.
func (r *PostgresCounterOfferRepository) ListByOffer(ctx context.Context, offerID string) ([]models.CounterOffer, error) {
	query := `SELECT ` + counterOfferColumns + ` FROM counter_offer WHERE offer_id = $1 ORDER BY created_at`
	rows, err := r.DB.Query(ctx, query, offerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counterOffers []models.CounterOffer
	for rows.Next() {
		co, err := scanCounterOffer(rows)
		if err != nil {
			return nil, err
		}
		counterOffers = append(counterOffers, *co)
	}
	return counterOffers, rows.Err()
}

func scanCounterOffer(row pgx.Row) (*models.CounterOffer, error) {
	var co models.CounterOffer
	var price, volume decimal.NullDecimal
	err := row.Scan(
		&co.ID,
		&co.OfferID,
		&co.SenderUserID,
		&co.SenderCompanyID,
		&co.SenderRole,
		&price,
		&volume,
		&co.DeliveryDate,
		&co.Comment,
		&co.Status,
		&co.CreatedAt,
		&co.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if price.Valid {
		co.Price = &price.Decimal
	}
	if volume.Valid {
		co.Volume = &volume.Decimal
	}
	return &co, nil
}
