package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/senyabanana/rfq-service/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
)

const offerColumns = `id, request_id, supplier_company_id, created_by, price, currency, volume, eta_days, delivery_date,
	delivery_included, warranty_period, special_conditions, comment, reason, status, created_at, expires_at, updated_at`

// PostgresOfferRepository - реализация OfferRepository для базы данных.
type PostgresOfferRepository struct {
	DB querier
}

// Create сохраняет новое предложение. Частичный уникальный индекс
// offer_active_supplier_idx не дает завести второе активное предложение.
func (r *PostgresOfferRepository) Create(ctx context.Context, offer *models.Offer) error {
	insertQuery := `INSERT INTO offer (` + offerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	_, err := r.DB.Exec(
		ctx,
		insertQuery,
		offer.ID,
		offer.RequestID,
		offer.SupplierCompanyID,
		offer.CreatedBy,
		offer.Price,
		offer.Currency,
		offer.Volume,
		offer.EtaDays,
		offer.DeliveryDate,
		offer.DeliveryIncluded,
		offer.WarrantyPeriod,
		offer.SpecialConditions,
		offer.Comment,
		offer.Reason,
		offer.Status,
		offer.CreatedAt,
		offer.ExpiresAt,
		offer.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert offer: %w", mapPgError(err))
	}
	return nil
}

// Get возвращает предложение по ID.
func (r *PostgresOfferRepository) Get(ctx context.Context, id string, forUpdate bool) (*models.Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM offer WHERE id = $1` + lockClause(forUpdate)
	offer, err := scanOffer(r.DB.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapPgError(err)
	}
	return offer, nil
}

// Update сохраняет статус и условия предложения.
func (r *PostgresOfferRepository) Update(ctx context.Context, offer *models.Offer) error {
	updateQuery := `
		UPDATE offer SET status = $1, reason = $2, price = $3, volume = $4, delivery_date = $5, updated_at = $6
		WHERE id = $7`
	tag, err := r.DB.Exec(
		ctx,
		updateQuery,
		offer.Status,
		offer.Reason,
		offer.Price,
		offer.Volume,
		offer.DeliveryDate,
		offer.UpdatedAt,
		offer.ID)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByRequest возвращает предложения по заявке, опционально только в указанных статусах.
func (r *PostgresOfferRepository) ListByRequest(ctx context.Context, requestID string, statuses []models.OfferStatus) ([]models.Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM offer WHERE request_id = $1`
	args := []interface{}{requestID}
	if len(statuses) > 0 {
		query += ` AND status = ANY($2)`
		args = append(args, pq.Array(offerStatusStrings(statuses)))
	}
	query += ` ORDER BY created_at`

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var offers []models.Offer
	for rows.Next() {
		offer, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		offers = append(offers, *offer)
	}
	return offers, rows.Err()
}

// HasOccupying проверяет, есть ли у поставщика предложение, занимающее заявку.
func (r *PostgresOfferRepository) HasOccupying(ctx context.Context, requestID, supplierCompanyID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM offer WHERE request_id = $1 AND supplier_company_id = $2 AND status = ANY($3))`
	err := r.DB.QueryRow(ctx, query, requestID, supplierCompanyID,
		pq.Array(offerStatusStrings(models.OccupyingOfferStatuses))).Scan(&exists)
	return exists, err
}

// ListExpired возвращает ID ожидающих предложений с истекшим сроком.
func (r *PostgresOfferRepository) ListExpired(ctx context.Context, now time.Time) ([]string, error) {
	query := `SELECT id FROM offer WHERE status = $1 AND expires_at <= $2 ORDER BY expires_at`
	return collectIDs(ctx, r.DB, query, models.OfferPending, now)
}

func scanOffer(row pgx.Row) (*models.Offer, error) {
	var offer models.Offer
	err := row.Scan(
		&offer.ID,
		&offer.RequestID,
		&offer.SupplierCompanyID,
		&offer.CreatedBy,
		&offer.Price,
		&offer.Currency,
		&offer.Volume,
		&offer.EtaDays,
		&offer.DeliveryDate,
		&offer.DeliveryIncluded,
		&offer.WarrantyPeriod,
		&offer.SpecialConditions,
		&offer.Comment,
		&offer.Reason,
		&offer.Status,
		&offer.CreatedAt,
		&offer.ExpiresAt,
		&offer.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &offer, nil
}

func offerStatusStrings(statuses []models.OfferStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}
