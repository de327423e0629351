package repository

import (
	"context"
	"fmt"

	"github.com/senyabanana/rfq-service/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
)

const orderColumns = `id, request_id, offer_id, buyer_company_id, supplier_company_id, total_amount, currency,
	payment_method, payment_terms, status, payment_confirmed_by_seller, payment_confirmed_at, payment_proof_key,
	ttn_key, delivery_photo_keys, cancellation_reason, created_at, started_at, completed_at, cancelled_at, updated_at`

// PostgresOrderRepository - реализация OrderRepository для базы данных.
type PostgresOrderRepository struct {
	DB querier
}

// Create сохраняет заказ. Уникальные индексы по request_id и offer_id
// гарантируют не более одного заказа на заявку.
func (r *PostgresOrderRepository) Create(ctx context.Context, order *models.Order) error {
	insertQuery := `INSERT INTO purchase_order (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`
	_, err := r.DB.Exec(
		ctx,
		insertQuery,
		order.ID,
		order.RequestID,
		order.OfferID,
		order.BuyerCompanyID,
		order.SupplierCompanyID,
		order.TotalAmount,
		order.Currency,
		order.PaymentMethod,
		order.PaymentTerms,
		order.Status,
		order.PaymentConfirmedBySeller,
		order.PaymentConfirmedAt,
		order.PaymentProofKey,
		order.TTNKey,
		pq.Array(order.DeliveryPhotoKeys),
		order.CancellationReason,
		order.CreatedAt,
		order.StartedAt,
		order.CompletedAt,
		order.CancelledAt,
		order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", mapPgError(err))
	}
	return nil
}

// Get возвращает заказ по ID.
func (r *PostgresOrderRepository) Get(ctx context.Context, id string, forUpdate bool) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM purchase_order WHERE id = $1` + lockClause(forUpdate)
	order, err := scanOrder(r.DB.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapPgError(err)
	}
	return order, nil
}

// Update сохраняет изменяемые поля заказа. Сумма заказа не перезаписывается никогда.
func (r *PostgresOrderRepository) Update(ctx context.Context, order *models.Order) error {
	updateQuery := `
		UPDATE purchase_order SET status = $1, payment_confirmed_by_seller = $2, payment_confirmed_at = $3,
			payment_proof_key = $4, ttn_key = $5, delivery_photo_keys = $6, cancellation_reason = $7,
			started_at = $8, completed_at = $9, cancelled_at = $10, updated_at = $11
		WHERE id = $12`
	tag, err := r.DB.Exec(
		ctx,
		updateQuery,
		order.Status,
		order.PaymentConfirmedBySeller,
		order.PaymentConfirmedAt,
		order.PaymentProofKey,
		order.TTNKey,
		pq.Array(order.DeliveryPhotoKeys),
		order.CancellationReason,
		order.StartedAt,
		order.CompletedAt,
		order.CancelledAt,
		order.UpdatedAt,
		order.ID)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByCompany возвращает заказы, где компания покупатель или поставщик.
func (r *PostgresOrderRepository) ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM purchase_order
		WHERE buyer_company_id = $1 OR supplier_company_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.DB.Query(ctx, query, companyID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	return orders, rows.Err()
}

// CountByRequest считает заказы по заявке.
func (r *PostgresOrderRepository) CountByRequest(ctx context.Context, requestID string) (int, error) {
	var count int
	err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM purchase_order WHERE request_id = $1`, requestID).Scan(&count)
	return count, err
}

// AppendHistory добавляет запись в журнал статусов заказа.
func (r *PostgresOrderRepository) AppendHistory(ctx context.Context, entry *models.OrderStatusHistory) error {
	historyInsertQuery := `INSERT INTO order_status_history (id, order_id, from_status, to_status, actor_id, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.DB.Exec(
		ctx,
		historyInsertQuery,
		entry.ID,
		entry.OrderID,
		entry.FromStatus,
		entry.ToStatus,
		entry.ActorID,
		entry.Note,
		entry.CreatedAt)
	return mapPgError(err)
}

// ListHistory возвращает журнал статусов заказа в хронологическом порядке.
func (r *PostgresOrderRepository) ListHistory(ctx context.Context, orderID string) ([]models.OrderStatusHistory, error) {
	query := `SELECT id, order_id, from_status, to_status, actor_id, note, created_at
		FROM order_status_history WHERE order_id = $1 ORDER BY created_at, seq`
	rows, err := r.DB.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []models.OrderStatusHistory
	for rows.Next() {
		var entry models.OrderStatusHistory
		if err := rows.Scan(&entry.ID, &entry.OrderID, &entry.FromStatus, &entry.ToStatus, &entry.ActorID, &entry.Note, &entry.CreatedAt); err != nil {
			return nil, err
		}
		history = append(history, entry)
	}
	return history, rows.Err()
}

func scanOrder(row pgx.Row) (*models.Order, error) {
	var order models.Order
	var photos []string
	err := row.Scan(
		&order.ID,
		&order.RequestID,
		&order.OfferID,
		&order.BuyerCompanyID,
		&order.SupplierCompanyID,
		&order.TotalAmount,
		&order.Currency,
		&order.PaymentMethod,
		&order.PaymentTerms,
		&order.Status,
		&order.PaymentConfirmedBySeller,
		&order.PaymentConfirmedAt,
		&order.PaymentProofKey,
		&order.TTNKey,
		&photos,
		&order.CancellationReason,
		&order.CreatedAt,
		&order.StartedAt,
		&order.CompletedAt,
		&order.CancelledAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	order.DeliveryPhotoKeys = photos
	if order.DeliveryPhotoKeys == nil {
		order.DeliveryPhotoKeys = []string{}
	}
	return &order, nil
}
