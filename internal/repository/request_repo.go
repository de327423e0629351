package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/senyabanana/rfq-service/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const requestColumns = `id, buyer_company_id, created_by, category_id, subcategory_id, description, quantity, unit_id,
	payment_type, budget_from, budget_to, region, delivery_address, deadline_date, status, cancellation_reason,
	created_at, expires_at, updated_at`

// PostgresRequestRepository - реализация RequestRepository для базы данных.
type PostgresRequestRepository struct {
	DB querier
}

// Create сохраняет новую заявку.
func (r *PostgresRequestRepository) Create(ctx context.Context, req *models.Request) error {
	insertQuery := `INSERT INTO purchase_request (` + requestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`
	_, err := r.DB.Exec(
		ctx,
		insertQuery,
		req.ID,
		req.BuyerCompanyID,
		req.CreatedBy,
		req.CategoryID,
		req.SubcategoryID,
		req.Description,
		req.Quantity,
		req.UnitID,
		req.PaymentType,
		req.BudgetFrom,
		req.BudgetTo,
		req.Region,
		req.DeliveryAddress,
		req.DeadlineDate,
		req.Status,
		req.CancellationReason,
		req.CreatedAt,
		req.ExpiresAt,
		req.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert request: %w", mapPgError(err))
	}
	return nil
}

// Get возвращает заявку по ID, при forUpdate блокирует строку до конца транзакции.
func (r *PostgresRequestRepository) Get(ctx context.Context, id string, forUpdate bool) (*models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM purchase_request WHERE id = $1` + lockClause(forUpdate)
	req, err := scanRequest(r.DB.QueryRow(ctx, query, id))
	if err != nil {
		return nil, mapPgError(err)
	}
	return req, nil
}

// Update сохраняет изменяемые поля заявки.
func (r *PostgresRequestRepository) Update(ctx context.Context, req *models.Request) error {
	updateQuery := `UPDATE purchase_request SET status = $1, cancellation_reason = $2, updated_at = $3 WHERE id = $4`
	tag, err := r.DB.Exec(ctx, updateQuery, req.Status, req.CancellationReason, req.UpdatedAt, req.ID)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List возвращает список заявок по фильтру.
func (r *PostgresRequestRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM purchase_request`
	var filters []string
	var args []interface{}
	argIndex := 1

	if filter.BuyerCompanyID != "" {
		filters = append(filters, fmt.Sprintf("buyer_company_id = $%d", argIndex))
		args = append(args, filter.BuyerCompanyID)
		argIndex++
	}

	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		filters = append(filters, fmt.Sprintf("status = ANY($%d)", argIndex))
		args = append(args, pq.Array(statuses))
		argIndex++
	}

	if len(filters) > 0 {
		query += " WHERE " + strings.Join(filters, " AND ")
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []models.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, *req)
	}
	return requests, rows.Err()
}

// ListExpired возвращает ID открытых заявок с истекшим сроком.
func (r *PostgresRequestRepository) ListExpired(ctx context.Context, now time.Time) ([]string, error) {
	query := `SELECT id FROM purchase_request WHERE status = $1 AND expires_at <= $2 ORDER BY expires_at`
	return collectIDs(ctx, r.DB, query, models.RequestOpen, now)
}

func scanRequest(row pgx.Row) (*models.Request, error) {
	var req models.Request
	var budgetFrom, budgetTo decimal.NullDecimal
	err := row.Scan(
		&req.ID,
		&req.BuyerCompanyID,
		&req.CreatedBy,
		&req.CategoryID,
		&req.SubcategoryID,
		&req.Description,
		&req.Quantity,
		&req.UnitID,
		&req.PaymentType,
		&budgetFrom,
		&budgetTo,
		&req.Region,
		&req.DeliveryAddress,
		&req.DeadlineDate,
		&req.Status,
		&req.CancellationReason,
		&req.CreatedAt,
		&req.ExpiresAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if budgetFrom.Valid {
		req.BudgetFrom = &budgetFrom.Decimal
	}
	if budgetTo.Valid {
		req.BudgetTo = &budgetTo.Decimal
	}
	return &req, nil
}

func collectIDs(ctx context.Context, db querier, query string, args ...any) ([]string, error) {
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
