package repository

import (
	"context"

	"github.com/senyabanana/rfq-service/internal/models"
)

// PostgresMembershipRepository - проверка членства пользователя в компании.
type PostgresMembershipRepository struct {
	DB querier
}

// HasRole проверяет, что пользователь - подтвержденный участник компании с ролью.
// Пустая роль означает любую роль.
func (r *PostgresMembershipRepository) HasRole(ctx context.Context, userID, companyID string, role models.Role) (bool, error) {
	var isMember bool
	query := `
		SELECT EXISTS(
			SELECT 1
			FROM company_member cm
			JOIN company c ON cm.company_id = c.id
			WHERE cm.user_id = $1 AND cm.company_id = $2 AND cm.verified
			AND ($3 = '' OR cm.role = $3)
		)`
	err := r.DB.QueryRow(ctx, query, userID, companyID, string(role)).Scan(&isMember)
	if err != nil {
		return false, err
	}
	return isMember, nil
}

// PostgresReferenceRepository - справочники, которые ядро только читает.
type PostgresReferenceRepository struct {
	DB querier
}

// CompanyExists проверяет, существует ли компания.
func (r *PostgresReferenceRepository) CompanyExists(ctx context.Context, companyID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM company WHERE id = $1)`
	err := r.DB.QueryRow(ctx, query, companyID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// CategoryExists проверяет категорию и, если задана, что подкатегория ей принадлежит.
func (r *PostgresReferenceRepository) CategoryExists(ctx context.Context, categoryID string, subcategoryID *string) (bool, error) {
	var exists bool
	if subcategoryID == nil {
		err := r.DB.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM category WHERE id = $1)`, categoryID).Scan(&exists)
		return exists, err
	}
	query := `SELECT EXISTS(SELECT 1 FROM category WHERE id = $1 AND parent_id = $2)`
	err := r.DB.QueryRow(ctx, query, *subcategoryID, categoryID).Scan(&exists)
	return exists, err
}

// UnitExists проверяет единицу измерения.
func (r *PostgresReferenceRepository) UnitExists(ctx context.Context, unitID string) (bool, error) {
	var exists bool
	err := r.DB.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM unit WHERE id = $1)`, unitID).Scan(&exists)
	return exists, err
}
