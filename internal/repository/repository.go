package repository

import (
	"context"
	"errors"
	"time"

	"github.com/senyabanana/rfq-service/internal/models"
)

var (
	// ErrNotFound возвращается, когда запись не найдена.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate возвращается при нарушении уникального индекса.
	ErrDuplicate = errors.New("unique constraint violated")
)

// RequestRepository - интерфейс для работы с заявками.
type RequestRepository interface {
	Create(ctx context.Context, req *models.Request) error
	Get(ctx context.Context, id string, forUpdate bool) (*models.Request, error)
	Update(ctx context.Context, req *models.Request) error
	List(ctx context.Context, filter models.RequestFilter) ([]models.Request, error)
	ListExpired(ctx context.Context, now time.Time) ([]string, error)
}

// OfferRepository - интерфейс для работы с предложениями.
type OfferRepository interface {
	Create(ctx context.Context, offer *models.Offer) error
	Get(ctx context.Context, id string, forUpdate bool) (*models.Offer, error)
	Update(ctx context.Context, offer *models.Offer) error
	ListByRequest(ctx context.Context, requestID string, statuses []models.OfferStatus) ([]models.Offer, error)
	HasOccupying(ctx context.Context, requestID, supplierCompanyID string) (bool, error)
	ListExpired(ctx context.Context, now time.Time) ([]string, error)
}

// CounterOfferRepository - интерфейс для работы со встречными предложениями.
type CounterOfferRepository interface {
	Create(ctx context.Context, co *models.CounterOffer) error
	Get(ctx context.Context, id string, forUpdate bool) (*models.CounterOffer, error)
	Update(ctx context.Context, co *models.CounterOffer) error
	ListByOffer(ctx context.Context, offerID string) ([]models.CounterOffer, error)
}

// OrderRepository - интерфейс для работы с заказами.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	Get(ctx context.Context, id string, forUpdate bool) (*models.Order, error)
	Update(ctx context.Context, order *models.Order) error
	ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]models.Order, error)
	CountByRequest(ctx context.Context, requestID string) (int, error)
	AppendHistory(ctx context.Context, entry *models.OrderStatusHistory) error
	ListHistory(ctx context.Context, orderID string) ([]models.OrderStatusHistory, error)
}

// MembershipRepository отвечает на вопрос "состоит ли пользователь в компании с ролью".
type MembershipRepository interface {
	HasRole(ctx context.Context, userID, companyID string, role models.Role) (bool, error)
}

// ReferenceRepository - справочные данные: компании, категории, единицы измерения.
type ReferenceRepository interface {
	CompanyExists(ctx context.Context, companyID string) (bool, error)
	CategoryExists(ctx context.Context, categoryID string, subcategoryID *string) (bool, error)
	UnitExists(ctx context.Context, unitID string) (bool, error)
}

// Repositories объединяет репозитории одного хранилища или одной транзакции.
type Repositories interface {
	Requests() RequestRepository
	Offers() OfferRepository
	CounterOffers() CounterOfferRepository
	Orders() OrderRepository
	Members() MembershipRepository
	Reference() ReferenceRepository
}

// Store - хранилище, умеющее выполнять функцию в одной транзакции.
// Если fn возвращает ошибку, ни одно изменение не сохраняется.
type Store interface {
	Repositories
	WithinTx(ctx context.Context, fn func(repos Repositories) error) error
}
