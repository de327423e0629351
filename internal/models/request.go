package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type (
	RequestStatus string // Статус заявки (RFQ)
	PaymentType   string // Предпочтительный способ оплаты
)

const (
	RequestOpen      RequestStatus = "OPEN"      // Заявка принимает предложения
	RequestClosed    RequestStatus = "CLOSED"    // Принято предложение, создан заказ
	RequestCancelled RequestStatus = "CANCELLED" // Отменена покупателем
	RequestExpired   RequestStatus = "EXPIRED"   // Истек срок жизни

	PaymentBankTransfer PaymentType = "BANK_TRANSFER" // Безналичный расчет, предоплата
	PaymentCash         PaymentType = "CASH"          // Наличные при получении
)

// Valid проверяет, что способ оплаты известен.
func (p PaymentType) Valid() bool {
	switch p {
	case PaymentBankTransfer, PaymentCash:
		return true
	default:
		return false
	}
}

// Request представляет модель заявки покупателя на закупку.
type Request struct {
	ID                 string           `json:"id"`
	BuyerCompanyID     string           `json:"buyerCompanyId"`
	CreatedBy          string           `json:"createdBy"`
	CategoryID         string           `json:"categoryId"`
	SubcategoryID      *string          `json:"subcategoryId,omitempty"`
	Description        string           `json:"description"`
	Quantity           decimal.Decimal  `json:"quantity"`
	UnitID             string           `json:"unitId"`
	PaymentType        PaymentType      `json:"paymentType"`
	BudgetFrom         *decimal.Decimal `json:"budgetFrom,omitempty"`
	BudgetTo           *decimal.Decimal `json:"budgetTo,omitempty"`
	Region             string           `json:"region"`
	DeliveryAddress    string           `json:"deliveryAddress"`
	DeadlineDate       time.Time        `json:"deadlineDate"`
	Status             RequestStatus    `json:"status"`
	CancellationReason *string          `json:"cancellationReason,omitempty"`
	CreatedAt          time.Time        `json:"createdAt"`
	ExpiresAt          time.Time        `json:"expiresAt"`
	UpdatedAt          time.Time        `json:"updatedAt"`
}

// CreateRequest представляет тело запроса на создание заявки.
type CreateRequest struct {
	BuyerCompanyID  string           `json:"buyerCompanyId"`
	CategoryID      string           `json:"categoryId"`
	SubcategoryID   *string          `json:"subcategoryId,omitempty"`
	Description     string           `json:"description"`
	Quantity        decimal.Decimal  `json:"quantity"`
	UnitID          string           `json:"unitId"`
	BudgetFrom      *decimal.Decimal `json:"budgetFrom,omitempty"`
	BudgetTo        *decimal.Decimal `json:"budgetTo,omitempty"`
	Region          string           `json:"region"`
	DeliveryAddress string           `json:"deliveryAddress"`
	DeadlineDate    string           `json:"deadlineDate"` // YYYY-MM-DD
	PaymentType     PaymentType      `json:"paymentType"`
}

// RequestFilter задает выборку заявок.
type RequestFilter struct {
	BuyerCompanyID string
	Statuses       []RequestStatus
	Limit          int
	Offset         int
}

// ReasonRequest - тело запросов отмены и отклонения.
type ReasonRequest struct {
	Reason string `json:"reason"`
}
