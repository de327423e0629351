package models

import (
	"io"
	"time"

	"github.com/shopspring/decimal"
)

type (
	OrderStatus  string // Статус заказа
	PaymentTerms string // Условия оплаты заказа
)

const (
	OrderCreated          OrderStatus = "CREATED"
	OrderAwaitingPayment  OrderStatus = "AWAITING_PAYMENT"
	OrderPaymentConfirmed OrderStatus = "PAYMENT_CONFIRMED"
	OrderInPreparation    OrderStatus = "IN_PREPARATION"
	OrderReadyForDelivery OrderStatus = "READY_FOR_DELIVERY"
	OrderInTransit        OrderStatus = "IN_TRANSIT"
	OrderDelivered        OrderStatus = "DELIVERED"
	OrderConfirmed        OrderStatus = "CONFIRMED"
	OrderCompleted        OrderStatus = "COMPLETED"
	OrderCancelled        OrderStatus = "CANCELLED"

	TermsPrepayment PaymentTerms = "PREPAYMENT"  // Оплата до отгрузки
	TermsOnDelivery PaymentTerms = "ON_DELIVERY" // Оплата при получении
)

// TermsFor выводит условия оплаты заказа из способа оплаты заявки.
func TermsFor(p PaymentType) PaymentTerms {
	if p == PaymentBankTransfer {
		return TermsPrepayment
	}
	return TermsOnDelivery
}

// Order представляет модель заказа, созданного по принятому предложению.
type Order struct {
	ID                       string          `json:"id"`
	RequestID                string          `json:"requestId"`
	OfferID                  string          `json:"offerId"`
	BuyerCompanyID           string          `json:"buyerCompanyId"`
	SupplierCompanyID        string          `json:"supplierCompanyId"`
	TotalAmount              decimal.Decimal `json:"totalAmount"`
	Currency                 string          `json:"currency"`
	PaymentMethod            PaymentType     `json:"paymentMethod"`
	PaymentTerms             PaymentTerms    `json:"paymentTerms"`
	Status                   OrderStatus     `json:"status"`
	PaymentConfirmedBySeller bool            `json:"paymentConfirmedBySeller"`
	PaymentConfirmedAt       *time.Time      `json:"paymentConfirmedAt,omitempty"`
	PaymentProofKey          *string         `json:"paymentProofKey,omitempty"`
	TTNKey                   *string         `json:"ttnKey,omitempty"`
	DeliveryPhotoKeys        []string        `json:"deliveryPhotoKeys"`
	CancellationReason       *string         `json:"cancellationReason,omitempty"`
	CreatedAt                time.Time       `json:"createdAt"`
	StartedAt                *time.Time      `json:"startedAt,omitempty"`
	CompletedAt              *time.Time      `json:"completedAt,omitempty"`
	CancelledAt              *time.Time      `json:"cancelledAt,omitempty"`
	UpdatedAt                time.Time       `json:"updatedAt"`
}

// OrderStatusHistory - запись журнала смены статусов заказа.
type OrderStatusHistory struct {
	ID         string      `json:"id"`
	OrderID    string      `json:"-"`
	FromStatus OrderStatus `json:"fromStatus"`
	ToStatus   OrderStatus `json:"toStatus"`
	ActorID    string      `json:"actorId"`
	Note       string      `json:"note,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// Document - загружаемый файл (платежка, ТТН, фото).
type Document struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}
