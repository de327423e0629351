package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OfferStatus string // Статус предложения поставщика

const (
	OfferPending        OfferStatus = "PENDING"         // Ожидает решения покупателя
	OfferAccepted       OfferStatus = "ACCEPTED"        // Принято, создан заказ
	OfferRejected       OfferStatus = "REJECTED"        // Отклонено покупателем
	OfferCancelled      OfferStatus = "CANCELLED"       // Отменено одной из сторон
	OfferExpired        OfferStatus = "EXPIRED"         // Истек срок жизни
	OfferCounterOffered OfferStatus = "COUNTER_OFFERED" // Идет торг по встречному предложению
)

// ReasonAnotherOfferAccepted проставляется соседним предложениям при принятии одного из них.
const ReasonAnotherOfferAccepted = "another offer accepted"

// Offer представляет модель предложения поставщика по заявке.
type Offer struct {
	ID                string          `json:"id"`
	RequestID         string          `json:"requestId"`
	SupplierCompanyID string          `json:"supplierCompanyId"`
	CreatedBy         string          `json:"createdBy"`
	Price             decimal.Decimal `json:"price"`
	Currency          string          `json:"currency"`
	Volume            decimal.Decimal `json:"volume"`
	EtaDays           int             `json:"etaDays"`
	DeliveryDate      time.Time       `json:"deliveryDate"`
	DeliveryIncluded  bool            `json:"deliveryIncluded"`
	WarrantyPeriod    string          `json:"warrantyPeriod,omitempty"`
	SpecialConditions string          `json:"specialConditions,omitempty"`
	Comment           string          `json:"comment,omitempty"`
	Reason            *string         `json:"reason,omitempty"`
	Status            OfferStatus     `json:"status"`
	CreatedAt         time.Time       `json:"createdAt"`
	ExpiresAt         time.Time       `json:"expiresAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// OfferRequest представляет тело запроса на создание предложения.
type OfferRequest struct {
	RequestID         string           `json:"requestId"`
	SupplierCompanyID string           `json:"supplierCompanyId"`
	Price             decimal.Decimal  `json:"price"`
	Currency          string           `json:"currency"`
	Volume            *decimal.Decimal `json:"volume,omitempty"`
	EtaDays           int              `json:"etaDays"`
	DeliveryIncluded  bool             `json:"deliveryIncluded"`
	WarrantyPeriod    string           `json:"warrantyPeriod"`
	SpecialConditions string           `json:"specialConditions"`
	Comment           string           `json:"comment"`
}

// AcceptOfferResponse возвращается при принятии предложения.
type AcceptOfferResponse struct {
	Offer   *Offer `json:"offer"`
	OrderID string `json:"orderId"`
}
