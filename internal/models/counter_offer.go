package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type CounterOfferStatus string // Статус встречного предложения

const (
	CounterOfferPending  CounterOfferStatus = "PENDING"
	CounterOfferAccepted CounterOfferStatus = "ACCEPTED"
	CounterOfferRejected CounterOfferStatus = "REJECTED"
)

// CounterOffer - раунд торга по предложению. Пустые поля означают "без изменений".
type CounterOffer struct {
	ID              string             `json:"id"`
	OfferID         string             `json:"offerId"`
	SenderUserID    string             `json:"senderUserId"`
	SenderCompanyID string             `json:"senderCompanyId"`
	SenderRole      Role               `json:"senderRole"`
	Price           *decimal.Decimal   `json:"price,omitempty"`
	Volume          *decimal.Decimal   `json:"volume,omitempty"`
	DeliveryDate    *time.Time         `json:"deliveryDate,omitempty"`
	Comment         string             `json:"comment,omitempty"`
	Status          CounterOfferStatus `json:"status"`
	CreatedAt       time.Time          `json:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt"`
}

// CounterOfferRequest представляет тело запроса на встречное предложение.
type CounterOfferRequest struct {
	Price        *decimal.Decimal `json:"price,omitempty"`
	Volume       *decimal.Decimal `json:"volume,omitempty"`
	DeliveryDate *string          `json:"deliveryDate,omitempty"` // YYYY-MM-DD
	Comment      string           `json:"comment"`
}
