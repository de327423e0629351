package models

import "time"

type NotificationKind string // Тип уведомления

const (
	NotifyRequestExpired   NotificationKind = "request_expired"
	NotifyOfferCreated     NotificationKind = "offer_created"
	NotifyOfferAccepted    NotificationKind = "offer_accepted"
	NotifyOfferRejected    NotificationKind = "offer_rejected"
	NotifyOfferCancelled   NotificationKind = "offer_cancelled"
	NotifyOfferExpired     NotificationKind = "offer_expired"
	NotifyCounterOffer     NotificationKind = "counter_offer_created"
	NotifyCounterAccepted  NotificationKind = "counter_offer_accepted"
	NotifyCounterRejected  NotificationKind = "counter_offer_rejected"
	NotifyOrderCreated     NotificationKind = "order_created"
	NotifyPaymentProof     NotificationKind = "payment_proof_uploaded"
	NotifyPaymentConfirmed NotificationKind = "payment_confirmed"
	NotifyOrderStatus      NotificationKind = "order_status_changed"
	NotifyOrderShipped     NotificationKind = "order_shipped"
	NotifyOrderCompleted   NotificationKind = "order_completed"
	NotifyRateOrder        NotificationKind = "rate_order"
	NotifyOrderCancelled   NotificationKind = "order_cancelled"
)

// Notification - сообщение "получателю произошло X". Как доставить, решает канал.
type Notification struct {
	ID                 string           `json:"id"`
	Kind               NotificationKind `json:"kind"`
	RecipientCompanyID string           `json:"recipientCompanyId"`
	EntityType         string           `json:"entityType"`
	EntityID           string           `json:"entityId"`
	OrderID            string           `json:"orderId,omitempty"`
	Message            string           `json:"message"`
	CreatedAt          time.Time        `json:"createdAt"`
}
