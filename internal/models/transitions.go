package models

import "slices"

// Допустимые переходы статусов. Отсутствие ключа означает терминальный статус.
var (
	requestTransitions = map[RequestStatus][]RequestStatus{
		RequestOpen: {RequestClosed, RequestCancelled, RequestExpired},
	}

	offerTransitions = map[OfferStatus][]OfferStatus{
		OfferPending:        {OfferAccepted, OfferRejected, OfferCancelled, OfferExpired, OfferCounterOffered},
		OfferCounterOffered: {OfferAccepted, OfferRejected, OfferCancelled},
	}

	counterOfferTransitions = map[CounterOfferStatus][]CounterOfferStatus{
		CounterOfferPending: {CounterOfferAccepted, CounterOfferRejected},
	}

	orderTransitions = map[OrderStatus][]OrderStatus{
		OrderCreated:          {OrderAwaitingPayment, OrderInPreparation, OrderCancelled},
		OrderAwaitingPayment:  {OrderPaymentConfirmed, OrderCancelled},
		OrderPaymentConfirmed: {OrderInPreparation},
		OrderInPreparation:    {OrderReadyForDelivery, OrderInTransit},
		OrderReadyForDelivery: {OrderInTransit},
		OrderInTransit:        {OrderDelivered},
		OrderDelivered:        {OrderConfirmed, OrderCompleted},
		OrderConfirmed:        {OrderCompleted},
	}
)

// CanTransitionTo проверяет переход статуса заявки.
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	return slices.Contains(requestTransitions[s], next)
}

// IsTerminal сообщает, что заявка больше не меняется.
func (s RequestStatus) IsTerminal() bool {
	return len(requestTransitions[s]) == 0
}

// CanTransitionTo проверяет переход статуса предложения.
func (s OfferStatus) CanTransitionTo(next OfferStatus) bool {
	return slices.Contains(offerTransitions[s], next)
}

// IsActive - PENDING и COUNTER_OFFERED, то есть нетерминальные статусы.
func (s OfferStatus) IsActive() bool {
	return len(offerTransitions[s]) > 0
}

// CanTransitionTo проверяет переход статуса встречного предложения.
func (s CounterOfferStatus) CanTransitionTo(next CounterOfferStatus) bool {
	return slices.Contains(counterOfferTransitions[s], next)
}

// CanTransitionTo проверяет переход статуса заказа.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	return slices.Contains(orderTransitions[s], next)
}

// IsTerminal сообщает, что заказ завершен или отменен.
func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0
}

// OccupyingOfferStatuses - статусы, при которых поставщик не может подать новое предложение по заявке.
var OccupyingOfferStatuses = []OfferStatus{OfferPending, OfferCounterOffered, OfferAccepted}
