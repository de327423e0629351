package router

import (
	"net/http"

	"github.com/senyabanana/rfq-service/internal/handlers"
	"github.com/senyabanana/rfq-service/internal/metrics"
	"github.com/senyabanana/rfq-service/internal/middleware"
)

// Handlers - обработчики всех ресурсов API.
type Handlers struct {
	Requests      *handlers.RequestHandler
	Offers        *handlers.OfferHandler
	CounterOffers *handlers.CounterOfferHandler
	Orders        *handlers.OrderHandler
}

// InitRoutes собирает таблицу маршрутов. Все маршруты, кроме ping и metrics,
// требуют bearer-токен.
func InitRoutes(h Handlers, jwtSecret []byte) http.Handler {
	mux := http.NewServeMux()
	auth := middleware.Auth(jwtSecret)
	secured := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, auth(fn))
	}

	mux.HandleFunc("GET /api/ping", handlers.PingHandler)
	mux.Handle("GET /metrics", metrics.Handler())

	secured("POST /api/requests", h.Requests.CreateRequest)
	secured("GET /api/requests", h.Requests.ListRequests)
	secured("GET /api/requests/{requestId}", h.Requests.GetRequest)
	secured("POST /api/requests/{requestId}/cancel", h.Requests.CancelRequest)
	secured("GET /api/requests/{requestId}/offers", h.Offers.ListRequestOffers)

	secured("POST /api/offers", h.Offers.CreateOffer)
	secured("GET /api/offers/{offerId}", h.Offers.GetOffer)
	secured("PUT /api/offers/{offerId}/accept", h.Offers.AcceptOffer)
	secured("PUT /api/offers/{offerId}/reject", h.Offers.RejectOffer)
	secured("PUT /api/offers/{offerId}/cancel", h.Offers.CancelOffer)

	secured("POST /api/offers/{offerId}/counter-offers", h.CounterOffers.CreateCounterOffer)
	secured("GET /api/offers/{offerId}/counter-offers", h.CounterOffers.ListCounterOffers)
	secured("PUT /api/counter-offers/{counterOfferId}/accept", h.CounterOffers.AcceptCounterOffer)
	secured("PUT /api/counter-offers/{counterOfferId}/reject", h.CounterOffers.RejectCounterOffer)

	secured("GET /api/orders", h.Orders.ListOrders)
	secured("GET /api/orders/{orderId}", h.Orders.GetOrder)
	secured("GET /api/orders/{orderId}/history", h.Orders.OrderHistory)
	secured("GET /api/orders/{orderId}/documents/{key...}", h.Orders.Document)
	secured("POST /api/orders/{orderId}/confirm-payment", h.Orders.ConfirmPayment)
	secured("POST /api/orders/{orderId}/payment-proof", h.Orders.UploadPaymentProof)
	secured("POST /api/orders/{orderId}/start-preparation", h.Orders.StartPreparation)
	secured("POST /api/orders/{orderId}/mark-ready", h.Orders.MarkReady)
	secured("POST /api/orders/{orderId}/upload-ttn", h.Orders.UploadTTN)
	secured("POST /api/orders/{orderId}/mark-delivered", h.Orders.MarkDelivered)
	secured("POST /api/orders/{orderId}/confirm-delivery", h.Orders.ConfirmDelivery)
	secured("POST /api/orders/{orderId}/cancel", h.Orders.CancelOrder)

	return middleware.RequestID(middleware.Logging(mux))
}
