package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/senyabanana/rfq-service/internal/models"
	"github.com/senyabanana/rfq-service/internal/services"
	"github.com/senyabanana/rfq-service/internal/utils"
)

// CounterOfferHandler - структура для обработки HTTP-запросов по встречным предложениям.
type CounterOfferHandler struct {
	Service *services.CounterOfferService
	Timeout time.Duration
}

// NewCounterOfferHandler создаёт новый экземпляр CounterOfferHandler.
func NewCounterOfferHandler(service *services.CounterOfferService, timeout time.Duration) *CounterOfferHandler {
	return &CounterOfferHandler{
		Service: service,
		Timeout: timeout,
	}
}

// CreateCounterOffer обрабатывает запросы для создания встречного предложения.
func (h *CounterOfferHandler) CreateCounterOffer(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var in models.CounterOfferRequest
	if err := decodeBody(r, &in); err != nil {
		sendInvalidBody(w)
		return
	}

	co, err := h.Service.CreateCounterOffer(ctx, actorFrom(r), r.PathValue("offerId"), in)
	if err != nil {
		utils.WriteError(w, r, err, "failed to create counter offer")
		return
	}
	utils.WriteJSON(w, http.StatusCreated, co)
}

// ListCounterOffers обрабатывает запросы для получения истории торга по предложению.
func (h *CounterOfferHandler) ListCounterOffers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	list, err := h.Service.ListCounterOffers(ctx, actorFrom(r), r.PathValue("offerId"))
	if err != nil {
		utils.WriteError(w, r, err, "failed to fetch counter offers")
		return
	}
	utils.WriteJSON(w, http.StatusOK, list)
}

// AcceptCounterOffer обрабатывает принятие встречного предложения.
func (h *CounterOfferHandler) AcceptCounterOffer(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, h.Service.AcceptCounterOffer, "failed to accept counter offer")
}

// RejectCounterOffer обрабатывает отклонение встречного предложения.
func (h *CounterOfferHandler) RejectCounterOffer(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, h.Service.RejectCounterOffer, "failed to reject counter offer")
}

func (h *CounterOfferHandler) resolve(w http.ResponseWriter, r *http.Request,
	fn func(context.Context, models.Actor, string) (*models.CounterOffer, error), failure string) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	co, err := fn(ctx, actorFrom(r), r.PathValue("counterOfferId"))
	if err != nil {
		utils.WriteError(w, r, err, failure)
		return
	}
	utils.WriteJSON(w, http.StatusOK, co)
}
