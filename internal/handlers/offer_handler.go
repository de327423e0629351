package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/senyabanana/rfq-service/internal/models"
	"github.com/senyabanana/rfq-service/internal/services"
	"github.com/senyabanana/rfq-service/internal/utils"
)

// OfferHandler - структура для обработки HTTP-запросов по предложениям.
type OfferHandler struct {
	Service *services.OfferService
	Timeout time.Duration
}

// NewOfferHandler создаёт новый экземпляр OfferHandler.
func NewOfferHandler(service *services.OfferService, timeout time.Duration) *OfferHandler {
	return &OfferHandler{
		Service: service,
		Timeout: timeout,
	}
}

// CreateOffer обрабатывает запросы для создания предложения поставщиком.
func (h *OfferHandler) CreateOffer(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var in models.OfferRequest
	if err := decodeBody(r, &in); err != nil {
		sendInvalidBody(w)
		return
	}

	offer, err := h.Service.CreateOffer(ctx, actorFrom(r), in)
	if err != nil {
		utils.WriteError(w, r, err, "failed to create offer")
		return
	}
	utils.WriteJSON(w, http.StatusCreated, offer)
}

// GetOffer обрабатывает запросы для получения предложения.
func (h *OfferHandler) GetOffer(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	offer, err := h.Service.GetOffer(ctx, actorFrom(r), r.PathValue("offerId"))
	if err != nil {
		utils.WriteError(w, r, err, "failed to fetch offer")
		return
	}
	utils.WriteJSON(w, http.StatusOK, offer)
}

// ListRequestOffers обрабатывает запросы для получения предложений по заявке.
func (h *OfferHandler) ListRequestOffers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	offers, err := h.Service.ListOffersForRequest(ctx, actorFrom(r), r.PathValue("requestId"))
	if err != nil {
		utils.WriteError(w, r, err, "failed to fetch offers")
		return
	}
	utils.WriteJSON(w, http.StatusOK, offers)
}

// AcceptOffer обрабатывает принятие предложения покупателем; в ответе ID созданного заказа.
func (h *OfferHandler) AcceptOffer(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	resp, err := h.Service.AcceptOffer(ctx, actorFrom(r), r.PathValue("offerId"))
	if err != nil {
		utils.WriteError(w, r, err, "failed to accept offer")
		return
	}
	utils.WriteJSON(w, http.StatusOK, resp)
}

// RejectOffer обрабатывает отклонение предложения покупателем.
func (h *OfferHandler) RejectOffer(w http.ResponseWriter, r *http.Request) {
	h.withReason(w, r, h.Service.RejectOffer, "failed to reject offer")
}

// CancelOffer обрабатывает отзыв предложения.
func (h *OfferHandler) CancelOffer(w http.ResponseWriter, r *http.Request) {
	h.withReason(w, r, h.Service.CancelOffer, "failed to cancel offer")
}

type offerReasonFunc func(ctx context.Context, actor models.Actor, offerID, reason string) (*models.Offer, error)

func (h *OfferHandler) withReason(w http.ResponseWriter, r *http.Request, fn offerReasonFunc, failure string) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var body models.ReasonRequest
	if err := decodeBody(r, &body); err != nil {
		sendInvalidBody(w)
		return
	}

	offer, err := fn(ctx, actorFrom(r), r.PathValue("offerId"), body.Reason)
	if err != nil {
		utils.WriteError(w, r, err, failure)
		return
	}
	utils.WriteJSON(w, http.StatusOK, offer)
}
