package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/senyabanana/rfq-service/internal/models"
	"github.com/senyabanana/rfq-service/internal/services"
	"github.com/senyabanana/rfq-service/internal/utils"
)

var requestStatuses = []models.RequestStatus{
	models.RequestOpen,
	models.RequestClosed,
	models.RequestCancelled,
	models.RequestExpired,
}

// RequestHandler - структура для обработки HTTP-запросов по заявкам.
type RequestHandler struct {
	Service *services.RequestService
	Timeout time.Duration
}

// NewRequestHandler создаёт новый экземпляр RequestHandler.
func NewRequestHandler(service *services.RequestService, timeout time.Duration) *RequestHandler {
	return &RequestHandler{
		Service: service,
		Timeout: timeout,
	}
}

// CreateRequest обрабатывает запросы для создания заявки.
func (h *RequestHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var in models.CreateRequest
	if err := decodeBody(r, &in); err != nil {
		sendInvalidBody(w)
		return
	}

	req, err := h.Service.CreateRequest(ctx, actorFrom(r), in)
	if err != nil {
		utils.WriteError(w, r, err, "failed to create request")
		return
	}
	utils.WriteJSON(w, http.StatusCreated, req)
}

// ListRequests обрабатывает запросы для получения списка заявок.
func (h *RequestHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	query := r.URL.Query()
	limit, offset, err := utils.ParseLimitOffset(query.Get("limit"), query.Get("offset"))
	if err != nil {
		utils.SendError(w, http.StatusBadRequest, models.KindValidation, err.Error())
		return
	}

	filter := models.RequestFilter{
		BuyerCompanyID: query.Get("buyerCompanyId"),
		Limit:          limit,
		Offset:         offset,
	}
	for _, s := range query["status"] {
		status := models.RequestStatus(s)
		if !utils.Contains(requestStatuses, status) {
			utils.SendErrorResponse(w, models.NewValidationError("status", "unknown request status "+s))
			return
		}
		filter.Statuses = append(filter.Statuses, status)
	}

	requests, err := h.Service.ListRequests(ctx, actorFrom(r), filter)
	if err != nil {
		utils.WriteError(w, r, err, "failed to fetch requests")
		return
	}
	utils.WriteJSON(w, http.StatusOK, requests)
}

// GetRequest обрабатывает запросы для получения заявки.
func (h *RequestHandler) GetRequest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	req, err := h.Service.GetRequest(ctx, actorFrom(r), r.PathValue("requestId"))
	if err != nil {
		utils.WriteError(w, r, err, "failed to fetch request")
		return
	}
	utils.WriteJSON(w, http.StatusOK, req)
}

// CancelRequest обрабатывает запросы для отмены заявки покупателем.
func (h *RequestHandler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var body models.ReasonRequest
	if err := decodeBody(r, &body); err != nil {
		sendInvalidBody(w)
		return
	}

	req, err := h.Service.CancelRequest(ctx, actorFrom(r), r.PathValue("requestId"), body.Reason)
	if err != nil {
		utils.WriteError(w, r, err, "failed to cancel request")
		return
	}
	utils.WriteJSON(w, http.StatusOK, req)
}
