package handlers

import (
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/senyabanana/rfq-service/internal/models"
	"github.com/senyabanana/rfq-service/internal/services"
	"github.com/senyabanana/rfq-service/internal/utils"

	"github.com/rs/zerolog/log"
)

// DefaultMaxUploadBytes - ограничение размера multipart-запроса по умолчанию.
const DefaultMaxUploadBytes = 20 << 20

const multipartMemory = 8 << 20

// OrderHandler - структура для обработки HTTP-запросов по заказам.
type OrderHandler struct {
	Service        *services.OrderService
	Timeout        time.Duration
	MaxUploadBytes int64
}

// NewOrderHandler создаёт новый экземпляр OrderHandler.
func NewOrderHandler(service *services.OrderService, timeout time.Duration, maxUploadBytes int64) *OrderHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &OrderHandler{
		Service:        service,
		Timeout:        timeout,
		MaxUploadBytes: maxUploadBytes,
	}
}

type orderAction func(ctx context.Context, actor models.Actor, orderID string) (*models.Order, error)

// ListOrders обрабатывает запросы для получения заказов компании.
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	query := r.URL.Query()
	limit, offset, err := utils.ParseLimitOffset(query.Get("limit"), query.Get("offset"))
	if err != nil {
		utils.SendError(w, http.StatusBadRequest, models.KindValidation, err.Error())
		return
	}

	orders, err := h.Service.ListOrders(ctx, actorFrom(r), query.Get("companyId"), limit, offset)
	if err != nil {
		utils.WriteError(w, r, err, "failed to fetch orders")
		return
	}
	utils.WriteJSON(w, http.StatusOK, orders)
}

// GetOrder обрабатывает запросы для получения заказа.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, h.Service.GetOrder, "failed to fetch order")
}

// OrderHistory обрабатывает запросы для получения журнала статусов заказа.
func (h *OrderHandler) OrderHistory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	history, err := h.Service.OrderHistory(ctx, actorFrom(r), r.PathValue("orderId"))
	if err != nil {
		utils.WriteError(w, r, err, "failed to fetch order history")
		return
	}
	utils.WriteJSON(w, http.StatusOK, history)
}

// ConfirmPayment - поставщик подтверждает получение оплаты.
func (h *OrderHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, h.Service.ConfirmPayment, "failed to confirm payment")
}

// StartPreparation - поставщик начинает сборку заказа.
func (h *OrderHandler) StartPreparation(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, h.Service.StartPreparation, "failed to start preparation")
}

// MarkReady - поставщик отмечает готовность к отгрузке.
func (h *OrderHandler) MarkReady(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, h.Service.MarkReady, "failed to mark order ready")
}

// MarkDelivered - поставщик отмечает доставку.
func (h *OrderHandler) MarkDelivered(w http.ResponseWriter, r *http.Request) {
	h.action(w, r, h.Service.MarkDelivered, "failed to mark order delivered")
}

// UploadPaymentProof - покупатель прикладывает платежное поручение (поле file).
func (h *OrderHandler) UploadPaymentProof(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, "file", h.Service.UploadPaymentProof, "failed to upload payment proof")
}

// UploadTTN - поставщик прикладывает ТТН (поле file) и отправляет заказ.
func (h *OrderHandler) UploadTTN(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, "file", h.Service.UploadTTN, "failed to upload ttn")
}

// ConfirmDelivery - покупатель подтверждает получение, фото груза в полях photos.
func (h *OrderHandler) ConfirmDelivery(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var photos []models.Document
	if isMultipart(r) {
		if !h.parseMultipart(w, r) {
			return
		}
		defer cleanupMultipart(r)

		docs, closeAll, err := openDocuments(r.MultipartForm.File["photos"])
		defer closeAll()
		if err != nil {
			utils.SendErrorResponse(w, models.NewValidationError("photos", "cannot read uploaded file"))
			return
		}
		photos = docs
	}

	order, err := h.Service.ConfirmDelivery(ctx, actorFrom(r), r.PathValue("orderId"), photos)
	if err != nil {
		utils.WriteError(w, r, err, "failed to confirm delivery")
		return
	}
	utils.WriteJSON(w, http.StatusOK, order)
}

// Document отдает документ заказа по ключу из представления заказа.
func (h *OrderHandler) Document(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	info, body, err := h.Service.Document(ctx, actorFrom(r), r.PathValue("orderId"), r.PathValue("key"))
	if err != nil {
		utils.WriteError(w, r, err, "failed to fetch document")
		return
	}
	defer body.Close()

	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	if info.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	}
	if name := info.Metadata["filename"]; name != "" {
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		log.Warn().Err(err).Str("key", info.Key).Msg("failed to stream document")
	}
}

// CancelOrder - любая сторона отменяет заказ до начала сборки.
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var body models.ReasonRequest
	if err := decodeBody(r, &body); err != nil {
		sendInvalidBody(w)
		return
	}

	order, err := h.Service.CancelOrder(ctx, actorFrom(r), r.PathValue("orderId"), body.Reason)
	if err != nil {
		utils.WriteError(w, r, err, "failed to cancel order")
		return
	}
	utils.WriteJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) action(w http.ResponseWriter, r *http.Request, fn orderAction, failure string) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	order, err := fn(ctx, actorFrom(r), r.PathValue("orderId"))
	if err != nil {
		utils.WriteError(w, r, err, failure)
		return
	}
	utils.WriteJSON(w, http.StatusOK, order)
}

type documentAction func(ctx context.Context, actor models.Actor, orderID string, doc models.Document) (*models.Order, error)

func (h *OrderHandler) upload(w http.ResponseWriter, r *http.Request, field string, fn documentAction, failure string) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	if !isMultipart(r) {
		utils.SendErrorResponse(w, models.NewValidationError(field, "multipart/form-data upload is required"))
		return
	}
	if !h.parseMultipart(w, r) {
		return
	}
	defer cleanupMultipart(r)

	files := r.MultipartForm.File[field]
	if len(files) != 1 {
		utils.SendErrorResponse(w, models.NewValidationError(field, "exactly one file is required"))
		return
	}
	docs, closeAll, err := openDocuments(files)
	defer closeAll()
	if err != nil {
		utils.SendErrorResponse(w, models.NewValidationError(field, "cannot read uploaded file"))
		return
	}

	order, err := fn(ctx, actorFrom(r), r.PathValue("orderId"), docs[0])
	if err != nil {
		utils.WriteError(w, r, err, failure)
		return
	}
	utils.WriteJSON(w, http.StatusOK, order)
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// parseMultipart ограничивает размер тела и разбирает форму. При ошибке ответ уже записан.
func (h *OrderHandler) parseMultipart(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.SendError(w, http.StatusRequestEntityTooLarge, models.KindValidation, "upload exceeds size limit")
			return false
		}
		sendInvalidBody(w)
		return false
	}
	return true
}

func cleanupMultipart(r *http.Request) {
	if r.MultipartForm == nil {
		return
	}
	if err := r.MultipartForm.RemoveAll(); err != nil {
		log.Warn().Err(err).Msg("failed to remove multipart temp files")
	}
}

func openDocuments(files []*multipart.FileHeader) ([]models.Document, func(), error) {
	var opened []multipart.File
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}

	docs := make([]models.Document, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, closeAll, err
		}
		opened = append(opened, f)
		docs = append(docs, models.Document{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Body:        f,
		})
	}
	return docs, closeAll, nil
}
