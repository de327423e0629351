package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/senyabanana/rfq-service/internal/blob"
	"github.com/senyabanana/rfq-service/internal/models"
	"github.com/senyabanana/rfq-service/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Виды документов заказа, часть ключа в хранилище.
const (
	DocPaymentProof  = "payment-proof"
	DocTTN           = "ttn"
	DocDeliveryPhoto = "delivery-photo"
)

type OrderService struct {
	*Core
	Blobs blob.Store
}

// NewOrderService создает новый экземпляр OrderService.
func NewOrderService(core *Core, blobs blob.Store) *OrderService {
	return &OrderService{Core: core, Blobs: blobs}
}

// createOrder создает заказ по принятому предложению. Сумма фиксируется из цены
// предложения. Заказ при безналичной оплате ждет оплаты, при наличной сразу
// уходит в подготовку.
func createOrder(ctx context.Context, repos repository.Repositories, actor models.Actor, req *models.Request, offer *models.Offer, now time.Time) (*models.Order, error) {
	order := &models.Order{
		ID:                uuid.NewString(),
		RequestID:         req.ID,
		OfferID:           offer.ID,
		BuyerCompanyID:    req.BuyerCompanyID,
		SupplierCompanyID: offer.SupplierCompanyID,
		TotalAmount:       offer.Price,
		Currency:          offer.Currency,
		PaymentMethod:     req.PaymentType,
		PaymentTerms:      models.TermsFor(req.PaymentType),
		Status:            models.OrderCreated,
		DeliveryPhotoKeys: []string{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	history := []models.OrderStatusHistory{historyEntry(order.ID, "", models.OrderCreated, actor, "", now)}

	next := models.OrderInPreparation
	if req.PaymentType == models.PaymentBankTransfer {
		next = models.OrderAwaitingPayment
	}
	entry, err := advance(order, next, actor, "", now)
	if err != nil {
		return nil, err
	}
	history = append(history, entry)
	if next == models.OrderInPreparation {
		order.StartedAt = &now
	}

	existing, err := repos.Orders().CountByRequest(ctx, req.ID)
	if err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}
	if existing > 0 {
		return nil, models.NewInvalidStateError("an order already exists for request %s", req.ID)
	}
	if err := repos.Orders().Create(ctx, order); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, models.NewInvalidStateError("an order already exists for request %s", req.ID)
		}
		return nil, fmt.Errorf("create order: %w", err)
	}
	for i := range history {
		if err := repos.Orders().AppendHistory(ctx, &history[i]); err != nil {
			return nil, fmt.Errorf("append order history: %w", err)
		}
	}
	return order, nil
}

func historyEntry(orderID string, from, to models.OrderStatus, actor models.Actor, note string, now time.Time) models.OrderStatusHistory {
	return models.OrderStatusHistory{
		ID:         uuid.NewString(),
		OrderID:    orderID,
		FromStatus: from,
		ToStatus:   to,
		ActorID:    actor.UserID,
		Note:       note,
		CreatedAt:  now,
	}
}

// advance переводит заказ в следующий статус и возвращает запись журнала.
func advance(order *models.Order, to models.OrderStatus, actor models.Actor, note string, now time.Time) (models.OrderStatusHistory, error) {
	if !order.Status.CanTransitionTo(to) {
		return models.OrderStatusHistory{}, models.NewInvalidStateError("order %s cannot move from %s to %s", order.ID, order.Status, to)
	}
	entry := historyEntry(order.ID, order.Status, to, actor, note, now)
	order.Status = to
	return entry, nil
}

// orderStep описывает одно действие над заказом.
type orderStep struct {
	side  models.Role // RoleAny - любая из сторон
	from  []models.OrderStatus
	apply func(order *models.Order, actor models.Actor, now time.Time) ([]models.OrderStatusHistory, error)
	// notify получает роль стороны, выполнившей действие.
	notify func(order *models.Order, side models.Role, now time.Time) []models.Notification
}

// requireSide проверяет, что пользователь действует за нужную сторону заказа.
func requireSide(ctx context.Context, a *Authorizer, actor models.Actor, order *models.Order, side models.Role) (models.Role, error) {
	switch side {
	case models.RoleBuyer:
		return models.RoleBuyer, a.Require(ctx, actor, order.BuyerCompanyID, models.RoleBuyer)
	case models.RoleSupplier:
		return models.RoleSupplier, a.Require(ctx, actor, order.SupplierCompanyID, models.RoleSupplier)
	}
	ok, err := a.HasRole(ctx, actor, order.SupplierCompanyID, models.RoleSupplier)
	if err != nil {
		return "", err
	}
	if ok {
		return models.RoleSupplier, nil
	}
	return models.RoleBuyer, a.Require(ctx, actor, order.BuyerCompanyID, models.RoleBuyer)
}

func checkSource(order *models.Order, from []models.OrderStatus) error {
	if !slices.Contains(from, order.Status) {
		return models.NewInvalidStateError("order %s is %s, expected one of %v", order.ID, order.Status, from)
	}
	return nil
}

// run выполняет действие над заказом в транзакции под блокировкой строки заказа.
func (s *OrderService) run(ctx context.Context, actor models.Actor, orderID string, step orderStep) (*models.Order, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	var order *models.Order
	var history []models.OrderStatusHistory
	var notes []models.Notification
	err := s.Store.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		order, err = getOrder(ctx, repos, orderID, true)
		if err != nil {
			return err
		}
		side, err := requireSide(ctx, authz(repos), actor, order, step.side)
		if err != nil {
			return err
		}
		if err := checkSource(order, step.from); err != nil {
			return err
		}

		now := s.now()
		history, err = step.apply(order, actor, now)
		if err != nil {
			return err
		}
		order.UpdatedAt = now
		if err := repos.Orders().Update(ctx, order); err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		for i := range history {
			if err := repos.Orders().AppendHistory(ctx, &history[i]); err != nil {
				return fmt.Errorf("append order history: %w", err)
			}
		}
		if step.notify != nil {
			notes = step.notify(order, side, now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, h := range history {
		countTransition("order", string(h.ToStatus))
	}
	s.publish(ctx, notes)
	return order, nil
}

// precheck отсекает заведомо невозможные действия до загрузки документов.
func (s *OrderService) precheck(ctx context.Context, actor models.Actor, orderID string, side models.Role, from []models.OrderStatus) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	order, err := getOrder(ctx, s.Store, orderID, false)
	if err != nil {
		return err
	}
	if _, err := requireSide(ctx, &Authorizer{Members: s.Store.Members()}, actor, order, side); err != nil {
		return err
	}
	return checkSource(order, from)
}

func validateDocument(field string, doc models.Document) error {
	if doc.Body == nil || doc.Size <= 0 {
		return models.NewValidationError(field, "file is empty")
	}
	return nil
}

// storeDocuments сохраняет документы под ключами orders/{order}/{kind}/{uuid}{ext}.
// При ошибке уже сохраненные документы удаляются.
func (s *OrderService) storeDocuments(ctx context.Context, orderID, kind string, docs []models.Document) ([]string, error) {
	keys := make([]string, 0, len(docs))
	for _, doc := range docs {
		key := fmt.Sprintf("orders/%s/%s/%s%s", orderID, kind, uuid.NewString(), strings.ToLower(filepath.Ext(doc.Name)))
		_, err := s.Blobs.Put(ctx, key, doc.Body, blob.PutOptions{
			ContentType: doc.ContentType,
			Metadata:    map[string]string{"filename": filepath.Base(doc.Name)},
		})
		if err != nil {
			s.discard(ctx, keys)
			return nil, fmt.Errorf("store %s: %w", kind, err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// discard удаляет документы, которые не попали в заказ.
func (s *OrderService) discard(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.Blobs.Delete(context.WithoutCancel(ctx), key); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("failed to delete orphaned document")
		}
	}
}

// ConfirmPayment - поставщик подтверждает получение оплаты.
func (s *OrderService) ConfirmPayment(ctx context.Context, actor models.Actor, orderID string) (*models.Order, error) {
	return s.run(ctx, actor, orderID, orderStep{
		side: models.RoleSupplier,
		from: []models.OrderStatus{models.OrderAwaitingPayment},
		apply: func(o *models.Order, actor models.Actor, now time.Time) ([]models.OrderStatusHistory, error) {
			o.PaymentConfirmedBySeller = true
			o.PaymentConfirmedAt = &now
			entry, err := advance(o, models.OrderPaymentConfirmed, actor, "payment confirmed by supplier", now)
			return []models.OrderStatusHistory{entry}, err
		},
		notify: func(o *models.Order, _ models.Role, now time.Time) []models.Notification {
			return []models.Notification{
				orderNotification(models.NotifyPaymentConfirmed, o.BuyerCompanyID, o.ID, "supplier confirmed your payment", now),
			}
		},
	})
}

// UploadPaymentProof - покупатель прикладывает платежный документ. Статус не меняется.
func (s *OrderService) UploadPaymentProof(ctx context.Context, actor models.Actor, orderID string, doc models.Document) (*models.Order, error) {
	if err := validateDocument("document", doc); err != nil {
		return nil, err
	}
	from := []models.OrderStatus{models.OrderAwaitingPayment}
	if err := s.precheck(ctx, actor, orderID, models.RoleBuyer, from); err != nil {
		return nil, err
	}
	keys, err := s.storeDocuments(ctx, orderID, DocPaymentProof, []models.Document{doc})
	if err != nil {
		return nil, err
	}

	var previous *string
	order, err := s.run(ctx, actor, orderID, orderStep{
		side: models.RoleBuyer,
		from: from,
		apply: func(o *models.Order, _ models.Actor, _ time.Time) ([]models.OrderStatusHistory, error) {
			previous = o.PaymentProofKey
			o.PaymentProofKey = &keys[0]
			return nil, nil
		},
		notify: func(o *models.Order, _ models.Role, now time.Time) []models.Notification {
			return []models.Notification{
				orderNotification(models.NotifyPaymentProof, o.SupplierCompanyID, o.ID, "buyer uploaded a payment document", now),
			}
		},
	})
	if err != nil {
		s.discard(ctx, keys)
		return nil, err
	}
	if previous != nil {
		s.discard(ctx, []string{*previous})
	}
	return order, nil
}

// StartPreparation - поставщик начинает сборку оплаченного заказа.
func (s *OrderService) StartPreparation(ctx context.Context, actor models.Actor, orderID string) (*models.Order, error) {
	return s.run(ctx, actor, orderID, orderStep{
		side: models.RoleSupplier,
		from: []models.OrderStatus{models.OrderPaymentConfirmed},
		apply: func(o *models.Order, actor models.Actor, now time.Time) ([]models.OrderStatusHistory, error) {
			o.StartedAt = &now
			entry, err := advance(o, models.OrderInPreparation, actor, "", now)
			return []models.OrderStatusHistory{entry}, err
		},
		notify: statusChangedForBuyer,
	})
}

// MarkReady - заказ собран и готов к отгрузке.
func (s *OrderService) MarkReady(ctx context.Context, actor models.Actor, orderID string) (*models.Order, error) {
	return s.run(ctx, actor, orderID, orderStep{
		side: models.RoleSupplier,
		from: []models.OrderStatus{models.OrderInPreparation},
		apply: func(o *models.Order, actor models.Actor, now time.Time) ([]models.OrderStatusHistory, error) {
			entry, err := advance(o, models.OrderReadyForDelivery, actor, "", now)
			return []models.OrderStatusHistory{entry}, err
		},
		notify: statusChangedForBuyer,
	})
}

// UploadTTN - поставщик прикладывает товарно-транспортную накладную, заказ уходит в доставку.
func (s *OrderService) UploadTTN(ctx context.Context, actor models.Actor, orderID string, doc models.Document) (*models.Order, error) {
	if err := validateDocument("document", doc); err != nil {
		return nil, err
	}
	from := []models.OrderStatus{models.OrderInPreparation, models.OrderReadyForDelivery}
	if err := s.precheck(ctx, actor, orderID, models.RoleSupplier, from); err != nil {
		return nil, err
	}
	keys, err := s.storeDocuments(ctx, orderID, DocTTN, []models.Document{doc})
	if err != nil {
		return nil, err
	}

	order, err := s.run(ctx, actor, orderID, orderStep{
		side: models.RoleSupplier,
		from: from,
		apply: func(o *models.Order, actor models.Actor, now time.Time) ([]models.OrderStatusHistory, error) {
			o.TTNKey = &keys[0]
			entry, err := advance(o, models.OrderInTransit, actor, "waybill uploaded", now)
			return []models.OrderStatusHistory{entry}, err
		},
		notify: func(o *models.Order, _ models.Role, now time.Time) []models.Notification {
			return []models.Notification{
				orderNotification(models.NotifyOrderShipped, o.BuyerCompanyID, o.ID, "order has been shipped", now),
			}
		},
	})
	if err != nil {
		s.discard(ctx, keys)
		return nil, err
	}
	return order, nil
}

// MarkDelivered - поставщик отмечает, что груз доставлен.
func (s *OrderService) MarkDelivered(ctx context.Context, actor models.Actor, orderID string) (*models.Order, error) {
	return s.run(ctx, actor, orderID, orderStep{
		side: models.RoleSupplier,
		from: []models.OrderStatus{models.OrderInTransit},
		apply: func(o *models.Order, actor models.Actor, now time.Time) ([]models.OrderStatusHistory, error) {
			entry, err := advance(o, models.OrderDelivered, actor, "", now)
			return []models.OrderStatusHistory{entry}, err
		},
		notify: statusChangedForBuyer,
	})
}

// ConfirmDelivery - покупатель подтверждает получение с фото груза, заказ завершается.
// Для оплаты наличными оплата считается полученной в момент подтверждения.
func (s *OrderService) ConfirmDelivery(ctx context.Context, actor models.Actor, orderID string, photos []models.Document) (*models.Order, error) {
	if len(photos) == 0 {
		return nil, models.NewValidationError("photos", "at least one photo is required")
	}
	for i, p := range photos {
		if err := validateDocument(fmt.Sprintf("photos[%d]", i), p); err != nil {
			return nil, err
		}
	}
	from := []models.OrderStatus{models.OrderDelivered}
	if err := s.precheck(ctx, actor, orderID, models.RoleBuyer, from); err != nil {
		return nil, err
	}
	keys, err := s.storeDocuments(ctx, orderID, DocDeliveryPhoto, photos)
	if err != nil {
		return nil, err
	}

	order, err := s.run(ctx, actor, orderID, orderStep{
		side: models.RoleBuyer,
		from: from,
		apply: func(o *models.Order, actor models.Actor, now time.Time) ([]models.OrderStatusHistory, error) {
			o.DeliveryPhotoKeys = append(o.DeliveryPhotoKeys, keys...)
			if o.PaymentMethod == models.PaymentCash && o.PaymentConfirmedAt == nil {
				o.PaymentConfirmedAt = &now
			}
			confirmed, err := advance(o, models.OrderConfirmed, actor, "delivery confirmed by buyer", now)
			if err != nil {
				return nil, err
			}
			completed, err := advance(o, models.OrderCompleted, actor, "", now)
			if err != nil {
				return nil, err
			}
			o.CompletedAt = &now
			return []models.OrderStatusHistory{confirmed, completed}, nil
		},
		notify: func(o *models.Order, _ models.Role, now time.Time) []models.Notification {
			return []models.Notification{
				orderNotification(models.NotifyOrderCompleted, o.BuyerCompanyID, o.ID, "order has been completed", now),
				orderNotification(models.NotifyRateOrder, o.BuyerCompanyID, o.ID, "please rate the supplier", now),
			}
		},
	})
	if err != nil {
		s.discard(ctx, keys)
		return nil, err
	}
	return order, nil
}

// CancelOrder отменяет заказ до начала оплаты. Доступно обеим сторонам.
func (s *OrderService) CancelOrder(ctx context.Context, actor models.Actor, orderID, reason string) (*models.Order, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, models.NewValidationError("reason", "is required")
	}
	return s.run(ctx, actor, orderID, orderStep{
		side: models.RoleAny,
		from: []models.OrderStatus{models.OrderCreated, models.OrderAwaitingPayment},
		apply: func(o *models.Order, actor models.Actor, now time.Time) ([]models.OrderStatusHistory, error) {
			o.CancellationReason = &reason
			o.CancelledAt = &now
			entry, err := advance(o, models.OrderCancelled, actor, reason, now)
			return []models.OrderStatusHistory{entry}, err
		},
		notify: func(o *models.Order, side models.Role, now time.Time) []models.Notification {
			recipient := o.SupplierCompanyID
			if side == models.RoleSupplier {
				recipient = o.BuyerCompanyID
			}
			return []models.Notification{
				orderNotification(models.NotifyOrderCancelled, recipient, o.ID, reason, now),
			}
		},
	})
}

func statusChangedForBuyer(o *models.Order, _ models.Role, now time.Time) []models.Notification {
	return []models.Notification{
		orderNotification(models.NotifyOrderStatus, o.BuyerCompanyID, o.ID, "order status changed to "+string(o.Status), now),
	}
}

// GetOrder возвращает заказ одной из его сторон.
func (s *OrderService) GetOrder(ctx context.Context, actor models.Actor, orderID string) (*models.Order, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	order, err := getOrder(ctx, s.Store, orderID, false)
	if err != nil {
		return nil, err
	}
	if err := s.requireParty(ctx, actor, order); err != nil {
		return nil, err
	}
	return order, nil
}

// ListOrders возвращает заказы, где компания покупатель или поставщик.
func (s *OrderService) ListOrders(ctx context.Context, actor models.Actor, companyID string, limit, offset int) ([]models.Order, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if companyID == "" {
		return nil, models.NewValidationError("companyId", "is required")
	}
	if err := (&Authorizer{Members: s.Store.Members()}).Require(ctx, actor, companyID, models.RoleAny); err != nil {
		return nil, err
	}
	orders, err := s.Store.Orders().ListByCompany(ctx, companyID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

// OrderHistory возвращает журнал статусов заказа.
func (s *OrderService) OrderHistory(ctx context.Context, actor models.Actor, orderID string) ([]models.OrderStatusHistory, error) {
	if _, err := s.GetOrder(ctx, actor, orderID); err != nil {
		return nil, err
	}
	history, err := s.Store.Orders().ListHistory(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list order history: %w", err)
	}
	if history == nil {
		history = []models.OrderStatusHistory{}
	}
	return history, nil
}

// Document отдает документ заказа любой из его сторон. Ключ должен быть
// привязан к этому заказу, иначе документ считается ненайденным.
func (s *OrderService) Document(ctx context.Context, actor models.Actor, orderID, key string) (blob.Info, io.ReadCloser, error) {
	order, err := s.GetOrder(ctx, actor, orderID)
	if err != nil {
		return blob.Info{}, nil, err
	}
	if !hasDocument(order, key) {
		return blob.Info{}, nil, models.NewNotFoundError("document", key)
	}
	info, body, err := s.Blobs.Get(ctx, key)
	if errors.Is(err, blob.ErrNotFound) {
		return blob.Info{}, nil, models.NewNotFoundError("document", key)
	}
	if err != nil {
		return blob.Info{}, nil, fmt.Errorf("fetch document %s: %w", key, err)
	}
	return info, body, nil
}

func hasDocument(order *models.Order, key string) bool {
	if key == "" {
		return false
	}
	if order.PaymentProofKey != nil && *order.PaymentProofKey == key {
		return true
	}
	if order.TTNKey != nil && *order.TTNKey == key {
		return true
	}
	return slices.Contains(order.DeliveryPhotoKeys, key)
}

func (s *OrderService) requireParty(ctx context.Context, actor models.Actor, order *models.Order) error {
	a := &Authorizer{Members: s.Store.Members()}
	ok, err := a.HasRole(ctx, actor, order.BuyerCompanyID, models.RoleAny)
	if err != nil || ok {
		return err
	}
	return a.Require(ctx, actor, order.SupplierCompanyID, models.RoleAny)
}
