package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/senyabanana/rfq-service/internal/metrics"
	"github.com/senyabanana/rfq-service/internal/models"
	"github.com/senyabanana/rfq-service/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const dateLayout = "2006-01-02"

// NotificationPort принимает уведомления. Реализация решает, как их доставить;
// ошибка доставки никогда не откатывает переход статуса.
type NotificationPort interface {
	Notify(ctx context.Context, n models.Notification) error
}

// Core - общие зависимости реестров.
type Core struct {
	Store    repository.Store
	Notifier NotificationPort
	Now      func() time.Time
}

// NewCore создает Core. Если now не задан, используется time.Now.
func NewCore(store repository.Store, notifier NotificationPort, now func() time.Time) *Core {
	if now == nil {
		now = time.Now
	}
	return &Core{Store: store, Notifier: notifier, Now: now}
}

func (c *Core) now() time.Time {
	return c.Now().UTC()
}

// publish отправляет уведомления после коммита. Ошибки только логируются.
func (c *Core) publish(ctx context.Context, notes []models.Notification) {
	if c.Notifier == nil {
		return
	}
	for _, n := range notes {
		if err := c.Notifier.Notify(ctx, n); err != nil {
			log.Warn().Err(err).
				Str("kind", string(n.Kind)).
				Str("recipient", n.RecipientCompanyID).
				Str("entity_id", n.EntityID).
				Msg("notification was not queued")
		}
	}
}

func newNotification(kind models.NotificationKind, recipient, entityType, entityID, message string, now time.Time) models.Notification {
	return models.Notification{
		ID:                 uuid.NewString(),
		Kind:               kind,
		RecipientCompanyID: recipient,
		EntityType:         entityType,
		EntityID:           entityID,
		Message:            message,
		CreatedAt:          now,
	}
}

func orderNotification(kind models.NotificationKind, recipient, orderID, message string, now time.Time) models.Notification {
	n := newNotification(kind, recipient, "order", orderID, message, now)
	n.OrderID = orderID
	return n
}

func countTransition(entity, to string) {
	metrics.Transitions.WithLabelValues(entity, to).Inc()
}

// Authorizer - единая проверка "пользователь состоит в компании с ролью".
type Authorizer struct {
	Members repository.MembershipRepository
}

// HasRole проверяет членство. Пустая роль означает любую роль.
func (a *Authorizer) HasRole(ctx context.Context, actor models.Actor, companyID string, role models.Role) (bool, error) {
	if actor.UserID == "" || companyID == "" {
		return false, nil
	}
	ok, err := a.Members.HasRole(ctx, actor.UserID, companyID, role)
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return ok, nil
}

// Require возвращает PermissionError, если у пользователя нет роли в компании.
func (a *Authorizer) Require(ctx context.Context, actor models.Actor, companyID string, role models.Role) error {
	ok, err := a.HasRole(ctx, actor, companyID, role)
	if err != nil {
		return err
	}
	if !ok {
		if role == models.RoleAny {
			return models.NewPermissionError("user %s is not a member of company %s", actor.UserID, companyID)
		}
		return models.NewPermissionError("user %s is not a %s member of company %s", actor.UserID, role, companyID)
	}
	return nil
}

// requireCompany возвращает ошибку валидации поля field, если компании нет в справочнике.
func requireCompany(ctx context.Context, ref repository.ReferenceRepository, field, companyID string) error {
	ok, err := ref.CompanyExists(ctx, companyID)
	if err != nil {
		return fmt.Errorf("check company: %w", err)
	}
	if !ok {
		return models.NewValidationError(field, "unknown company")
	}
	return nil
}

func authz(repos repository.Repositories) *Authorizer {
	return &Authorizer{Members: repos.Members()}
}

func requireActor(actor models.Actor) error {
	if actor.UserID == "" {
		return models.NewErrorResponse(models.KindUnauthorized, http.StatusUnauthorized, "authentication required")
	}
	return nil
}

// notFound переводит repository.ErrNotFound в NotFoundError.
func notFound(err error, entity, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return models.NewNotFoundError(entity, id)
	}
	return fmt.Errorf("load %s %s: %w", entity, id, err)
}

func getRequest(ctx context.Context, repos repository.Repositories, id string, forUpdate bool) (*models.Request, error) {
	req, err := repos.Requests().Get(ctx, id, forUpdate)
	if err != nil {
		return nil, notFound(err, "request", id)
	}
	return req, nil
}

func getOffer(ctx context.Context, repos repository.Repositories, id string, forUpdate bool) (*models.Offer, error) {
	offer, err := repos.Offers().Get(ctx, id, forUpdate)
	if err != nil {
		return nil, notFound(err, "offer", id)
	}
	return offer, nil
}

func getCounterOffer(ctx context.Context, repos repository.Repositories, id string, forUpdate bool) (*models.CounterOffer, error) {
	co, err := repos.CounterOffers().Get(ctx, id, forUpdate)
	if err != nil {
		return nil, notFound(err, "counter offer", id)
	}
	return co, nil
}

func getOrder(ctx context.Context, repos repository.Repositories, id string, forUpdate bool) (*models.Order, error) {
	order, err := repos.Orders().Get(ctx, id, forUpdate)
	if err != nil {
		return nil, notFound(err, "order", id)
	}
	return order, nil
}

// lockOfferWithRequest блокирует заявку, затем предложение. Все операции над
// предложениями берут блокировки в этом порядке.
func lockOfferWithRequest(ctx context.Context, repos repository.Repositories, offerID string) (*models.Offer, *models.Request, error) {
	peek, err := getOffer(ctx, repos, offerID, false)
	if err != nil {
		return nil, nil, err
	}
	req, err := getRequest(ctx, repos, peek.RequestID, true)
	if err != nil {
		return nil, nil, err
	}
	offer, err := getOffer(ctx, repos, offerID, true)
	if err != nil {
		return nil, nil, err
	}
	return offer, req, nil
}

// parseFutureDate разбирает дату YYYY-MM-DD и требует, чтобы она была позже сегодняшней.
func parseFutureDate(value string, now time.Time) (time.Time, string) {
	date, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, "must be a date in YYYY-MM-DD format"
	}
	today := now.UTC().Truncate(24 * time.Hour)
	if !date.After(today) {
		return time.Time{}, "must be later than today"
	}
	return date, ""
}

func strPtr(s string) *string {
	return &s
}
