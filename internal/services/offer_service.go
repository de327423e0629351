package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/senyabanana/rfq-service/internal/metrics"
	"github.com/senyabanana/rfq-service/internal/models"
	"github.com/senyabanana/rfq-service/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const DefaultOfferTTL = 24 * time.Hour

var currencyCode = regexp.MustCompile(`^[A-Z]{3}$`)

type OfferService struct {
	*Core
	TTL time.Duration
}

// NewOfferService создает новый экземпляр OfferService.
func NewOfferService(core *Core, ttl time.Duration) *OfferService {
	if ttl <= 0 {
		ttl = DefaultOfferTTL
	}
	return &OfferService{Core: core, TTL: ttl}
}

// CreateOffer создает предложение поставщика по открытой заявке.
func (s *OfferService) CreateOffer(ctx context.Context, actor models.Actor, in models.OfferRequest) (*models.Offer, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if fields := validateOfferRequest(in); len(fields) > 0 {
		return nil, models.NewValidationErrors(fields)
	}

	now := s.now()
	var offer *models.Offer
	var notes []models.Notification
	err := s.Store.WithinTx(ctx, func(repos repository.Repositories) error {
		if err := requireCompany(ctx, repos.Reference(), "supplierCompanyId", in.SupplierCompanyID); err != nil {
			return err
		}
		if err := authz(repos).Require(ctx, actor, in.SupplierCompanyID, models.RoleSupplier); err != nil {
			return err
		}
		req, err := getRequest(ctx, repos, in.RequestID, true)
		if err != nil {
			return err
		}
		if req.BuyerCompanyID == in.SupplierCompanyID {
			return models.NewPermissionError("company %s cannot make an offer on its own request", in.SupplierCompanyID)
		}
		if req.Status != models.RequestOpen {
			return models.NewValidationError("requestId", fmt.Sprintf("request is %s, offers are accepted only while it is OPEN", req.Status))
		}
		if !now.Before(req.ExpiresAt) {
			return models.NewValidationError("requestId", "request has expired")
		}
		occupied, err := repos.Offers().HasOccupying(ctx, req.ID, in.SupplierCompanyID)
		if err != nil {
			return fmt.Errorf("check active offers: %w", err)
		}
		if occupied {
			return models.NewDuplicateActiveOfferError(req.ID)
		}

		volume := req.Quantity
		if in.Volume != nil {
			volume = *in.Volume
		}
		offer = &models.Offer{
			ID:                uuid.NewString(),
			RequestID:         req.ID,
			SupplierCompanyID: in.SupplierCompanyID,
			CreatedBy:         actor.UserID,
			Price:             in.Price,
			Currency:          in.Currency,
			Volume:            volume,
			EtaDays:           in.EtaDays,
			DeliveryDate:      now.Truncate(24*time.Hour).AddDate(0, 0, in.EtaDays),
			DeliveryIncluded:  in.DeliveryIncluded,
			WarrantyPeriod:    in.WarrantyPeriod,
			SpecialConditions: in.SpecialConditions,
			Comment:           in.Comment,
			Status:            models.OfferPending,
			CreatedAt:         now,
			ExpiresAt:         now.Add(s.TTL),
			UpdatedAt:         now,
		}
		if err := repos.Offers().Create(ctx, offer); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return models.NewDuplicateActiveOfferError(req.ID)
			}
			return fmt.Errorf("create offer: %w", err)
		}
		notes = append(notes, newNotification(models.NotifyOfferCreated, req.BuyerCompanyID, "offer", offer.ID,
			"new offer on your request", now))
		return nil
	})
	if err != nil {
		return nil, err
	}
	countTransition("offer", string(models.OfferPending))
	s.publish(ctx, notes)
	return offer, nil
}

func validateOfferRequest(in models.OfferRequest) map[string]string {
	fields := make(map[string]string)
	if in.RequestID == "" {
		fields["requestId"] = "is required"
	}
	if in.SupplierCompanyID == "" {
		fields["supplierCompanyId"] = "is required"
	}
	if !in.Price.IsPositive() {
		fields["price"] = "must be greater than zero"
	}
	if !currencyCode.MatchString(in.Currency) {
		fields["currency"] = "must be a three-letter currency code"
	}
	if in.EtaDays <= 0 {
		fields["etaDays"] = "must be greater than zero"
	}
	if in.Volume != nil && !in.Volume.IsPositive() {
		fields["volume"] = "must be greater than zero"
	}
	return fields
}

// AcceptOffer принимает предложение. В одной транзакции: предложение ACCEPTED,
// остальные активные предложения по заявке REJECTED, заявка CLOSED, создан заказ.
func (s *OfferService) AcceptOffer(ctx context.Context, actor models.Actor, offerID string) (*models.AcceptOfferResponse, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	var resp *models.AcceptOfferResponse
	var notes []models.Notification
	var rejected int
	var initial models.OrderStatus
	err := s.Store.WithinTx(ctx, func(repos repository.Repositories) error {
		offer, req, err := lockOfferWithRequest(ctx, repos, offerID)
		if err != nil {
			return err
		}
		if err := authz(repos).Require(ctx, actor, req.BuyerCompanyID, models.RoleBuyer); err != nil {
			return err
		}

		now := s.now()
		if !offer.Status.CanTransitionTo(models.OfferAccepted) {
			return models.NewInvalidStateError("offer %s is %s and cannot be accepted", offer.ID, offer.Status)
		}
		if offer.Status == models.OfferPending && !now.Before(offer.ExpiresAt) {
			return models.NewInvalidStateError("offer %s has expired", offer.ID)
		}
		if req.Status != models.RequestOpen {
			return models.NewInvalidStateError("request %s is %s, an offer can be accepted only while it is OPEN", req.ID, req.Status)
		}
		if !now.Before(req.ExpiresAt) {
			return models.NewInvalidStateError("request %s has expired", req.ID)
		}

		offer.Status = models.OfferAccepted
		offer.UpdatedAt = now
		if err := repos.Offers().Update(ctx, offer); err != nil {
			return fmt.Errorf("accept offer: %w", err)
		}

		siblings, err := repos.Offers().ListByRequest(ctx, req.ID, []models.OfferStatus{models.OfferPending, models.OfferCounterOffered})
		if err != nil {
			return fmt.Errorf("list sibling offers: %w", err)
		}
		for i := range siblings {
			sibling := &siblings[i]
			if sibling.ID == offer.ID {
				continue
			}
			sibling.Status = models.OfferRejected
			sibling.Reason = strPtr(models.ReasonAnotherOfferAccepted)
			sibling.UpdatedAt = now
			if err := repos.Offers().Update(ctx, sibling); err != nil {
				return fmt.Errorf("reject sibling offer %s: %w", sibling.ID, err)
			}
			rejected++
			notes = append(notes, newNotification(models.NotifyOfferRejected, sibling.SupplierCompanyID, "offer", sibling.ID,
				models.ReasonAnotherOfferAccepted, now))
		}

		if err := closeRequest(ctx, repos, req, now); err != nil {
			return err
		}

		order, err := createOrder(ctx, repos, actor, req, offer, now)
		if err != nil {
			return err
		}
		initial = order.Status

		notes = append(notes,
			orderNotification(models.NotifyOfferAccepted, offer.SupplierCompanyID, order.ID, "your offer has been accepted", now),
			orderNotification(models.NotifyOrderCreated, req.BuyerCompanyID, order.ID, "order has been created", now),
		)
		resp = &models.AcceptOfferResponse{Offer: offer, OrderID: order.ID}
		return nil
	})
	if err != nil {
		return nil, err
	}
	countTransition("offer", string(models.OfferAccepted))
	metrics.Transitions.WithLabelValues("offer", string(models.OfferRejected)).Add(float64(rejected))
	countTransition("request", string(models.RequestClosed))
	countTransition("order", string(initial))
	s.publish(ctx, notes)
	return resp, nil
}

// RejectOffer отклоняет предложение. Доступно только покупателю.
func (s *OfferService) RejectOffer(ctx context.Context, actor models.Actor, offerID, reason string) (*models.Offer, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, models.NewValidationError("reason", "is required")
	}

	var offer *models.Offer
	var notes []models.Notification
	err := s.Store.WithinTx(ctx, func(repos repository.Repositories) error {
		var req *models.Request
		var err error
		offer, req, err = lockOfferWithRequest(ctx, repos, offerID)
		if err != nil {
			return err
		}
		if err := authz(repos).Require(ctx, actor, req.BuyerCompanyID, models.RoleBuyer); err != nil {
			return err
		}
		if !offer.Status.CanTransitionTo(models.OfferRejected) {
			return models.NewInvalidStateError("offer %s is %s and cannot be rejected", offer.ID, offer.Status)
		}
		now := s.now()
		offer.Status = models.OfferRejected
		offer.Reason = &reason
		offer.UpdatedAt = now
		if err := repos.Offers().Update(ctx, offer); err != nil {
			return fmt.Errorf("reject offer: %w", err)
		}
		notes = append(notes, newNotification(models.NotifyOfferRejected, offer.SupplierCompanyID, "offer", offer.ID, reason, now))
		return nil
	})
	if err != nil {
		return nil, err
	}
	countTransition("offer", string(models.OfferRejected))
	s.publish(ctx, notes)
	return offer, nil
}

// CancelOffer отменяет предложение. Отменить может поставщик или покупатель;
// уведомление получает другая сторона.
func (s *OfferService) CancelOffer(ctx context.Context, actor models.Actor, offerID, reason string) (*models.Offer, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, models.NewValidationError("reason", "is required")
	}

	var offer *models.Offer
	var notes []models.Notification
	err := s.Store.WithinTx(ctx, func(repos repository.Repositories) error {
		var req *models.Request
		var err error
		offer, req, err = lockOfferWithRequest(ctx, repos, offerID)
		if err != nil {
			return err
		}

		a := authz(repos)
		recipient := req.BuyerCompanyID
		isSupplier, err := a.HasRole(ctx, actor, offer.SupplierCompanyID, models.RoleSupplier)
		if err != nil {
			return err
		}
		if !isSupplier {
			if err := a.Require(ctx, actor, req.BuyerCompanyID, models.RoleBuyer); err != nil {
				return err
			}
			recipient = offer.SupplierCompanyID
		}

		if !offer.Status.CanTransitionTo(models.OfferCancelled) {
			return models.NewInvalidStateError("offer %s is %s and cannot be cancelled", offer.ID, offer.Status)
		}
		now := s.now()
		offer.Status = models.OfferCancelled
		offer.Reason = &reason
		offer.UpdatedAt = now
		if err := repos.Offers().Update(ctx, offer); err != nil {
			return fmt.Errorf("cancel offer: %w", err)
		}
		notes = append(notes, newNotification(models.NotifyOfferCancelled, recipient, "offer", offer.ID, reason, now))
		return nil
	})
	if err != nil {
		return nil, err
	}
	countTransition("offer", string(models.OfferCancelled))
	s.publish(ctx, notes)
	return offer, nil
}

// ExpireSweep переводит в EXPIRED ожидающие предложения с истекшим сроком.
func (s *OfferService) ExpireSweep(ctx context.Context) (int, error) {
	now := s.now()
	ids, err := s.Store.Offers().ListExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list expired offers: %w", err)
	}

	expired := 0
	for _, id := range ids {
		var note *models.Notification
		err := s.Store.WithinTx(ctx, func(repos repository.Repositories) error {
			offer, _, err := lockOfferWithRequest(ctx, repos, id)
			if err != nil {
				return err
			}
			if offer.Status != models.OfferPending || offer.ExpiresAt.After(now) {
				return nil
			}
			offer.Status = models.OfferExpired
			offer.UpdatedAt = now
			if err := repos.Offers().Update(ctx, offer); err != nil {
				return err
			}
			n := newNotification(models.NotifyOfferExpired, offer.SupplierCompanyID, "offer", offer.ID, "offer has expired", now)
			note = &n
			return nil
		})
		if err != nil {
			metrics.SweepRows.WithLabelValues("offer_expire_scan", "failed").Inc()
			log.Error().Err(err).Str("offer_id", id).Msg("failed to expire offer")
			continue
		}
		if note == nil {
			continue
		}
		expired++
		metrics.SweepRows.WithLabelValues("offer_expire_scan", "expired").Inc()
		countTransition("offer", string(models.OfferExpired))
		s.publish(ctx, []models.Notification{*note})
	}
	return expired, nil
}

// GetOffer возвращает предложение. Видно поставщику и покупателю заявки.
func (s *OfferService) GetOffer(ctx context.Context, actor models.Actor, offerID string) (*models.Offer, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	offer, err := getOffer(ctx, s.Store, offerID, false)
	if err != nil {
		return nil, err
	}
	req, err := getRequest(ctx, s.Store, offer.RequestID, false)
	if err != nil {
		return nil, err
	}
	if err := requireOfferParty(ctx, &Authorizer{Members: s.Store.Members()}, actor, offer, req); err != nil {
		return nil, err
	}
	return offer, nil
}

// ListOffersForRequest возвращает предложения по заявке: покупателю - все,
// поставщику - только свои.
func (s *OfferService) ListOffersForRequest(ctx context.Context, actor models.Actor, requestID string) ([]models.Offer, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	req, err := getRequest(ctx, s.Store, requestID, false)
	if err != nil {
		return nil, err
	}
	offers, err := s.Store.Offers().ListByRequest(ctx, requestID, nil)
	if err != nil {
		return nil, fmt.Errorf("list offers: %w", err)
	}

	a := &Authorizer{Members: s.Store.Members()}
	isBuyer, err := a.HasRole(ctx, actor, req.BuyerCompanyID, models.RoleAny)
	if err != nil {
		return nil, err
	}
	if isBuyer {
		if offers == nil {
			offers = []models.Offer{}
		}
		return offers, nil
	}

	visible := []models.Offer{}
	for _, o := range offers {
		ok, err := a.HasRole(ctx, actor, o.SupplierCompanyID, models.RoleAny)
		if err != nil {
			return nil, err
		}
		if ok {
			visible = append(visible, o)
		}
	}
	return visible, nil
}

func requireOfferParty(ctx context.Context, a *Authorizer, actor models.Actor, offer *models.Offer, req *models.Request) error {
	ok, err := a.HasRole(ctx, actor, offer.SupplierCompanyID, models.RoleAny)
	if err != nil || ok {
		return err
	}
	return a.Require(ctx, actor, req.BuyerCompanyID, models.RoleAny)
}
