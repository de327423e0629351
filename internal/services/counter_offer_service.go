package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/senyabanana/rfq-service/internal/models"
	"github.com/senyabanana/rfq-service/internal/repository"

	"github.com/google/uuid"
)

type CounterOfferService struct {
	*Core
}

// NewCounterOfferService создает новый экземпляр CounterOfferService.
func NewCounterOfferService(core *Core) *CounterOfferService {
	return &CounterOfferService{Core: core}
}

// negotiationSide определяет, от имени какой стороны действует пользователь.
func negotiationSide(ctx context.Context, a *Authorizer, actor models.Actor, offer *models.Offer, req *models.Request) (models.Role, string, error) {
	ok, err := a.HasRole(ctx, actor, offer.SupplierCompanyID, models.RoleSupplier)
	if err != nil {
		return "", "", err
	}
	if ok {
		return models.RoleSupplier, offer.SupplierCompanyID, nil
	}
	ok, err = a.HasRole(ctx, actor, req.BuyerCompanyID, models.RoleBuyer)
	if err != nil {
		return "", "", err
	}
	if ok {
		return models.RoleBuyer, req.BuyerCompanyID, nil
	}
	return "", "", models.NewPermissionError("user %s is neither the buyer nor the supplier of offer %s", actor.UserID, offer.ID)
}

// CreateCounterOffer предлагает новые условия по ожидающему предложению.
func (s *CounterOfferService) CreateCounterOffer(ctx context.Context, actor models.Actor, offerID string, in models.CounterOfferRequest) (*models.CounterOffer, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	now := s.now()
	deliveryDate, fields := validateCounterOffer(in, now)
	if len(fields) > 0 {
		return nil, models.NewValidationErrors(fields)
	}

	var co *models.CounterOffer
	var notes []models.Notification
	err := s.Store.WithinTx(ctx, func(repos repository.Repositories) error {
		offer, req, err := lockOfferWithRequest(ctx, repos, offerID)
		if err != nil {
			return err
		}
		role, company, err := negotiationSide(ctx, authz(repos), actor, offer, req)
		if err != nil {
			return err
		}
		if !offer.Status.CanTransitionTo(models.OfferCounterOffered) {
			return models.NewInvalidStateError("offer %s is %s, counter offers are allowed only while it is PENDING", offer.ID, offer.Status)
		}
		if req.Status != models.RequestOpen {
			return models.NewInvalidStateError("request %s is %s", req.ID, req.Status)
		}

		offer.Status = models.OfferCounterOffered
		offer.UpdatedAt = now
		if err := repos.Offers().Update(ctx, offer); err != nil {
			return fmt.Errorf("update offer: %w", err)
		}

		co = &models.CounterOffer{
			ID:              uuid.NewString(),
			OfferID:         offer.ID,
			SenderUserID:    actor.UserID,
			SenderCompanyID: company,
			SenderRole:      role,
			Price:           in.Price,
			Volume:          in.Volume,
			DeliveryDate:    deliveryDate,
			Comment:         strings.TrimSpace(in.Comment),
			Status:          models.CounterOfferPending,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := repos.CounterOffers().Create(ctx, co); err != nil {
			return fmt.Errorf("create counter offer: %w", err)
		}

		recipient := offer.SupplierCompanyID
		if role == models.RoleSupplier {
			recipient = req.BuyerCompanyID
		}
		notes = append(notes, newNotification(models.NotifyCounterOffer, recipient, "counter_offer", co.ID,
			"new counter offer on offer "+offer.ID, now))
		return nil
	})
	if err != nil {
		return nil, err
	}
	countTransition("offer", string(models.OfferCounterOffered))
	countTransition("counter_offer", string(models.CounterOfferPending))
	s.publish(ctx, notes)
	return co, nil
}

func validateCounterOffer(in models.CounterOfferRequest, now time.Time) (*time.Time, map[string]string) {
	fields := make(map[string]string)
	if in.Price == nil && in.Volume == nil && in.DeliveryDate == nil {
		fields["price"] = "at least one of price, volume or deliveryDate is required"
	}
	if in.Price != nil && !in.Price.IsPositive() {
		fields["price"] = "must be greater than zero"
	}
	if in.Volume != nil && !in.Volume.IsPositive() {
		fields["volume"] = "must be greater than zero"
	}
	var deliveryDate *time.Time
	if in.DeliveryDate != nil {
		date, msg := parseFutureDate(*in.DeliveryDate, now)
		if msg != "" {
			fields["deliveryDate"] = msg
		} else {
			deliveryDate = &date
		}
	}
	return deliveryDate, fields
}

// AcceptCounterOffer принимает встречное предложение и переносит его условия
// в предложение. Принять может только другая сторона торга.
func (s *CounterOfferService) AcceptCounterOffer(ctx context.Context, actor models.Actor, counterOfferID string) (*models.CounterOffer, error) {
	return s.resolve(ctx, actor, counterOfferID, models.CounterOfferAccepted)
}

// RejectCounterOffer отклоняет встречное предложение. Предложение не меняется.
func (s *CounterOfferService) RejectCounterOffer(ctx context.Context, actor models.Actor, counterOfferID string) (*models.CounterOffer, error) {
	return s.resolve(ctx, actor, counterOfferID, models.CounterOfferRejected)
}

func (s *CounterOfferService) resolve(ctx context.Context, actor models.Actor, counterOfferID string, next models.CounterOfferStatus) (*models.CounterOffer, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	var co *models.CounterOffer
	var notes []models.Notification
	err := s.Store.WithinTx(ctx, func(repos repository.Repositories) error {
		peek, err := getCounterOffer(ctx, repos, counterOfferID, false)
		if err != nil {
			return err
		}
		offer, req, err := lockOfferWithRequest(ctx, repos, peek.OfferID)
		if err != nil {
			return err
		}
		co, err = getCounterOffer(ctx, repos, counterOfferID, true)
		if err != nil {
			return err
		}

		a := authz(repos)
		if co.SenderRole == models.RoleSupplier {
			err = a.Require(ctx, actor, req.BuyerCompanyID, models.RoleBuyer)
		} else {
			err = a.Require(ctx, actor, offer.SupplierCompanyID, models.RoleSupplier)
		}
		if err != nil {
			return err
		}

		if !co.Status.CanTransitionTo(next) {
			return models.NewInvalidStateError("counter offer %s is %s", co.ID, co.Status)
		}
		now := s.now()
		if next == models.CounterOfferAccepted {
			if !offer.Status.IsActive() {
				return models.NewInvalidStateError("offer %s is %s, its terms can no longer change", offer.ID, offer.Status)
			}
			if co.Price != nil {
				offer.Price = *co.Price
			}
			if co.Volume != nil {
				offer.Volume = *co.Volume
			}
			if co.DeliveryDate != nil {
				offer.DeliveryDate = *co.DeliveryDate
			}
			offer.UpdatedAt = now
			if err := repos.Offers().Update(ctx, offer); err != nil {
				return fmt.Errorf("apply counter offer: %w", err)
			}
		}

		co.Status = next
		co.UpdatedAt = now
		if err := repos.CounterOffers().Update(ctx, co); err != nil {
			return fmt.Errorf("update counter offer: %w", err)
		}

		kind := models.NotifyCounterRejected
		if next == models.CounterOfferAccepted {
			kind = models.NotifyCounterAccepted
		}
		notes = append(notes, newNotification(kind, co.SenderCompanyID, "counter_offer", co.ID,
			"counter offer "+strings.ToLower(string(next)), now))
		return nil
	})
	if err != nil {
		return nil, err
	}
	countTransition("counter_offer", string(next))
	s.publish(ctx, notes)
	return co, nil
}

// ListCounterOffers возвращает историю торга по предложению.
func (s *CounterOfferService) ListCounterOffers(ctx context.Context, actor models.Actor, offerID string) ([]models.CounterOffer, error) {
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
	list, err := s.Store.CounterOffers().ListByOffer(ctx, offerID)
	if err != nil {
		return nil, fmt.Errorf("list counter offers: %w", err)
	}
	if list == nil {
		list = []models.CounterOffer{}
	}
	return list, nil
}
