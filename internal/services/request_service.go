package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/senyabanana/rfq-service/internal/metrics"
	"github.com/senyabanana/rfq-service/internal/models"
	"github.com/senyabanana/rfq-service/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const DefaultRequestTTL = 24 * time.Hour

type RequestService struct {
	*Core
	TTL time.Duration
}

// NewRequestService создает новый экземпляр RequestService.
func NewRequestService(core *Core, ttl time.Duration) *RequestService {
	if ttl <= 0 {
		ttl = DefaultRequestTTL
	}
	return &RequestService{Core: core, TTL: ttl}
}

// CreateRequest создает новую заявку покупателя.
func (s *RequestService) CreateRequest(ctx context.Context, actor models.Actor, in models.CreateRequest) (*models.Request, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	now := s.now()
	fields := validateCreateRequest(in, now)
	if len(fields) > 0 {
		return nil, models.NewValidationErrors(fields)
	}
	deadline, _ := time.Parse(dateLayout, in.DeadlineDate)

	req := &models.Request{
		ID:              uuid.NewString(),
		BuyerCompanyID:  in.BuyerCompanyID,
		CreatedBy:       actor.UserID,
		CategoryID:      in.CategoryID,
		SubcategoryID:   in.SubcategoryID,
		Description:     strings.TrimSpace(in.Description),
		Quantity:        in.Quantity,
		UnitID:          in.UnitID,
		PaymentType:     in.PaymentType,
		BudgetFrom:      in.BudgetFrom,
		BudgetTo:        in.BudgetTo,
		Region:          strings.TrimSpace(in.Region),
		DeliveryAddress: strings.TrimSpace(in.DeliveryAddress),
		DeadlineDate:    deadline,
		Status:          models.RequestOpen,
		CreatedAt:       now,
		ExpiresAt:       now.Add(s.TTL),
		UpdatedAt:       now,
	}

	err := s.Store.WithinTx(ctx, func(repos repository.Repositories) error {
		if err := requireCompany(ctx, repos.Reference(), "buyerCompanyId", in.BuyerCompanyID); err != nil {
			return err
		}
		if err := authz(repos).Require(ctx, actor, in.BuyerCompanyID, models.RoleBuyer); err != nil {
			return err
		}
		if err := validateReferences(ctx, repos.Reference(), in); err != nil {
			return err
		}
		if err := repos.Requests().Create(ctx, req); err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	countTransition("request", string(models.RequestOpen))
	return req, nil
}

func validateCreateRequest(in models.CreateRequest, now time.Time) map[string]string {
	fields := make(map[string]string)
	if in.BuyerCompanyID == "" {
		fields["buyerCompanyId"] = "is required"
	}
	if in.CategoryID == "" {
		fields["categoryId"] = "is required"
	}
	if !in.Quantity.IsPositive() {
		fields["quantity"] = "must be greater than zero"
	}
	if in.UnitID == "" {
		fields["unitId"] = "is required"
	}
	if !in.PaymentType.Valid() {
		fields["paymentType"] = "must be BANK_TRANSFER or CASH"
	}
	if in.BudgetFrom != nil && in.BudgetFrom.IsNegative() {
		fields["budgetFrom"] = "must not be negative"
	}
	if in.BudgetTo != nil && !in.BudgetTo.IsPositive() {
		fields["budgetTo"] = "must be greater than zero"
	}
	if in.BudgetFrom != nil && in.BudgetTo != nil && in.BudgetFrom.GreaterThanOrEqual(*in.BudgetTo) {
		fields["budgetTo"] = "must be greater than budgetFrom"
	}
	if strings.TrimSpace(in.Region) == "" {
		fields["region"] = "is required"
	}
	if strings.TrimSpace(in.DeliveryAddress) == "" {
		fields["deliveryAddress"] = "is required"
	}
	if _, msg := parseFutureDate(in.DeadlineDate, now); msg != "" {
		fields["deadlineDate"] = msg
	}
	return fields
}

func validateReferences(ctx context.Context, ref repository.ReferenceRepository, in models.CreateRequest) error {
	fields := make(map[string]string)
	ok, err := ref.CategoryExists(ctx, in.CategoryID, nil)
	if err != nil {
		return fmt.Errorf("check category: %w", err)
	}
	if !ok {
		fields["categoryId"] = "unknown category"
	} else if in.SubcategoryID != nil {
		ok, err = ref.CategoryExists(ctx, in.CategoryID, in.SubcategoryID)
		if err != nil {
			return fmt.Errorf("check subcategory: %w", err)
		}
		if !ok {
			fields["subcategoryId"] = "unknown subcategory for this category"
		}
	}
	ok, err = ref.UnitExists(ctx, in.UnitID)
	if err != nil {
		return fmt.Errorf("check unit: %w", err)
	}
	if !ok {
		fields["unitId"] = "unknown unit"
	}
	if len(fields) > 0 {
		return models.NewValidationErrors(fields)
	}
	return nil
}

// CancelRequest отменяет открытую заявку с указанием причины.
func (s *RequestService) CancelRequest(ctx context.Context, actor models.Actor, requestID, reason string) (*models.Request, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, models.NewValidationError("reason", "is required")
	}

	var req *models.Request
	err := s.Store.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		req, err = getRequest(ctx, repos, requestID, true)
		if err != nil {
			return err
		}
		if err := authz(repos).Require(ctx, actor, req.BuyerCompanyID, models.RoleBuyer); err != nil {
			return err
		}
		if !req.Status.CanTransitionTo(models.RequestCancelled) {
			return models.NewInvalidStateError("request %s is %s and cannot be cancelled", req.ID, req.Status)
		}
		req.Status = models.RequestCancelled
		req.CancellationReason = &reason
		req.UpdatedAt = s.now()
		return repos.Requests().Update(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	countTransition("request", string(models.RequestCancelled))
	return req, nil
}

// closeRequest закрывает заявку при принятии предложения. Вызывается только
// внутри транзакции принятия, заявка уже заблокирована.
func closeRequest(ctx context.Context, repos repository.Repositories, req *models.Request, now time.Time) error {
	if !req.Status.CanTransitionTo(models.RequestClosed) {
		return models.NewInvalidStateError("request %s is %s and cannot be closed", req.ID, req.Status)
	}
	req.Status = models.RequestClosed
	req.UpdatedAt = now
	return repos.Requests().Update(ctx, req)
}

// ExpireSweep переводит в EXPIRED все открытые заявки с истекшим сроком и
// уведомляет покупателя. Каждая заявка обрабатывается в своей транзакции;
// ошибка по одной заявке логируется и не прерывает обход.
func (s *RequestService) ExpireSweep(ctx context.Context) (int, error) {
	now := s.now()
	ids, err := s.Store.Requests().ListExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list expired requests: %w", err)
	}

	expired := 0
	for _, id := range ids {
		var note *models.Notification
		err := s.Store.WithinTx(ctx, func(repos repository.Repositories) error {
			req, err := getRequest(ctx, repos, id, true)
			if err != nil {
				return err
			}
			if req.Status != models.RequestOpen || req.ExpiresAt.After(now) {
				return nil
			}
			req.Status = models.RequestExpired
			req.UpdatedAt = now
			if err := repos.Requests().Update(ctx, req); err != nil {
				return err
			}
			n := newNotification(models.NotifyRequestExpired, req.BuyerCompanyID, "request", req.ID,
				"request has expired without an accepted offer", now)
			note = &n
			return nil
		})
		if err != nil {
			metrics.SweepRows.WithLabelValues("request_expire_scan", "failed").Inc()
			log.Error().Err(err).Str("request_id", id).Msg("failed to expire request")
			continue
		}
		if note == nil {
			continue
		}
		expired++
		metrics.SweepRows.WithLabelValues("request_expire_scan", "expired").Inc()
		countTransition("request", string(models.RequestExpired))
		s.publish(ctx, []models.Notification{*note})
	}
	return expired, nil
}

// GetRequest возвращает заявку по ID. Открытые заявки видны всем, остальные -
// только участникам компании покупателя.
func (s *RequestService) GetRequest(ctx context.Context, actor models.Actor, requestID string) (*models.Request, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	req, err := getRequest(ctx, s.Store, requestID, false)
	if err != nil {
		return nil, err
	}
	if req.Status == models.RequestOpen {
		return req, nil
	}
	member, err := (&Authorizer{Members: s.Store.Members()}).HasRole(ctx, actor, req.BuyerCompanyID, models.RoleAny)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, models.NewNotFoundError("request", requestID)
	}
	return req, nil
}

// ListRequests возвращает заявки компании покупателя, а без указания компании -
// открытые заявки, доступные поставщикам.
func (s *RequestService) ListRequests(ctx context.Context, actor models.Actor, filter models.RequestFilter) ([]models.Request, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if filter.BuyerCompanyID != "" {
		if err := (&Authorizer{Members: s.Store.Members()}).Require(ctx, actor, filter.BuyerCompanyID, models.RoleAny); err != nil {
			return nil, err
		}
	} else {
		filter.Statuses = []models.RequestStatus{models.RequestOpen}
	}
	requests, err := s.Store.Requests().List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	if requests == nil {
		requests = []models.Request{}
	}
	return requests, nil
}
