package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/senyabanana/rfq-service/internal/models"
	"github.com/senyabanana/rfq-service/internal/repository"

	"github.com/shopspring/decimal"
)

func newOffer(id, requestID, supplier string, status models.OfferStatus) *models.Offer {
	return &models.Offer{
		ID:                id,
		RequestID:         requestID,
		SupplierCompanyID: supplier,
		Price:             decimal.NewFromInt(100),
		Status:            status,
		ExpiresAt:         time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
	}
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(repos repository.Repositories) error {
		if err := repos.Requests().Create(ctx, &models.Request{ID: "r1", Status: models.RequestOpen}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, err := s.Requests().Get(ctx, "r1", false); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("request survived rollback: %v", err)
	}

	err = s.WithinTx(ctx, func(repos repository.Repositories) error {
		return repos.Requests().Create(ctx, &models.Request{ID: "r1", Status: models.RequestOpen})
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if _, err := s.Requests().Get(ctx, "r1", false); err != nil {
		t.Fatalf("request missing after commit: %v", err)
	}
}

func TestRollbackRestoresUpdatedOrder(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	order := &models.Order{ID: "o1", RequestID: "r1", OfferID: "f1", Status: models.OrderAwaitingPayment}
	if err := s.Orders().Create(ctx, order); err != nil {
		t.Fatalf("create: %v", err)
	}

	_ = s.WithinTx(ctx, func(repos repository.Repositories) error {
		o, _ := repos.Orders().Get(ctx, "o1", true)
		o.Status = models.OrderCancelled
		o.DeliveryPhotoKeys = append(o.DeliveryPhotoKeys, "k")
		_ = repos.Orders().Update(ctx, o)
		return errors.New("abort")
	})

	got, _ := s.Orders().Get(ctx, "o1", false)
	if got.Status != models.OrderAwaitingPayment || len(got.DeliveryPhotoKeys) != 0 {
		t.Fatalf("order changed by aborted tx: %+v", got)
	}
}

func TestOfferActiveSupplierUniqueness(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	if err := s.Offers().Create(ctx, newOffer("a", "r1", "sup", models.OfferPending)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Offers().Create(ctx, newOffer("b", "r1", "sup", models.OfferPending)); !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if err := s.Offers().Create(ctx, newOffer("c", "r2", "sup", models.OfferPending)); err != nil {
		t.Fatalf("other request: %v", err)
	}

	cancelled := newOffer("a", "r1", "sup", models.OfferCancelled)
	if err := s.Offers().Update(ctx, cancelled); err != nil {
		t.Fatalf("update: %v", err)
	}
	occupied, _ := s.Offers().HasOccupying(ctx, "r1", "sup")
	if occupied {
		t.Fatalf("cancelled offer must not occupy the request")
	}
	if err := s.Offers().Create(ctx, newOffer("d", "r1", "sup", models.OfferPending)); err != nil {
		t.Fatalf("resubmission: %v", err)
	}
}

func TestOrderPerRequestUniqueness(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	if err := s.Orders().Create(ctx, &models.Order{ID: "o1", RequestID: "r1", OfferID: "f1"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	err := s.Orders().Create(ctx, &models.Order{ID: "o2", RequestID: "r1", OfferID: "f2"})
	if !errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	n, _ := s.Orders().CountByRequest(ctx, "r1")
	if n != 1 {
		t.Fatalf("orders = %d", n)
	}
}

func TestListExpiredOnlyOpenAndPending(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	now := time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)
	_ = s.Requests().Create(ctx, &models.Request{ID: "old", Status: models.RequestOpen, ExpiresAt: now.Add(-time.Hour)})
	_ = s.Requests().Create(ctx, &models.Request{ID: "edge", Status: models.RequestOpen, ExpiresAt: now})
	_ = s.Requests().Create(ctx, &models.Request{ID: "new", Status: models.RequestOpen, ExpiresAt: now.Add(time.Hour)})
	_ = s.Requests().Create(ctx, &models.Request{ID: "done", Status: models.RequestClosed, ExpiresAt: now.Add(-time.Hour)})

	ids, err := s.Requests().ListExpired(ctx, now)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ids) != 2 || ids[0] != "old" || ids[1] != "edge" {
		t.Fatalf("expired = %v", ids)
	}

	_ = s.Offers().Create(ctx, newOffer("p", "r1", "s1", models.OfferPending))
	_ = s.Offers().Create(ctx, newOffer("c", "r1", "s2", models.OfferCounterOffered))
	ids, _ = s.Offers().ListExpired(ctx, now)
	if len(ids) != 1 || ids[0] != "p" {
		t.Fatalf("expired offers = %v", ids)
	}
}

func TestMembershipAndReference(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	s.AddMember("u1", "c1", models.RoleBuyer)
	s.AddCategory("cat", "")
	s.AddCategory("sub", "cat")
	s.AddUnit("kg")

	checks := []struct {
		role models.Role
		want bool
	}{{models.RoleBuyer, true}, {models.RoleSupplier, false}, {models.RoleAny, true}}
	for _, c := range checks {
		if got, _ := s.Members().HasRole(ctx, "u1", "c1", c.role); got != c.want {
			t.Errorf("HasRole(%q) = %v", c.role, got)
		}
	}
	if ok, _ := s.Reference().CompanyExists(ctx, "c1"); !ok {
		t.Errorf("company c1 should exist")
	}
	sub := "sub"
	if ok, _ := s.Reference().CategoryExists(ctx, "cat", &sub); !ok {
		t.Errorf("sub should belong to cat")
	}
	if ok, _ := s.Reference().CategoryExists(ctx, "sub", &sub); ok {
		t.Errorf("sub is not its own parent")
	}
	if ok, _ := s.Reference().UnitExists(ctx, "l"); ok {
		t.Errorf("unit l should not exist")
	}
}
