package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/senyabanana/rfq-service/internal/blob"
	"github.com/senyabanana/rfq-service/internal/models"
	"github.com/senyabanana/rfq-service/internal/repository/memory"

	"github.com/shopspring/decimal"
)

const (
	buyerCo    = "buyer-co"
	supplierA  = "supplier-a"
	supplierB  = "supplier-b"
	buyerUser  = "u-buyer"
	supAUser   = "u-sup-a"
	supBUser   = "u-sup-b"
	outsiderID = "u-outsider"
)

var (
	buyer     = models.Actor{UserID: buyerUser}
	supA      = models.Actor{UserID: supAUser}
	supB      = models.Actor{UserID: supBUser}
	outsider  = models.Actor{UserID: outsiderID}
	startTime = time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
)

type recorder struct {
	mu    sync.Mutex
	notes []models.Notification
	fail  bool
}

func (r *recorder) Notify(_ context.Context, n models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("channel unavailable")
	}
	r.notes = append(r.notes, n)
	return nil
}

func (r *recorder) byKind(kind models.NotificationKind) []models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Notification
	for _, n := range r.notes {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

func (r *recorder) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.notes)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	store    *memory.Store
	clock    *fakeClock
	notes    *recorder
	blobs    *blob.MemoryStore
	requests *RequestService
	offers   *OfferService
	counters *CounterOfferService
	orders   *OrderService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	store.AddMember(buyerUser, buyerCo, models.RoleBuyer)
	store.AddMember(supAUser, supplierA, models.RoleSupplier)
	store.AddMember(supBUser, supplierB, models.RoleSupplier)
	store.AddCategory("cement", "")
	store.AddCategory("portland", "cement")
	store.AddCategory("timber", "")
	store.AddUnit("ton")

	clock := &fakeClock{now: startTime}
	notes := &recorder{}
	blobs := blob.NewMemory()
	core := NewCore(store, notes, clock.Now)
	return &fixture{
		store:    store,
		clock:    clock,
		notes:    notes,
		blobs:    blobs,
		requests: NewRequestService(core, 24*time.Hour),
		offers:   NewOfferService(core, 24*time.Hour),
		counters: NewCounterOfferService(core),
		orders:   NewOrderService(core, blobs),
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func validRequest(payment models.PaymentType) models.CreateRequest {
	return models.CreateRequest{
		BuyerCompanyID:  buyerCo,
		CategoryID:      "cement",
		Description:     "M500 cement in bags",
		Quantity:        dec("20"),
		UnitID:          "ton",
		PaymentType:     payment,
		Region:          "Almaty",
		DeliveryAddress: "Abay ave 10",
		DeadlineDate:    "2026-03-20",
	}
}

func (f *fixture) createRequest(t *testing.T, payment models.PaymentType) *models.Request {
	t.Helper()
	req, err := f.requests.CreateRequest(context.Background(), buyer, validRequest(payment))
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	return req
}

func (f *fixture) createOffer(t *testing.T, requestID string, actor models.Actor, company, price string) *models.Offer {
	t.Helper()
	offer, err := f.offers.CreateOffer(context.Background(), actor, models.OfferRequest{
		RequestID:         requestID,
		SupplierCompanyID: company,
		Price:             dec(price),
		Currency:          "kzt",
		EtaDays:           5,
	})
	if err != nil {
		t.Fatalf("create offer: %v", err)
	}
	return offer
}

// acceptedOrder проходит путь заявка -> предложение -> заказ.
func (f *fixture) acceptedOrder(t *testing.T, payment models.PaymentType) *models.Order {
	t.Helper()
	req := f.createRequest(t, payment)
	offer := f.createOffer(t, req.ID, supA, supplierA, "1000")
	resp, err := f.offers.AcceptOffer(context.Background(), buyer, offer.ID)
	if err != nil {
		t.Fatalf("accept offer: %v", err)
	}
	order, err := f.orders.GetOrder(context.Background(), buyer, resp.OrderID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	return order
}

func document(name, body string) models.Document {
	return models.Document{Name: name, ContentType: "application/octet-stream", Size: int64(len(body)), Body: strings.NewReader(body)}
}

func expectKind(t *testing.T, err error, target *models.ErrorResponse) *models.ErrorResponse {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("expected %s error, got %v", target.Kind, err)
	}
	var er *models.ErrorResponse
	errors.As(err, &er)
	return er
}
