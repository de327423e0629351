package services

import (
	"context"
	"testing"
	"time"

	"github.com/senyabanana/rfq-service/internal/models"
)

func TestCreateRequest(t *testing.T) {
	f := newFixture(t)
	req := f.createRequest(t, models.PaymentBankTransfer)

	if req.Status != models.RequestOpen {
		t.Fatalf("status = %s, want OPEN", req.Status)
	}
	if !req.ExpiresAt.Equal(startTime.Add(24 * time.Hour)) {
		t.Fatalf("expires at = %s", req.ExpiresAt)
	}
	if req.CreatedBy != buyerUser {
		t.Fatalf("created by = %s", req.CreatedBy)
	}
}

func TestCreateRequestBudgetRange(t *testing.T) {
	f := newFixture(t)
	in := validRequest(models.PaymentCash)
	in.BudgetFrom = decPtr("100")
	in.BudgetTo = decPtr("50")

	_, err := f.requests.CreateRequest(context.Background(), buyer, in)
	er := expectKind(t, err, models.ErrValidation)
	if _, ok := er.Fields["budgetTo"]; !ok {
		t.Fatalf("expected budgetTo field error, got %v", er.Fields)
	}
}

func TestCreateRequestFieldErrors(t *testing.T) {
	f := newFixture(t)
	cases := []struct {
		name  string
		edit  func(*models.CreateRequest)
		field string
	}{
		{"deadline today", func(in *models.CreateRequest) { in.DeadlineDate = "2026-03-10" }, "deadlineDate"},
		{"deadline in past", func(in *models.CreateRequest) { in.DeadlineDate = "2026-01-01" }, "deadlineDate"},
		{"deadline malformed", func(in *models.CreateRequest) { in.DeadlineDate = "10.03.2026" }, "deadlineDate"},
		{"zero quantity", func(in *models.CreateRequest) { in.Quantity = dec("0") }, "quantity"},
		{"bad payment", func(in *models.CreateRequest) { in.PaymentType = "BARTER" }, "paymentType"},
		{"no region", func(in *models.CreateRequest) { in.Region = " " }, "region"},
		{"unknown unit", func(in *models.CreateRequest) { in.UnitID = "barrel" }, "unitId"},
		{"unknown category", func(in *models.CreateRequest) { in.CategoryID = "steel" }, "categoryId"},
		{"foreign subcategory", func(in *models.CreateRequest) { sub := "portland"; in.CategoryID = "timber"; in.SubcategoryID = &sub }, "subcategoryId"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validRequest(models.PaymentCash)
			tc.edit(&in)
			_, err := f.requests.CreateRequest(context.Background(), buyer, in)
			er := expectKind(t, err, models.ErrValidation)
			if _, ok := er.Fields[tc.field]; !ok {
				t.Fatalf("expected %s field error, got %v", tc.field, er.Fields)
			}
		})
	}
}

func TestCreateRequestRequiresBuyerMembership(t *testing.T) {
	f := newFixture(t)
	_, err := f.requests.CreateRequest(context.Background(), supA, validRequest(models.PaymentCash))
	expectKind(t, err, models.ErrPermission)

	_, err = f.requests.CreateRequest(context.Background(), models.Actor{}, validRequest(models.PaymentCash))
	expectKind(t, err, models.ErrUnauthorized)
}

func TestCreateRequestUnknownCompany(t *testing.T) {
	f := newFixture(t)
	in := validRequest(models.PaymentCash)
	in.BuyerCompanyID = "ghost-co"
	_, err := f.requests.CreateRequest(context.Background(), buyer, in)
	er := expectKind(t, err, models.ErrValidation)
	if er.Fields["buyerCompanyId"] != "unknown company" {
		t.Fatalf("fields = %v", er.Fields)
	}
}

func TestCancelRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.createRequest(t, models.PaymentCash)

	_, err := f.requests.CancelRequest(ctx, buyer, req.ID, "")
	expectKind(t, err, models.ErrValidation)

	_, err = f.requests.CancelRequest(ctx, outsider, req.ID, "changed plans")
	expectKind(t, err, models.ErrPermission)

	cancelled, err := f.requests.CancelRequest(ctx, buyer, req.ID, "changed plans")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != models.RequestCancelled || *cancelled.CancellationReason != "changed plans" {
		t.Fatalf("unexpected request %+v", cancelled)
	}

	_, err = f.requests.CancelRequest(ctx, buyer, req.ID, "again")
	expectKind(t, err, models.ErrInvalidState)

	_, err = f.requests.CancelRequest(ctx, buyer, "missing", "reason")
	expectKind(t, err, models.ErrNotFound)
}

func TestRequestExpireSweep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.createRequest(t, models.PaymentBankTransfer)

	n, err := f.requests.ExpireSweep(ctx)
	if err != nil || n != 0 {
		t.Fatalf("sweep before expiry = %d, %v", n, err)
	}

	f.clock.Advance(48 * time.Hour)
	n, err = f.requests.ExpireSweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("expired %d requests, want 1", n)
	}
	expired := f.notes.byKind(models.NotifyRequestExpired)
	if len(expired) != 1 || expired[0].RecipientCompanyID != buyerCo || expired[0].EntityID != req.ID {
		t.Fatalf("unexpected notifications %+v", expired)
	}

	n, err = f.requests.ExpireSweep(ctx)
	if err != nil || n != 0 {
		t.Fatalf("second sweep = %d, %v", n, err)
	}
	if got := len(f.notes.byKind(models.NotifyRequestExpired)); got != 1 {
		t.Fatalf("second sweep emitted notifications: %d", got)
	}

	got, err := f.requests.GetRequest(ctx, buyer, req.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != models.RequestExpired {
		t.Fatalf("status = %s", got.Status)
	}
}

func TestGetRequestVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	open := f.createRequest(t, models.PaymentCash)
	cancelled := f.createRequest(t, models.PaymentCash)
	if _, err := f.requests.CancelRequest(ctx, buyer, cancelled.ID, "no longer needed"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if _, err := f.requests.GetRequest(ctx, supA, open.ID); err != nil {
		t.Fatalf("supplier reads open request: %v", err)
	}
	if _, err := f.requests.GetRequest(ctx, outsider, open.ID); err != nil {
		t.Fatalf("outsider reads open request: %v", err)
	}
	if got, err := f.requests.GetRequest(ctx, buyer, cancelled.ID); err != nil || got.Status != models.RequestCancelled {
		t.Fatalf("buyer reads cancelled request: %v %v", got, err)
	}
	_, err := f.requests.GetRequest(ctx, supA, cancelled.ID)
	expectKind(t, err, models.ErrNotFound)
}

func TestListRequests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	open := f.createRequest(t, models.PaymentCash)
	cancelled := f.createRequest(t, models.PaymentCash)
	if _, err := f.requests.CancelRequest(ctx, buyer, cancelled.ID, "no longer needed"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	list, err := f.requests.ListRequests(ctx, supA, models.RequestFilter{Limit: 10})
	if err != nil {
		t.Fatalf("list open: %v", err)
	}
	if len(list) != 1 || list[0].ID != open.ID {
		t.Fatalf("supplier should see only the open request, got %d", len(list))
	}

	list, err = f.requests.ListRequests(ctx, buyer, models.RequestFilter{BuyerCompanyID: buyerCo, Limit: 10})
	if err != nil {
		t.Fatalf("list own: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("buyer should see both requests, got %d", len(list))
	}

	_, err = f.requests.ListRequests(ctx, supA, models.RequestFilter{BuyerCompanyID: buyerCo})
	expectKind(t, err, models.ErrPermission)
}
