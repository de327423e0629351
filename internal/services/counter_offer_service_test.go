package services

import (
	"context"
	"testing"
	"time"

	"github.com/senyabanana/rfq-service/internal/models"
)

func TestCounterOfferAcceptAppliesTerms(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.createRequest(t, models.PaymentBankTransfer)
	offer := f.createOffer(t, req.ID, supA, supplierA, "1000")

	date := "2026-03-25"
	co, err := f.counters.CreateCounterOffer(ctx, buyer, offer.ID, models.CounterOfferRequest{
		Price:        decPtr("900"),
		DeliveryDate: &date,
		Comment:      "can you do 900?",
	})
	if err != nil {
		t.Fatalf("create counter offer: %v", err)
	}
	if co.SenderRole != models.RoleBuyer || co.SenderCompanyID != buyerCo || co.Status != models.CounterOfferPending {
		t.Fatalf("counter offer = %+v", co)
	}
	if n := f.notes.byKind(models.NotifyCounterOffer); len(n) != 1 || n[0].RecipientCompanyID != supplierA {
		t.Fatalf("counter offer notifications = %+v", n)
	}

	got, _ := f.offers.GetOffer(ctx, buyer, offer.ID)
	if got.Status != models.OfferCounterOffered {
		t.Fatalf("offer status = %s", got.Status)
	}

	_, err = f.counters.AcceptCounterOffer(ctx, buyer, co.ID)
	expectKind(t, err, models.ErrPermission)

	accepted, err := f.counters.AcceptCounterOffer(ctx, supA, co.ID)
	if err != nil {
		t.Fatalf("accept counter offer: %v", err)
	}
	if accepted.Status != models.CounterOfferAccepted {
		t.Fatalf("counter offer status = %s", accepted.Status)
	}
	if n := f.notes.byKind(models.NotifyCounterAccepted); len(n) != 1 || n[0].RecipientCompanyID != buyerCo {
		t.Fatalf("accept notifications = %+v", n)
	}

	got, _ = f.offers.GetOffer(ctx, buyer, offer.ID)
	if !got.Price.Equal(dec("900")) {
		t.Fatalf("offer price = %s", got.Price)
	}
	if !got.DeliveryDate.Equal(time.Date(2026, 3, 25, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("delivery date = %s", got.DeliveryDate)
	}
	if got.Status != models.OfferCounterOffered {
		t.Fatalf("offer status after counter acceptance = %s", got.Status)
	}
	if !got.Volume.Equal(offer.Volume) {
		t.Fatalf("volume changed: %s", got.Volume)
	}

	resp, err := f.offers.AcceptOffer(ctx, buyer, offer.ID)
	if err != nil {
		t.Fatalf("accept offer: %v", err)
	}
	order, _ := f.orders.GetOrder(ctx, buyer, resp.OrderID)
	if !order.TotalAmount.Equal(dec("900")) {
		t.Fatalf("order total = %s", order.TotalAmount)
	}
}

func TestCounterOfferValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.createRequest(t, models.PaymentCash)
	offer := f.createOffer(t, req.ID, supA, supplierA, "1000")

	_, err := f.counters.CreateCounterOffer(ctx, buyer, offer.ID, models.CounterOfferRequest{Comment: "hm"})
	expectKind(t, err, models.ErrValidation)

	past := "2026-03-01"
	_, err = f.counters.CreateCounterOffer(ctx, buyer, offer.ID, models.CounterOfferRequest{DeliveryDate: &past})
	er := expectKind(t, err, models.ErrValidation)
	if _, ok := er.Fields["deliveryDate"]; !ok {
		t.Fatalf("fields = %v", er.Fields)
	}

	_, err = f.counters.CreateCounterOffer(ctx, supB, offer.ID, models.CounterOfferRequest{Price: decPtr("1")})
	expectKind(t, err, models.ErrPermission)
}

func TestCounterOfferOnlyWhileOfferPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.createRequest(t, models.PaymentCash)
	offer := f.createOffer(t, req.ID, supA, supplierA, "1000")

	if _, err := f.counters.CreateCounterOffer(ctx, supA, offer.ID, models.CounterOfferRequest{Volume: decPtr("15")}); err != nil {
		t.Fatalf("first counter offer: %v", err)
	}
	_, err := f.counters.CreateCounterOffer(ctx, buyer, offer.ID, models.CounterOfferRequest{Price: decPtr("800")})
	expectKind(t, err, models.ErrInvalidState)
}

func TestRejectCounterOfferKeepsOffer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.createRequest(t, models.PaymentCash)
	offer := f.createOffer(t, req.ID, supA, supplierA, "1000")

	co, err := f.counters.CreateCounterOffer(ctx, supA, offer.ID, models.CounterOfferRequest{Price: decPtr("1100")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err = f.counters.RejectCounterOffer(ctx, supA, co.ID)
	expectKind(t, err, models.ErrPermission)

	rejected, err := f.counters.RejectCounterOffer(ctx, buyer, co.ID)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != models.CounterOfferRejected {
		t.Fatalf("status = %s", rejected.Status)
	}
	got, _ := f.offers.GetOffer(ctx, buyer, offer.ID)
	if !got.Price.Equal(dec("1000")) {
		t.Fatalf("offer price changed to %s", got.Price)
	}
	if n := f.notes.byKind(models.NotifyCounterRejected); len(n) != 1 || n[0].RecipientCompanyID != supplierA {
		t.Fatalf("reject notifications = %+v", n)
	}

	_, err = f.counters.AcceptCounterOffer(ctx, buyer, co.ID)
	expectKind(t, err, models.ErrInvalidState)

	list, err := f.counters.ListCounterOffers(ctx, supA, offer.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("list = %d, %v", len(list), err)
	}
	_, err = f.counters.ListCounterOffers(ctx, supB, offer.ID)
	expectKind(t, err, models.ErrPermission)
}
