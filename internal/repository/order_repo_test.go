package repository

import (
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/senyabanana/rfq-service/internal/models"

	"github.com/jackc/pgx/v5/pgtype"
)

type column struct {
	oid   uint32
	value any
}

// encodedRow кодирует значения в формате, который pgx запрашивает для столбцов
// результата, и декодирует их в цели Scan так же, как это делает pgx.Rows.
type encodedRow struct {
	m    *pgtype.Map
	cols []column
}

func (r encodedRow) Scan(dest ...any) error {
	if len(dest) != len(r.cols) {
		return fmt.Errorf("scan: %d targets for %d columns", len(dest), len(r.cols))
	}
	for i, c := range r.cols {
		format := r.m.FormatCodeForOID(c.oid)
		buf, err := r.m.Encode(c.oid, format, c.value, nil)
		if err != nil {
			return fmt.Errorf("encode column %d: %w", i, err)
		}
		if err := r.m.Scan(c.oid, format, buf, dest[i]); err != nil {
			return fmt.Errorf("scan column %d: %w", i, err)
		}
	}
	return nil
}

func orderRow(photos any) encodedRow {
	created := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	return encodedRow{m: pgtype.NewMap(), cols: []column{
		{pgtype.TextOID, "o1"},
		{pgtype.TextOID, "r1"},
		{pgtype.TextOID, "f1"},
		{pgtype.TextOID, "buyer-co"},
		{pgtype.TextOID, "supplier-co"},
		{pgtype.NumericOID, pgtype.Numeric{Int: big.NewInt(100050), Exp: -2, Valid: true}},
		{pgtype.TextOID, "KZT"},
		{pgtype.TextOID, string(models.PaymentCash)},
		{pgtype.TextOID, string(models.TermsOnDelivery)},
		{pgtype.TextOID, string(models.OrderCompleted)},
		{pgtype.BoolOID, false},
		{pgtype.TimestamptzOID, created},
		{pgtype.TextOID, nil},
		{pgtype.TextOID, "orders/o1/ttn/t.pdf"},
		{pgtype.TextArrayOID, photos},
		{pgtype.TextOID, nil},
		{pgtype.TimestamptzOID, created},
		{pgtype.TimestamptzOID, created},
		{pgtype.TimestamptzOID, created.Add(time.Hour)},
		{pgtype.TimestamptzOID, nil},
		{pgtype.TimestamptzOID, created.Add(time.Hour)},
	}}
}

func TestScanOrderReadsBinaryTextArray(t *testing.T) {
	order, err := scanOrder(orderRow([]string{"orders/o1/delivery-photo/a.jpg", "orders/o1/delivery-photo/b.jpg"}))
	if err != nil {
		t.Fatalf("scanOrder: %v", err)
	}
	if len(order.DeliveryPhotoKeys) != 2 || order.DeliveryPhotoKeys[1] != "orders/o1/delivery-photo/b.jpg" {
		t.Fatalf("photos = %v", order.DeliveryPhotoKeys)
	}
	if order.TotalAmount.String() != "1000.5" {
		t.Errorf("total = %s", order.TotalAmount)
	}
	if order.Status != models.OrderCompleted || order.PaymentMethod != models.PaymentCash {
		t.Errorf("status = %s, payment = %s", order.Status, order.PaymentMethod)
	}
	if order.PaymentProofKey != nil || order.TTNKey == nil || order.CancelledAt != nil {
		t.Errorf("nullable columns = %v %v %v", order.PaymentProofKey, order.TTNKey, order.CancelledAt)
	}
}

func TestScanOrderEmptyAndNullPhotos(t *testing.T) {
	for name, photos := range map[string]any{"empty": []string{}, "null": nil} {
		t.Run(name, func(t *testing.T) {
			order, err := scanOrder(orderRow(photos))
			if err != nil {
				t.Fatalf("scanOrder: %v", err)
			}
			if order.DeliveryPhotoKeys == nil || len(order.DeliveryPhotoKeys) != 0 {
				t.Fatalf("photos = %#v, want empty slice", order.DeliveryPhotoKeys)
			}
		})
	}
}
