package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/senyabanana/rfq-service/internal/models"
)

func TestParseLimitOffset(t *testing.T) {
	cases := []struct {
		limit, offset string
		wantLimit     int
		wantOffset    int
		wantErr       bool
	}{
		{"", "", 5, 0, false},
		{"10", "20", 10, 20, false},
		{"0", "", 0, 0, true},
		{"51", "", 0, 0, true},
		{"abc", "", 0, 0, true},
		{"", "-1", 0, 0, true},
	}
	for _, c := range cases {
		limit, offset, err := ParseLimitOffset(c.limit, c.offset)
		if (err != nil) != c.wantErr {
			t.Errorf("ParseLimitOffset(%q, %q) err = %v", c.limit, c.offset, err)
			continue
		}
		if !c.wantErr && (limit != c.wantLimit || offset != c.wantOffset) {
			t.Errorf("ParseLimitOffset(%q, %q) = %d, %d", c.limit, c.offset, limit, offset)
		}
	}
}

func TestWriteErrorTyped(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/requests", nil)
	err := fmt.Errorf("create: %w", models.NewValidationError("quantity", "must be greater than zero"))

	WriteError(rec, req, err, "failed to create request")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Reason string            `json:"reason"`
		Kind   string            `json:"kind"`
		Fields map[string]string `json:"fields"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Kind != "validation" || body.Fields["quantity"] == "" {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestWriteErrorUnknownIs500(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/orders/1", nil)

	WriteError(rec, req, errors.New("connection reset"), "failed to fetch order")

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	_ = json.NewDecoder(rec.Body).Decode(&body)
	if body["reason"] != "failed to fetch order" {
		t.Fatalf("internal error leaked: %v", body)
	}
}

func TestContains(t *testing.T) {
	valid := []models.RequestStatus{models.RequestOpen, models.RequestClosed}
	if !Contains(valid, models.RequestOpen) {
		t.Errorf("OPEN should be contained")
	}
	if Contains(valid, models.RequestExpired) {
		t.Errorf("EXPIRED should not be contained")
	}
}
