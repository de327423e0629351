package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/senyabanana/rfq-service/internal/models"
)

type recordingSender struct {
	mu    sync.Mutex
	sent  []models.Notification
	fail  bool
	block chan struct{}
}

func (s *recordingSender) Driver() string { return "test" }

func (s *recordingSender) Send(_ context.Context, n models.Notification) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("broker down")
	}
	s.sent = append(s.sent, n)
	return nil
}

func (s *recordingSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

func TestDispatcherDeliversQueuedOnClose(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, 8)
	for i := 0; i < 5; i++ {
		if err := d.Notify(context.Background(), models.Notification{Kind: models.NotifyOfferCreated}); err != nil {
			t.Fatalf("notify: %v", err)
		}
	}
	d.Close()
	if got := sender.count(); got != 5 {
		t.Fatalf("delivered %d, want 5", got)
	}
	if err := d.Notify(context.Background(), models.Notification{}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	d.Close()
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	sender := &recordingSender{block: make(chan struct{})}
	d := NewDispatcher(sender, 1)

	var full bool
	for i := 0; i < 10; i++ {
		if err := d.Notify(context.Background(), models.Notification{}); errors.Is(err, ErrQueueFull) {
			full = true
			break
		}
	}
	close(sender.block)
	d.Close()
	if !full {
		t.Fatalf("expected ErrQueueFull once the buffer filled up")
	}
}

func TestBlockingDispatcherWaitsForRoom(t *testing.T) {
	sender := &recordingSender{block: make(chan struct{})}
	d := NewBlockingDispatcher(sender, 1)

	done := make(chan error, 1)
	go func() {
		for i := 0; i < 5; i++ {
			if err := d.Notify(context.Background(), models.Notification{Kind: models.NotifyRequestExpired}); err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}()
	close(sender.block)
	if err := <-done; err != nil {
		t.Fatalf("notify: %v", err)
	}
	d.Close()
	if got := sender.count(); got != 5 {
		t.Fatalf("delivered %d, want 5", got)
	}
}

func TestBlockingDispatcherStopsOnCancel(t *testing.T) {
	sender := &recordingSender{block: make(chan struct{})}
	d := NewBlockingDispatcher(sender, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var cancelled bool
	for i := 0; i < 10; i++ {
		if err := d.Notify(ctx, models.Notification{}); errors.Is(err, context.Canceled) {
			cancelled = true
			break
		}
	}
	close(sender.block)
	d.Close()
	if !cancelled {
		t.Fatalf("expected context.Canceled once the buffer filled up")
	}
}

func TestDispatcherSwallowsSendErrors(t *testing.T) {
	sender := &recordingSender{fail: true}
	d := NewDispatcher(sender, 4)
	if err := d.Notify(context.Background(), models.Notification{Kind: models.NotifyOrderCancelled}); err != nil {
		t.Fatalf("notify should not report delivery errors: %v", err)
	}
	d.Close()
	if sender.count() != 0 {
		t.Fatalf("failed sends must not be recorded")
	}
}

func TestStreamValues(t *testing.T) {
	n := models.Notification{ID: "n1", Kind: models.NotifyOrderCreated, RecipientCompanyID: "c1", OrderID: "o1"}
	values, err := streamValues(n)
	if err != nil {
		t.Fatalf("stream values: %v", err)
	}
	if values["kind"] != "order_created" || values["recipient"] != "c1" {
		t.Fatalf("unexpected values %v", values)
	}
	var decoded models.Notification
	if err := json.Unmarshal([]byte(values["payload"].(string)), &decoded); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if decoded.OrderID != "o1" {
		t.Fatalf("payload order id = %q", decoded.OrderID)
	}
}

func TestKafkaMessageKeyedByRecipient(t *testing.T) {
	msg, err := kafkaMessage(models.Notification{Kind: models.NotifyRateOrder, RecipientCompanyID: "buyer-1"})
	if err != nil {
		t.Fatalf("kafka message: %v", err)
	}
	if string(msg.Key) != "buyer-1" {
		t.Fatalf("key = %q", msg.Key)
	}
	if len(msg.Headers) != 1 || string(msg.Headers[0].Value) != "rate_order" {
		t.Fatalf("headers = %v", msg.Headers)
	}
}

func TestOpen(t *testing.T) {
	s, c, err := Open(Config{})
	if err != nil || s.Driver() != "log" {
		t.Fatalf("open default: %v", err)
	}
	_ = c.Close()

	if _, _, err := Open(Config{Driver: "kafka"}); err == nil {
		t.Fatalf("expected error without brokers")
	}
	if _, _, err := Open(Config{Driver: "smtp"}); err == nil {
		t.Fatalf("expected error for unknown driver")
	}

	s, c, err = Open(Config{Driver: "redis", RedisAddr: "127.0.0.1:6379"})
	if err != nil || s.Driver() != "redis" {
		t.Fatalf("open redis: %v", err)
	}
	_ = c.Close()
}
