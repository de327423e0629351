// Package notify delivers notifications produced by state transitions. Delivery
// is asynchronous and best effort: a failed or dropped message never reaches
// the caller of Notify.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/senyabanana/rfq-service/internal/metrics"
	"github.com/senyabanana/rfq-service/internal/models"

	"github.com/rs/zerolog/log"
)

const sendTimeout = 5 * time.Second

var (
	// ErrQueueFull возвращается, когда буфер диспетчера заполнен.
	ErrQueueFull = errors.New("notification queue is full")
	// ErrClosed возвращается после остановки диспетчера.
	ErrClosed = errors.New("notification dispatcher is closed")
)

// Sender доставляет одно уведомление во внешний канал.
type Sender interface {
	Send(ctx context.Context, n models.Notification) error
	Driver() string
}

// Dispatcher ставит уведомления в очередь и доставляет их в фоне одним воркером.
type Dispatcher struct {
	sender Sender
	queue  chan models.Notification
	block  bool

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher создает диспетчер и запускает воркер доставки.
func NewDispatcher(sender Sender, buffer int) *Dispatcher {
	if buffer <= 0 {
		buffer = 256
	}
	d := &Dispatcher{sender: sender, queue: make(chan models.Notification, buffer)}
	d.wg.Add(1)
	go d.loop()
	return d
}

// NewBlockingDispatcher создает диспетчер, который при заполненном буфере ждет
// места в очереди, пока не отменен контекст. Подходит для разовых пакетных запусков.
func NewBlockingDispatcher(sender Sender, buffer int) *Dispatcher {
	d := NewDispatcher(sender, buffer)
	d.block = true
	return d
}

// Notify ставит уведомление в очередь и не ждет доставки.
func (d *Dispatcher) Notify(ctx context.Context, n models.Notification) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	if d.block {
		select {
		case d.queue <- n:
			return nil
		case <-ctx.Done():
			metrics.Notifications.WithLabelValues(d.sender.Driver(), "dropped").Inc()
			return ctx.Err()
		}
	}
	select {
	case d.queue <- n:
		return nil
	default:
		metrics.Notifications.WithLabelValues(d.sender.Driver(), "dropped").Inc()
		return ErrQueueFull
	}
}

// Close прекращает прием уведомлений и дожидается доставки уже поставленных.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) loop() {
	defer d.wg.Done()
	for n := range d.queue {
		d.deliver(n)
	}
}

func (d *Dispatcher) deliver(n models.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	driver := d.sender.Driver()
	if err := d.sender.Send(ctx, n); err != nil {
		metrics.Notifications.WithLabelValues(driver, "failed").Inc()
		log.Error().Err(err).
			Str("driver", driver).
			Str("kind", string(n.Kind)).
			Str("recipient", n.RecipientCompanyID).
			Msg("notification delivery failed")
		return
	}
	metrics.Notifications.WithLabelValues(driver, "sent").Inc()
}

// LogSender пишет уведомления в лог. Используется в разработке.
type LogSender struct{}

func (LogSender) Driver() string { return "log" }

func (LogSender) Send(_ context.Context, n models.Notification) error {
	log.Info().
		Str("kind", string(n.Kind)).
		Str("recipient", n.RecipientCompanyID).
		Str("entity_type", n.EntityType).
		Str("entity_id", n.EntityID).
		Str("order_id", n.OrderID).
		Msg(n.Message)
	return nil
}

// Config выбирает канал доставки.
type Config struct {
	Driver       string // log|redis|kafka
	RedisAddr    string
	RedisDB      int
	Stream       string
	KafkaBrokers []string
	KafkaTopic   string
}

// Open создает отправителя по конфигурации. Возвращаемый io.Closer освобождает соединения.
func Open(cfg Config) (Sender, io.Closer, error) {
	switch cfg.Driver {
	case "", "log":
		return LogSender{}, io.NopCloser(nil), nil
	case "redis":
		s := NewRedisStreamSender(cfg.RedisAddr, cfg.RedisDB, cfg.Stream)
		return s, s, nil
	case "kafka":
		if len(cfg.KafkaBrokers) == 0 {
			return nil, nil, fmt.Errorf("kafka brokers required")
		}
		s := NewKafkaSender(cfg.KafkaBrokers, cfg.KafkaTopic)
		return s, s, nil
	default:
		return nil, nil, fmt.Errorf("unsupported notify driver %q", cfg.Driver)
	}
}

func encode(n models.Notification) ([]byte, error) {
	return json.Marshal(n)
}
