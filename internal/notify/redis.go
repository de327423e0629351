package notify

import (
	"context"
	"time"

	"github.com/senyabanana/rfq-service/internal/models"

	rd "github.com/redis/go-redis/v9"
)

const defaultStream = "rfq:notifications"

// RedisStreamSender публикует уведомления в Redis Stream через XADD.
// Доставку получателям выполняют потребители стрима.
type RedisStreamSender struct {
	rdb    *rd.Client
	stream string
	maxLen int64
}

// NewRedisStreamSender создает отправителя в стрим stream.
func NewRedisStreamSender(addr string, db int, stream string) *RedisStreamSender {
	if stream == "" {
		stream = defaultStream
	}
	rdb := rd.NewClient(&rd.Options{
		Addr:        addr,
		DB:          db,
		DialTimeout: 2 * time.Second,
	})
	return &RedisStreamSender{rdb: rdb, stream: stream, maxLen: 100000}
}

func (s *RedisStreamSender) Driver() string { return "redis" }

func (s *RedisStreamSender) Send(ctx context.Context, n models.Notification) error {
	values, err := streamValues(n)
	if err != nil {
		return err
	}
	return s.rdb.XAdd(ctx, &rd.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: values,
	}).Err()
}

// Close закрывает соединение с Redis.
func (s *RedisStreamSender) Close() error { return s.rdb.Close() }

func streamValues(n models.Notification) (map[string]any, error) {
	payload, err := encode(n)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"notification_id": n.ID,
		"kind":            string(n.Kind),
		"recipient":       n.RecipientCompanyID,
		"payload":         string(payload),
	}, nil
}
