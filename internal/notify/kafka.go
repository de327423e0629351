package notify

import (
	"context"
	"time"

	"github.com/senyabanana/rfq-service/internal/models"

	"github.com/segmentio/kafka-go"
)

const defaultTopic = "rfq.notifications"

// KafkaSender публикует уведомления в топик Kafka. Ключ сообщения - компания-получатель,
// поэтому уведомления одной компании попадают в один раздел по порядку.
type KafkaSender struct {
	w *kafka.Writer
}

// NewKafkaSender создает отправителя в топик topic.
func NewKafkaSender(brokers []string, topic string) *KafkaSender {
	if topic == "" {
		topic = defaultTopic
	}
	return &KafkaSender{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			MaxAttempts:  5,
			WriteTimeout: 5 * time.Second,
			ReadTimeout:  5 * time.Second,
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

func (s *KafkaSender) Driver() string { return "kafka" }

func (s *KafkaSender) Send(ctx context.Context, n models.Notification) error {
	msg, err := kafkaMessage(n)
	if err != nil {
		return err
	}
	return s.w.WriteMessages(ctx, msg)
}

// Close освобождает writer.
func (s *KafkaSender) Close() error { return s.w.Close() }

func kafkaMessage(n models.Notification) (kafka.Message, error) {
	value, err := encode(n)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(n.RecipientCompanyID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(n.Kind)},
		},
	}, nil
}
