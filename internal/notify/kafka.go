package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"placefeeds/internal/domain"

	kfk "github.com/Fau1con/kafkawrapper"
)

type messageSender interface {
	SendMessage(ctx context.Context, topic string, data []byte) error
}

// KafkaNotifier публикует события об обновленных записях в Kafka.
type KafkaNotifier struct {
	sender messageSender
	topic  string
	log    *slog.Logger
}

func NewKafkaNotifier(brokers []string, topic string, log *slog.Logger) (*KafkaNotifier, error) {
	producer, err := kfk.NewProducer(brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	log.Info("Kafka producer created", slog.Any("brokers", brokers), slog.String("topic", topic))
	return newKafkaNotifier(producer, topic, log), nil
}

func newKafkaNotifier(sender messageSender, topic string, log *slog.Logger) *KafkaNotifier {
	return &KafkaNotifier{
		sender: sender,
		topic:  topic,
		log:    log.With(slog.String("component", "notifier")),
	}
}

func (n *KafkaNotifier) Notify(ctx context.Context, event domain.ItemsUpdated) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	if err := n.sender.SendMessage(ctx, n.topic, data); err != nil {
		n.log.Error("Failed to write message to Kafka",
			slog.Any("error", err),
			slog.Int64("feedID", event.FeedID),
		)
		return fmt.Errorf("failed to publish event for feed %d: %w", event.FeedID, err)
	}

	n.log.Debug("Event published",
		slog.Int64("feedID", event.FeedID),
		slog.Int("new", len(event.New)),
		slog.Int("updated", len(event.Updated)),
	)
	return nil
}

// Close закрывает продюсер, если он это поддерживает.
func (n *KafkaNotifier) Close() error {
	switch c := n.sender.(type) {
	case io.Closer:
		return c.Close()
	case interface{ Close() }:
		c.Close()
	}
	return nil
}
