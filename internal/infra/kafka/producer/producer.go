package producer

import (
	"context"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	wbfkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"

	"github.com/aliskhannn/icon-generator/internal/config"
	"github.com/aliskhannn/icon-generator/internal/model"
)

// Producer publishes finished runs to Kafka.
type Producer struct {
	Client   *wbfkafka.Producer
	strategy retry.Strategy
	cfg      *config.Kafka
}

// New creates a new Producer.
// - cfg: Kafka configuration struct
// - s: retry strategy used for every send
func New(
	cfg *config.Kafka,
	s retry.Strategy,
) *Producer {
	producer := wbfkafka.NewProducer(cfg.Brokers, cfg.Topic)

	return &Producer{
		Client:   producer,
		cfg:      cfg,
		strategy: s,
	}
}

// Produce serializes the event to JSON and sends it to Kafka.
// The run ID is used as the message key.
func (p *Producer) Produce(ctx context.Context, ev model.RunEvent) error {
	key, data, err := message(ev)
	if err != nil {
		return err
	}

	if err = p.Client.SendWithRetry(ctx, p.strategy, key, data); err != nil {
		return fmt.Errorf("failed to send event to %s: %w", p.cfg.Topic, err)
	}

	return nil
}

// message builds the Kafka key and value for ev.
func message(ev model.RunEvent) (key, value []byte, err error) {
	value, err = jsoniter.Marshal(ev)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	return []byte(ev.ID.String()), value, nil
}

// Close closes the underlying Kafka writer.
func (p *Producer) Close() error {
	return p.Client.Close()
}
