package changefeed

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/shivamksharma/devdonations/internal/config"
)

// NewProducer builds the producer selected in the config
func NewProducer(cfg config.ChangeFeedConfig, amqpURL string, logger *zap.Logger) (Producer, error) {
	switch cfg.Producer {
	case "", "log":
		return NewLogProducer(logger), nil
	case "kafka":
		return NewKafkaProducer(cfg.Brokers, cfg.Topic, logger), nil
	case "amqp":
		return NewAMQPProducer(amqpURL, cfg.Exchange, logger)
	default:
		return nil, fmt.Errorf("unknown change feed producer %q", cfg.Producer)
	}
}
