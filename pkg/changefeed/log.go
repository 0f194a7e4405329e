package changefeed

import (
	"context"

	"go.uber.org/zap"
)

// LogProducer writes events to the logger. It is the default when no broker
// is configured.
type LogProducer struct {
	logger *zap.Logger
}

func NewLogProducer(logger *zap.Logger) *LogProducer {
	return &LogProducer{logger: logger}
}

func (p *LogProducer) Publish(_ context.Context, event Event) error {
	p.logger.Info("Change event",
		zap.String("routingKey", event.RoutingKey()),
		zap.String("documentId", event.DocumentID),
		zap.Any("fields", event.Fields),
		zap.Time("at", event.At))
	return nil
}

func (p *LogProducer) Close() error {
	return nil
}
