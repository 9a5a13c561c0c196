package push

import (
	"context"

	"go.uber.org/zap"
)

// LogPusher is a simple pusher that logs notifications (for testing/development)
type LogPusher struct {
	logger *zap.Logger
}

func NewLogPusher(logger *zap.Logger) *LogPusher {
	return &LogPusher{logger: logger}
}

func (p *LogPusher) Push(ctx context.Context, token string, n Notification) error {
	p.logger.Info("logging push (development mode)",
		zap.String("token", token),
		zap.String("title", n.Title),
		zap.String("body", n.Body),
	)
	return nil
}
