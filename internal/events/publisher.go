// Package events emits a summary message per committed tick to SQS for
// downstream consumers. The feed is fire-and-forget and entirely optional.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"
)

// Config holds SQS configuration.
type Config struct {
	Region   string
	QueueURL string
}

// TickEvent summarizes one dispatch tick.
type TickEvent struct {
	TickAt        int64  `json:"tick_at"` // unix seconds
	UsersLoaded   int    `json:"users_loaded"`
	UsersDue      int    `json:"users_due"`
	Sent          int    `json:"sent"`
	Failed        int    `json:"failed"`
	InvalidTokens int    `json:"invalid_tokens"`
	QuoteConsumed string `json:"quote_consumed,omitempty"`
	EmittedAt     int64  `json:"emitted_at"` // unix nanos
}

// Publisher sends tick events to SQS.
type Publisher struct {
	client   *sqs.Client
	queueURL string
	logger   *zap.Logger
}

// NewPublisher creates a new SQS tick event publisher.
func NewPublisher(ctx context.Context, cfg Config, logger *zap.Logger) (*Publisher, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := sqs.NewFromConfig(awsCfg)

	logger.Info("tick event publisher initialized",
		zap.String("queue_url", cfg.QueueURL),
	)

	return &Publisher{
		client:   client,
		queueURL: cfg.QueueURL,
		logger:   logger,
	}, nil
}

// Publish sends one tick event. Failures are the caller's to log and ignore;
// the feed never blocks or fails a tick.
func (p *Publisher) Publish(ctx context.Context, event TickEvent) error {
	event.EmittedAt = time.Now().UnixNano()

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.queueURL),
		MessageBody: aws.String(string(body)),
	}

	result, err := p.client.SendMessage(ctx, input)
	if err != nil {
		p.logger.Error("failed to publish tick event", zap.Error(err))
		return fmt.Errorf("sqs send failed: %w", err)
	}

	p.logger.Debug("tick event published",
		zap.String("message_id", aws.ToString(result.MessageId)),
	)

	return nil
}
