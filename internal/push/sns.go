package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"go.uber.org/zap"
)

// SNSPusher delivers notifications through AWS SNS platform endpoints.
// Device tokens are stored as endpoint ARNs.
type SNSPusher struct {
	client *sns.Client
	logger *zap.Logger
}

type SNSConfig struct {
	Region string
}

// NewSNSPusher creates a new SNS-backed pusher
func NewSNSPusher(ctx context.Context, cfg SNSConfig, logger *zap.Logger) (*SNSPusher, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load default AWS config for SNS: %w", err)
	}

	return &SNSPusher{
		client: sns.NewFromConfig(awsCfg),
		logger: logger,
	}, nil
}

// snsPayload is the platform-agnostic message shape SNS fans out to
// GCM/APNS when MessageStructure is "json".
type snsPayload struct {
	Default string `json:"default"`
	Title   string `json:"title"`
	Body    string `json:"body"`
}

// Push publishes one notification to a platform endpoint. Endpoint-disabled
// and endpoint-not-found responses classify as ErrTokenInvalid; every other
// failure is transient.
func (p *SNSPusher) Push(ctx context.Context, token string, n Notification) error {
	body, err := json.Marshal(snsPayload{
		Default: n.Body,
		Title:   n.Title,
		Body:    n.Body,
	})
	if err != nil {
		return fmt.Errorf("marshal push payload: %w", err)
	}

	input := &sns.PublishInput{
		TargetArn:        aws.String(token),
		Message:          aws.String(string(body)),
		MessageStructure: aws.String("json"),
	}

	result, err := p.client.Publish(ctx, input)
	if err != nil {
		if isDeadEndpoint(err) {
			return fmt.Errorf("%w: %s", ErrTokenInvalid, err)
		}
		return fmt.Errorf("sns publish failed: %w", err)
	}

	p.logger.Debug("push sent via SNS",
		zap.String("message_id", aws.ToString(result.MessageId)),
	)

	return nil
}

func isDeadEndpoint(err error) bool {
	var disabled *types.EndpointDisabledException
	var notFound *types.NotFoundException
	return errors.As(err, &disabled) || errors.As(err, &notFound)
}
