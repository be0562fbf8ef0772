package service

import (
	"context"
	"encoding/json"
	"errors"

	"codejudge/internal/common/mq"
	"codejudge/internal/judge/model"
	"codejudge/pkg/utils/logger"

	"go.uber.org/zap"
)

// ProfileInvalidator drops cached profiles.
type ProfileInvalidator interface {
	InvalidateProfile(ctx context.Context, accountID int64)
}

// ProfileCacheConsumer evicts an account's cached profile when one of its submissions is judged.
type ProfileCacheConsumer struct {
	mqClient    mq.Subscriber
	invalidator ProfileInvalidator
}

// NewProfileCacheConsumer creates a consumer.
func NewProfileCacheConsumer(mqClient mq.Subscriber, invalidator ProfileInvalidator) *ProfileCacheConsumer {
	return &ProfileCacheConsumer{mqClient: mqClient, invalidator: invalidator}
}

// Subscribe registers the handler and starts consuming.
func (c *ProfileCacheConsumer) Subscribe(ctx context.Context, topic string, opts mq.SubscribeOptions) error {
	if c == nil || c.mqClient == nil {
		return errors.New("message queue is nil")
	}
	if topic == "" {
		return errors.New("judged topic is required")
	}
	if err := c.mqClient.Subscribe(ctx, topic, c.HandleEvent, opts); err != nil {
		return err
	}
	return c.mqClient.Start()
}

// HandleEvent processes one judged event. Malformed events are dropped.
func (c *ProfileCacheConsumer) HandleEvent(ctx context.Context, message *mq.Event) error {
	var event model.SubmissionJudgedEvent
	if err := json.Unmarshal(message.Body, &event); err != nil {
		logger.Warn(ctx, "parse judged event failed", zap.Error(err))
		return nil
	}
	if event.AccountID <= 0 {
		logger.Warn(ctx, "judged event missing account_id", zap.String("submission_id", event.SubmissionID))
		return nil
	}
	c.invalidator.InvalidateProfile(ctx, event.AccountID)
	logger.Debug(ctx, "profile cache invalidated",
		zap.Int64("account_id", event.AccountID),
		zap.String("submission_id", event.SubmissionID),
	)
	return nil
}
