package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"codejudge/internal/common/mq"
	"codejudge/internal/judge/model"
	appErr "codejudge/pkg/errors"
	"codejudge/pkg/utils/logger"

	"go.uber.org/zap"
)

// JudgedEventPublisher announces persisted submissions.
type JudgedEventPublisher interface {
	PublishJudged(ctx context.Context, event model.SubmissionJudgedEvent) error
}

// MQJudgedEventPublisher publishes judged events to a message queue topic.
type MQJudgedEventPublisher struct {
	queue mq.Publisher
	topic string
}

func NewMQJudgedEventPublisher(queue mq.Publisher, topic string) *MQJudgedEventPublisher {
	return &MQJudgedEventPublisher{queue: queue, topic: topic}
}

// PublishJudged publishes one event keyed by the submission id.
func (p *MQJudgedEventPublisher) PublishJudged(ctx context.Context, event model.SubmissionJudgedEvent) error {
	if p == nil || p.queue == nil {
		return appErr.New(appErr.ServiceUnavailable).WithMessage("judged event publisher is not configured")
	}
	if p.topic == "" {
		return appErr.New(appErr.InvalidParams).WithMessage("judged event topic is required")
	}
	if event.SubmissionID == "" {
		return appErr.ValidationError("submission_id", "required")
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal judged event failed: %w", err)
	}
	message := mq.NewEvent(event.SubmissionID, payload)
	message.SetHeader("account_id", strconv.FormatInt(event.AccountID, 10))
	if err := p.queue.Publish(ctx, p.topic, message); err != nil {
		return appErr.Wrapf(err, appErr.ServiceUnavailable, "publish judged event failed")
	}
	logger.Debug(ctx, "judged event published", zap.String("submission_id", event.SubmissionID), zap.String("topic", p.topic))
	return nil
}
