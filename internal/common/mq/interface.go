package mq

import (
	"context"
	"time"
)

// Broker publishes and consumes domain events.
type Broker interface {
	Publisher
	Subscriber
	Ping(ctx context.Context) error
	Close() error
}

// Publisher writes events to a topic. All events of one call go out in a single batch.
type Publisher interface {
	Publish(ctx context.Context, topic string, events ...*Event) error
}

// Subscriber registers handlers and runs them once started.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string, handler Handler, opts SubscribeOptions) error
	Start() error
	Stop() error
}

// Handler processes one event. A non-nil error schedules a retry.
type Handler func(ctx context.Context, event *Event) error

// Event is one record on a topic. Events sharing a Key keep their relative order.
type Event struct {
	Key     string
	Body    []byte
	Headers map[string]string
	Time    time.Time

	// Attempt counts deliveries to the handler, starting at 1.
	Attempt int
}

// NewEvent creates an event stamped with the current time.
func NewEvent(key string, body []byte) *Event {
	return &Event{
		Key:     key,
		Body:    body,
		Headers: make(map[string]string),
		Time:    time.Now(),
	}
}

// Header returns a header value.
func (e *Event) Header(key string) (string, bool) {
	v, ok := e.Headers[key]
	return v, ok
}

// SetHeader sets a header value.
func (e *Event) SetHeader(key, value string) {
	if e.Headers == nil {
		e.Headers = make(map[string]string)
	}
	e.Headers[key] = value
}

// SubscribeOptions tunes one subscription. Zero values take defaults.
type SubscribeOptions struct {
	// Group defaults to "codejudge-<topic>".
	Group string

	Workers     int
	MaxAttempts int

	// Backoff is the first retry delay. It doubles per attempt up to MaxBackoff.
	Backoff    time.Duration
	MaxBackoff time.Duration

	// DeadLetterTopic receives events that exhausted MaxAttempts. Empty drops them.
	DeadLetterTopic string
}

const (
	defaultWorkers     = 1
	defaultMaxAttempts = 3
	defaultBackoff     = time.Second
	defaultMaxBackoff  = 30 * time.Second
)

func (o SubscribeOptions) withDefaults(topic string) SubscribeOptions {
	if o.Group == "" {
		o.Group = "codejudge-" + topic
	}
	if o.Workers <= 0 {
		o.Workers = defaultWorkers
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = defaultMaxAttempts
	}
	if o.Backoff <= 0 {
		o.Backoff = defaultBackoff
	}
	if o.MaxBackoff < o.Backoff {
		o.MaxBackoff = defaultMaxBackoff
		if o.MaxBackoff < o.Backoff {
			o.MaxBackoff = o.Backoff
		}
	}
	return o
}

// retryDelay returns the wait before delivery number attempt+1.
func (o SubscribeOptions) retryDelay(attempt int) time.Duration {
	d := o.Backoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= o.MaxBackoff {
			return o.MaxBackoff
		}
	}
	return d
}
