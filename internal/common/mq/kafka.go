package mq

import (
	"context"
	"errors"
	"net"
	"strconv"
	"sync"
	"time"

	"codejudge/pkg/utils/logger"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	headerAttempt = "x-attempt"
	fetchBackoff  = 200 * time.Millisecond
)

var ErrBrokerClosed = errors.New("broker is closed")

// KafkaConfig configures the shared writer and the per-subscription readers.
type KafkaConfig struct {
	Brokers  []string
	ClientID string

	RequiredAcks kafka.RequiredAcks
	BatchSize    int
	BatchTimeout time.Duration
	Compression  kafka.Compression

	MinBytes int
	MaxBytes int
	MaxWait  time.Duration

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func (c *KafkaConfig) applyDefaults() {
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.BatchTimeout <= 0 {
		c.BatchTimeout = 20 * time.Millisecond
	}
	if c.MinBytes <= 0 {
		c.MinBytes = 1
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = 1 << 20
	}
	if c.MaxWait <= 0 {
		c.MaxWait = 500 * time.Millisecond
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.RequiredAcks == 0 {
		c.RequiredAcks = kafka.RequireOne
	}
}

// KafkaBroker implements Broker on segmentio/kafka-go.
type KafkaBroker struct {
	cfg    KafkaConfig
	dialer *kafka.Dialer
	writer *kafka.Writer

	mu      sync.Mutex
	subs    []*subscription
	running bool
	closed  bool
}

type subscription struct {
	topic   string
	handler Handler
	opts    SubscribeOptions
	parent  context.Context

	reader *kafka.Reader
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewKafkaBroker creates a broker. No connection is made until the first publish or Start.
func NewKafkaBroker(cfg KafkaConfig) (*KafkaBroker, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	cfg.applyDefaults()

	dialer := &kafka.Dialer{
		ClientID:  cfg.ClientID,
		Timeout:   cfg.DialTimeout,
		DualStack: true,
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: cfg.RequiredAcks,
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		Compression:  cfg.Compression,
		Transport: &kafka.Transport{
			ClientID: cfg.ClientID,
			Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
				return dialer.DialContext(ctx, network, address)
			},
		},
	}
	return &KafkaBroker{cfg: cfg, dialer: dialer, writer: writer}, nil
}

// Publish writes events in one batch. Events are partitioned by key.
func (b *KafkaBroker) Publish(ctx context.Context, topic string, events ...*Event) error {
	if topic == "" {
		return errors.New("topic is required")
	}
	if len(events) == 0 {
		return errors.New("no events to publish")
	}
	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		if e == nil {
			return errors.New("event is nil")
		}
		msgs = append(msgs, toKafka(topic, e))
	}
	return b.writer.WriteMessages(ctx, msgs...)
}

// Subscribe registers handler for topic. It starts consuming immediately when the broker is running.
func (b *KafkaBroker) Subscribe(ctx context.Context, topic string, handler Handler, opts SubscribeOptions) error {
	if topic == "" {
		return errors.New("topic is required")
	}
	if handler == nil {
		return errors.New("handler is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	sub := &subscription{
		topic:   topic,
		handler: handler,
		opts:    opts.withDefaults(topic),
		parent:  ctx,
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBrokerClosed
	}
	b.subs = append(b.subs, sub)
	if b.running {
		b.run(sub)
	}
	return nil
}

// Start runs every registered subscription.
func (b *KafkaBroker) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBrokerClosed
	}
	if b.running {
		return nil
	}
	for _, sub := range b.subs {
		b.run(sub)
	}
	b.running = true
	return nil
}

// Stop cancels the subscriptions and waits for in-flight handlers.
func (b *KafkaBroker) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		if sub.cancel != nil {
			sub.cancel()
		}
	}
	for _, sub := range b.subs {
		sub.wg.Wait()
		if sub.reader != nil {
			_ = sub.reader.Close()
			sub.reader = nil
		}
		sub.cancel = nil
	}
	b.running = false
	return nil
}

// Ping dials the first broker.
func (b *KafkaBroker) Ping(ctx context.Context) error {
	conn, err := b.dialer.DialContext(ctx, "tcp", b.cfg.Brokers[0])
	if err != nil {
		return err
	}
	return conn.Close()
}

// Close stops consumers and flushes the writer.
func (b *KafkaBroker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	_ = b.Stop()
	return b.writer.Close()
}

// run starts one fetch loop feeding opts.Workers handler goroutines. Callers hold b.mu.
func (b *KafkaBroker) run(sub *subscription) {
	sub.reader = kafka.NewReader(kafka.ReaderConfig{
		Brokers:     b.cfg.Brokers,
		GroupID:     sub.opts.Group,
		Topic:       sub.topic,
		Dialer:      b.dialer,
		MinBytes:    b.cfg.MinBytes,
		MaxBytes:    b.cfg.MaxBytes,
		MaxWait:     b.cfg.MaxWait,
		StartOffset: kafka.LastOffset,
	})
	ctx, cancel := context.WithCancel(sub.parent)
	sub.cancel = cancel

	jobs := make(chan kafka.Message, sub.opts.Workers)
	reader := sub.reader
	sub.wg.Add(1)
	go func() {
		defer sub.wg.Done()
		defer close(jobs)
		for {
			msg, err := reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Warn(ctx, "kafka fetch failed", zap.String("topic", sub.topic), zap.Error(err))
				select {
				case <-ctx.Done():
					return
				case <-time.After(fetchBackoff):
				}
				continue
			}
			select {
			case jobs <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	for i := 0; i < sub.opts.Workers; i++ {
		sub.wg.Add(1)
		go func() {
			defer sub.wg.Done()
			for msg := range jobs {
				b.deliver(ctx, sub, reader, msg)
			}
		}()
	}
}

// deliver retries the handler with backoff. The offset is committed once the event is handled,
// dead-lettered or dropped; a cancelled context leaves it uncommitted for redelivery.
func (b *KafkaBroker) deliver(ctx context.Context, sub *subscription, reader *kafka.Reader, msg kafka.Message) {
	event := fromKafka(msg)
	for {
		event.Attempt++
		err := sub.handler(ctx, event)
		if err == nil {
			break
		}
		logger.Warn(ctx, "event handler failed",
			zap.String("topic", sub.topic),
			zap.String("key", event.Key),
			zap.Int("attempt", event.Attempt),
			zap.Error(err),
		)
		if event.Attempt >= sub.opts.MaxAttempts {
			if sub.opts.DeadLetterTopic != "" {
				if err := b.Publish(ctx, sub.opts.DeadLetterTopic, event); err != nil {
					logger.Error(ctx, "dead letter publish failed", zap.String("topic", sub.opts.DeadLetterTopic), zap.Error(err))
				}
			}
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(sub.opts.retryDelay(event.Attempt)):
		}
	}
	if err := reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
		logger.Warn(ctx, "kafka commit failed", zap.String("topic", sub.topic), zap.Error(err))
	}
}

func toKafka(topic string, e *Event) kafka.Message {
	ts := e.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	headers := make([]kafka.Header, 0, len(e.Headers)+1)
	for k, v := range e.Headers {
		headers = append(headers, kafka.Header{Key: k, Value: []byte(v)})
	}
	if e.Attempt > 0 {
		headers = append(headers, kafka.Header{Key: headerAttempt, Value: []byte(strconv.Itoa(e.Attempt))})
	}
	return kafka.Message{
		Topic:   topic,
		Key:     []byte(e.Key),
		Value:   e.Body,
		Headers: headers,
		Time:    ts,
	}
}

// fromKafka rebuilds an event. A carried attempt count is dropped so every consumer starts fresh.
func fromKafka(msg kafka.Message) *Event {
	e := &Event{
		Key:     string(msg.Key),
		Body:    msg.Value,
		Headers: make(map[string]string, len(msg.Headers)),
		Time:    msg.Time,
	}
	for _, h := range msg.Headers {
		if h.Key == headerAttempt {
			e.Headers["x-previous-attempts"] = string(h.Value)
			continue
		}
		e.Headers[h.Key] = string(h.Value)
	}
	return e
}
