package forwarder

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/sirupsen/logrus"

	"adjust-consumer/internal/config"
	"adjust-consumer/internal/logger"
	"adjust-consumer/internal/metrics"
	"adjust-consumer/internal/models"
)

// DeadLetterQueue stores messages that could not be forwarded
type DeadLetterQueue interface {
	Push(ctx context.Context, entry models.DLQEntry) error
}

// Forwarder reads analytics messages from Kafka and hands them to a Handler
type Forwarder struct {
	consumer *kafka.Consumer
	handler  *Handler
	dlq      DeadLetterQueue
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

// New creates a Kafka consumer subscribed to the analytics topic
func New(cfg *config.KafkaConfig, handler *Handler, dlq DeadLetterQueue) (*Forwarder, error) {
	c, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":  cfg.Brokers,
		"group.id":           cfg.ConsumerGroup,
		"auto.offset.reset":  "earliest",
		"enable.auto.commit": false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	if err := c.Subscribe(cfg.Topic, nil); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to subscribe to topic: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	logger.Log.WithFields(logrus.Fields{
		"topic":         cfg.Topic,
		"consumerGroup": cfg.ConsumerGroup,
	}).Info("Successfully created Kafka consumer")

	return &Forwarder{
		consumer: c,
		handler:  handler,
		dlq:      dlq,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}, nil
}

// Start consumes messages until Stop is called
func (f *Forwarder) Start() {
	defer close(f.done)
	logger.Log.Info("Starting forwarder...")

	for {
		select {
		case <-f.ctx.Done():
			logger.Log.Info("Forwarder stopping...")
			return
		default:
			msg, err := f.consumer.ReadMessage(100 * time.Millisecond)
			if err != nil {
				var kerr kafka.Error
				if errors.As(err, &kerr) && kerr.Code() == kafka.ErrTimedOut {
					continue
				}
				logger.Log.Errorf("Consumer error: %v", err)
				continue
			}

			f.processMessage(msg)
		}
	}
}

// Stop stops the loop and closes the consumer
func (f *Forwarder) Stop() {
	f.cancel()
	<-f.done
	if err := f.consumer.Close(); err != nil {
		logger.Log.Errorf("Failed to close consumer: %v", err)
	}
}

func (f *Forwarder) processMessage(msg *kafka.Message) {
	start := time.Now()
	defer func() {
		metrics.KafkaConsumeLatency.Observe(time.Since(start).Seconds())
	}()

	ctx, cancel := context.WithTimeout(f.ctx, 5*time.Second)
	defer cancel()

	decoded, err := f.handler.Handle(ctx, msg.Value)
	kind := string(decoded.Kind)
	if kind == "" {
		kind = "unknown"
	}

	switch {
	case err == nil:
		metrics.MessagesProcessed.WithLabelValues(kind, "success").Inc()
	case errors.Is(err, ErrDuplicate):
		metrics.MessagesProcessed.WithLabelValues(kind, "duplicate").Inc()
		logger.WithMessageID(decoded.MessageID).Info("Duplicate message, skipping")
	default:
		metrics.MessagesProcessed.WithLabelValues(kind, "error").Inc()
		logger.WithMessageID(decoded.MessageID).Errorf("Failed to forward message: %v", err)
		f.sendToDLQ(deadLetter(msg, decoded.MessageID, err))
	}

	if _, err := f.consumer.CommitMessage(msg); err != nil {
		logger.Log.Errorf("Failed to commit offset: %v", err)
	}
}

// deadLetter builds the DLQ entry for a message that failed, keeping the replay
// count from its headers so replays stop at the configured limit
func deadLetter(msg *kafka.Message, messageID string, err error) models.DLQEntry {
	return models.DLQEntry{
		MessageID:    messageID,
		OriginalData: string(msg.Value),
		Error:        err.Error(),
		RetryCount:   retryCount(msg.Headers),
	}
}

func retryCount(headers []kafka.Header) int {
	for _, h := range headers {
		if h.Key != models.RetryCountHeader {
			continue
		}
		n, err := strconv.Atoi(string(h.Value))
		if err != nil || n < 0 {
			logger.Log.Warnf("Ignoring invalid %s header %q", models.RetryCountHeader, h.Value)
			return 0
		}
		return n
	}
	return 0
}

func (f *Forwarder) sendToDLQ(entry models.DLQEntry) {
	if f.dlq == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := f.dlq.Push(ctx, entry); err != nil {
		logger.WithMessageID(entry.MessageID).Errorf("Failed to push to DLQ: %v", err)
	}
}
