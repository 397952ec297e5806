package producer

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"adjust-consumer/internal/config"
	"adjust-consumer/internal/logger"
	"adjust-consumer/internal/metrics"
	"adjust-consumer/internal/models"
)

// Producer publishes analytics messages to Kafka
type Producer struct {
	producer *kafka.Producer
	topic    string
}

// New creates a new Kafka producer
func New(cfg *config.KafkaConfig) (*Producer, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": cfg.Brokers,
		"client.id":         "analytics-producer",
		"acks":              "all",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}

	logger.Log.Info("Successfully created Kafka producer")

	return &Producer{
		producer: p,
		topic:    cfg.Topic,
	}, nil
}

// Close flushes and closes the producer
func (p *Producer) Close() {
	p.producer.Flush(5000)
	p.producer.Close()
}

// NewMessage builds a message of kind with a fresh ID and timestamp
func NewMessage(kind models.MessageKind, name string) models.Message {
	return models.Message{
		MessageID: uuid.New().String(),
		Kind:      kind,
		Name:      name,
		Timestamp: time.Now(),
	}
}

// EncodeParams renders scalar params for the message envelope
func EncodeParams(params map[string]interface{}) (map[string]json.RawMessage, error) {
	if len(params) == 0 {
		return nil, nil
	}

	raw := make(map[string]json.RawMessage, len(params))
	for k, v := range params {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode param %q: %w", k, err)
		}
		raw[k] = data
	}
	return raw, nil
}

// PublishEvent publishes an event message
func (p *Producer) PublishEvent(name string, params map[string]interface{}) (string, error) {
	msg := NewMessage(models.EventMessage, name)

	raw, err := EncodeParams(params)
	if err != nil {
		return "", err
	}
	msg.Params = raw

	return msg.MessageID, p.Publish(msg)
}

// PublishUserProperty publishes a user property update; nil unsets it
func (p *Producer) PublishUserProperty(key string, value *string) (string, error) {
	msg := NewMessage(models.UserPropertyMessage, key)
	msg.Value = value
	return msg.MessageID, p.Publish(msg)
}

// PublishUserID publishes a user id update; nil unsets it
func (p *Producer) PublishUserID(userID *string) (string, error) {
	msg := NewMessage(models.UserIDMessage, "")
	msg.Value = userID
	return msg.MessageID, p.Publish(msg)
}

// Publish sends msg and waits for the delivery report
func (p *Producer) Publish(msg models.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return p.PublishRaw(msg.MessageID, msg.GetKey(), data)
}

// PublishRaw sends data as-is, which lets callers exercise the DLQ path
func (p *Producer) PublishRaw(messageID, key string, data []byte) error {
	return p.produce(messageID, key, data, nil)
}

// Republish sends a dead-lettered message back to the topic, tagged with the
// replay attempt so the forwarder can carry it into a new DLQ entry
func (p *Producer) Republish(messageID string, data []byte, retryCount int) error {
	headers := []kafka.Header{{
		Key:   models.RetryCountHeader,
		Value: []byte(strconv.Itoa(retryCount)),
	}}
	return p.produce(messageID, "dlq-replay", data, headers)
}

func (p *Producer) produce(messageID, key string, data []byte, headers []kafka.Header) error {
	start := time.Now()
	defer func() {
		metrics.KafkaProduceLatency.Observe(time.Since(start).Seconds())
	}()

	deliveryChan := make(chan kafka.Event, 1)

	err := p.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &p.topic, Partition: kafka.PartitionAny},
		Key:            []byte(key),
		Value:          data,
		Headers:        headers,
	}, deliveryChan)
	if err != nil {
		return fmt.Errorf("failed to produce message: %w", err)
	}

	e := <-deliveryChan
	m, ok := e.(*kafka.Message)
	if !ok {
		return fmt.Errorf("unexpected delivery event: %v", e)
	}

	if m.TopicPartition.Error != nil {
		logger.WithMessageID(messageID).WithFields(logrus.Fields{
			"error": m.TopicPartition.Error.Error(),
		}).Error("Failed to deliver message")
		return fmt.Errorf("delivery failed: %w", m.TopicPartition.Error)
	}

	logger.WithMessageID(messageID).WithFields(logrus.Fields{
		"partition": m.TopicPartition.Partition,
		"offset":    m.TopicPartition.Offset,
	}).Info("Message delivered successfully")

	return nil
}
