package producer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/confluentinc/confluent-kafka-go/kafka"

	"github.com/dennishilgert/fnexec/pkg/logger"
)

var log = logger.NewLogger("fnexec.messaging.producer")

type Options struct {
	BootstrapServers string
	// FlushTimeoutMs bounds the flush on Close.
	FlushTimeoutMs int
}

type MessagingProducer interface {
	// Publish enqueues a JSON encoded message. Delivery is reported asynchronously.
	Publish(ctx context.Context, topic string, key string, message any) error
	Close() error
}

type messagingProducer struct {
	producer       *kafka.Producer
	flushTimeoutMs int
}

// NewMessagingProducer creates a producer and starts consuming its delivery reports.
func NewMessagingProducer(opts Options) (MessagingProducer, error) {
	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": opts.BootstrapServers,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create messaging producer: %w", err)
	}
	flushTimeoutMs := opts.FlushTimeoutMs
	if flushTimeoutMs <= 0 {
		flushTimeoutMs = 5000
	}

	m := &messagingProducer{
		producer:       producer,
		flushTimeoutMs: flushTimeoutMs,
	}
	go m.deliveryReports()
	return m, nil
}

// deliveryReports drains the events channel so that Flush can account for every message.
func (m *messagingProducer) deliveryReports() {
	for e := range m.producer.Events() {
		switch event := e.(type) {
		case *kafka.Message:
			if event.TopicPartition.Error != nil {
				log.Errorf("failed to deliver message: %v", event.TopicPartition.Error)
			} else {
				log.Debugf("delivered message to topic %s [%d] at offset %v", *event.TopicPartition.Topic, event.TopicPartition.Partition, event.TopicPartition.Offset)
			}
		case kafka.Error:
			log.Errorf("kafka error: %v", event)
		default:
			log.Debugf("ignored kafka event: %v", e)
		}
	}
}

func (m *messagingProducer) Publish(ctx context.Context, topic string, key string, message any) error {
	value, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Value:          value,
	}
	if key != "" {
		msg.Key = []byte(key)
	}
	if err := m.producer.Produce(msg, nil); err != nil {
		return fmt.Errorf("failed to enqueue message to topic %s: %w", topic, err)
	}
	log.Debugf("enqueued message to topic %s", topic)
	return nil
}

func (m *messagingProducer) Close() error {
	unsent := m.producer.Flush(m.flushTimeoutMs)
	m.producer.Close()
	if unsent > 0 {
		return fmt.Errorf("failed to flush unsent messages: %d", unsent)
	}
	return nil
}
