package recorder

import (
	"context"
	"fmt"

	"github.com/dennishilgert/fnexec/internal/app/executor"
	"github.com/dennishilgert/fnexec/pkg/messaging"
	"github.com/dennishilgert/fnexec/pkg/messaging/producer"
)

// DefaultTopic receives the invocation records.
const DefaultTopic = "fnexec_invocations"

type KafkaOptions struct {
	BootstrapServers string
	Topic            string
	Partitions       int
}

type kafkaSink struct {
	producer producer.MessagingProducer
	topic    string
}

// NewKafkaSink creates the topic if needed and publishes records to it.
func NewKafkaSink(ctx context.Context, opts KafkaOptions) (Sink, error) {
	topic := opts.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	if err := messaging.EnsureTopic(ctx, opts.BootstrapServers, topic, messaging.TopicOptions{
		Partitions: opts.Partitions,
	}); err != nil {
		return nil, err
	}
	p, err := producer.NewMessagingProducer(producer.Options{
		BootstrapServers: opts.BootstrapServers,
	})
	if err != nil {
		return nil, err
	}
	return NewProducerSink(p, topic), nil
}

// NewProducerSink publishes records with an existing producer.
func NewProducerSink(p producer.MessagingProducer, topic string) Sink {
	return &kafkaSink{
		producer: p,
		topic:    topic,
	}
}

func (k *kafkaSink) Name() string {
	return "kafka"
}

// Store publishes the record keyed by function name so that records of one
// function stay ordered within a partition.
func (k *kafkaSink) Store(ctx context.Context, record executor.Record) error {
	if err := k.producer.Publish(ctx, k.topic, record.Function, record); err != nil {
		return fmt.Errorf("failed to publish invocation record: %w", err)
	}
	return nil
}

func (k *kafkaSink) Close() error {
	return k.producer.Close()
}
