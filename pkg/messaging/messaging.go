package messaging

import (
	"context"
	"fmt"

	"github.com/confluentinc/confluent-kafka-go/kafka"

	"github.com/dennishilgert/fnexec/pkg/logger"
)

var log = logger.NewLogger("fnexec.messaging")

// NewAdminClient creates a new kafka admin client.
func NewAdminClient(bootstrapServers string) (*kafka.AdminClient, error) {
	return kafka.NewAdminClient(&kafka.ConfigMap{
		"bootstrap.servers": bootstrapServers,
	})
}

// EnsureTopic creates the topic unless it already exists.
func EnsureTopic(ctx context.Context, bootstrapServers string, topic string, opts TopicOptions) error {
	opts = opts.withDefaults()
	client, err := NewAdminClient(bootstrapServers)
	if err != nil {
		return fmt.Errorf("failed to create admin client: %w", err)
	}
	defer client.Close()

	results, err := client.CreateTopics(
		ctx,
		[]kafka.TopicSpecification{{
			Topic:             topic,
			NumPartitions:     opts.Partitions,
			ReplicationFactor: opts.ReplicationFactor,
		}},
		kafka.SetAdminOperationTimeout(opts.AdminTimeout),
	)
	if err != nil {
		return fmt.Errorf("failed to create topic %s: %w", topic, err)
	}
	for _, result := range results {
		switch result.Error.Code() {
		case kafka.ErrNoError:
			log.Infof("created topic %s", result.Topic)
		case kafka.ErrTopicAlreadyExists:
			log.Debugf("topic %s already exists", result.Topic)
		default:
			return fmt.Errorf("failed to create topic %s: %w", result.Topic, result.Error)
		}
	}
	return nil
}
