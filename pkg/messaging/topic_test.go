package messaging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTopicOptionsDefaults(t *testing.T) {
	opts := TopicOptions{}.withDefaults()
	assert.Equal(t, 3, opts.Partitions)
	assert.Equal(t, 1, opts.ReplicationFactor)
	assert.Equal(t, 30*time.Second, opts.AdminTimeout)

	opts = TopicOptions{Partitions: 6, ReplicationFactor: 2, AdminTimeout: time.Second}.withDefaults()
	assert.Equal(t, 6, opts.Partitions)
	assert.Equal(t, 2, opts.ReplicationFactor)
	assert.Equal(t, time.Second, opts.AdminTimeout)
}
