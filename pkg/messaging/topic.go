package messaging

import "time"

const (
	defaultAdminTimeout      = 30 * time.Second
	defaultPartitions        = 3
	defaultReplicationFactor = 1
)

// TopicOptions describes a topic created by EnsureTopic. Zero values fall
// back to the defaults.
type TopicOptions struct {
	Partitions        int
	ReplicationFactor int
	AdminTimeout      time.Duration
}

func (o TopicOptions) withDefaults() TopicOptions {
	if o.Partitions <= 0 {
		o.Partitions = defaultPartitions
	}
	if o.ReplicationFactor <= 0 {
		o.ReplicationFactor = defaultReplicationFactor
	}
	if o.AdminTimeout <= 0 {
		o.AdminTimeout = defaultAdminTimeout
	}
	return o
}
