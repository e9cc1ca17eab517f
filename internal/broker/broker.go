// Package broker defines the producer transport used to publish task
// invocations and its Redis Streams implementation.
package broker

import (
	"context"
	"time"
)

type Header struct {
	Key   string
	Value []byte
}

// Payload is a single transport message. A nil Key means no partitioning key.
type Payload struct {
	Key     []byte
	Value   []byte
	Headers []Header
}

// Producer publishes payloads to named topics. Implementations must be safe
// for concurrent use.
type Producer interface {
	Produce(ctx context.Context, topic string, p Payload) error
	Close() error
}

type ClusterOptions struct {
	Addr         string
	Password     string
	DB           int
	DialTimeout  time.Duration
	WriteTimeout time.Duration
}

// Resolver maps a logical topic to the cluster hosting it and a cluster to
// its connection options.
type Resolver interface {
	TopicCluster(topic string) (string, error)
	ClusterOptions(cluster string) (ClusterOptions, error)
}

// Factory builds a connected producer for a cluster.
type Factory func(opts ClusterOptions) (Producer, error)
