package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	fieldValue   = "value"
	fieldKey     = "key"
	headerPrefix = "header:"
)

// RedisProducer appends payloads to Redis streams, one stream per topic.
type RedisProducer struct {
	client *redis.Client
}

func NewRedisProducer(opts ClusterOptions) (Producer, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.DialTimeout,
		WriteTimeout: opts.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &RedisProducer{client: client}, nil
}

func (p *RedisProducer) Produce(ctx context.Context, topic string, payload Payload) error {
	values := make([]any, 0, 4+2*len(payload.Headers))
	values = append(values, fieldValue, payload.Value)
	if payload.Key != nil {
		values = append(values, fieldKey, payload.Key)
	}
	for _, h := range payload.Headers {
		values = append(values, headerPrefix+h.Key, h.Value)
	}

	err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: topic,
		Values: values,
	}).Err()
	if err != nil {
		return fmt.Errorf("produce to %s: %w", topic, err)
	}

	return nil
}

func (p *RedisProducer) Close() error {
	return p.client.Close()
}
