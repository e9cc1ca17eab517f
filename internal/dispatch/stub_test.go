package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/podushkina/taskdispatch/internal/broker"
)

type sent struct {
	topic   string
	payload broker.Payload
}

type stubProducer struct {
	mu     sync.Mutex
	sent   []sent
	err    error
	delay  time.Duration
	closed bool
}

func (p *stubProducer) Produce(ctx context.Context, topic string, payload broker.Payload) error {
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, sent{topic: topic, payload: payload})
	return nil
}

func (p *stubProducer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *stubProducer) messages() []sent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]sent(nil), p.sent...)
}

var errUnknown = errors.New("unknown")

type stubResolver struct {
	mu       sync.Mutex
	topics   map[string]string
	clusters map[string]broker.ClusterOptions
}

func newStubResolver() *stubResolver {
	return &stubResolver{
		topics:   map[string]string{"orders": "main", "t1": "main", "t2": "main", "fixed": "main"},
		clusters: map[string]broker.ClusterOptions{"main": {Addr: "main:6379"}},
	}
}

func (r *stubResolver) TopicCluster(topic string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.topics[topic]
	if !ok {
		return "", errUnknown
	}
	return c, nil
}

func (r *stubResolver) ClusterOptions(cluster string) (broker.ClusterOptions, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.clusters[cluster]
	if !ok {
		return broker.ClusterOptions{}, errUnknown
	}
	return o, nil
}

// countingFactory hands out one shared stub producer and counts constructions.
type countingFactory struct {
	calls    atomic.Int32
	producer *stubProducer
	lastOpts atomic.Value
}

func (f *countingFactory) build(opts broker.ClusterOptions) (broker.Producer, error) {
	f.calls.Add(1)
	f.lastOpts.Store(opts)
	time.Sleep(10 * time.Millisecond)
	return f.producer, nil
}
