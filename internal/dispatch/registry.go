// Package dispatch implements the producer side of task execution: a
// registry of namespaces, each of which serializes task invocations and
// publishes them to its broker topic.
package dispatch

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/podushkina/taskdispatch/internal/broker"
)

type settings struct {
	resolver       broker.Resolver
	factory        broker.Factory
	logger         *slog.Logger
	publishTimeout time.Duration
	clusterTopic   string
	strict         bool
	now            func() time.Time
}

type Option func(*settings)

// WithProducerFactory overrides how producers are built. Defaults to
// broker.NewRedisProducer.
func WithProducerFactory(f broker.Factory) Option {
	return func(s *settings) { s.factory = f }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithPublishTimeout bounds each publish. Zero disables the bound.
func WithPublishTimeout(d time.Duration) Option {
	return func(s *settings) { s.publishTimeout = d }
}

// WithClusterTopic resolves every namespace's cluster through one fixed
// logical topic instead of the namespace's own topic.
func WithClusterTopic(topic string) Option {
	return func(s *settings) { s.clusterTopic = topic }
}

// WithStrictNames rejects duplicate namespace names with ErrNamespaceExists
// and makes duplicate task registration panic.
func WithStrictNames() Option {
	return func(s *settings) { s.strict = true }
}

func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

// Registry is the catalog of namespaces. It is safe for concurrent use.
type Registry struct {
	cfg *settings

	mu         sync.RWMutex
	namespaces map[string]*Namespace
}

func NewRegistry(resolver broker.Resolver, opts ...Option) *Registry {
	cfg := &settings{
		resolver:       resolver,
		factory:        broker.NewRedisProducer,
		logger:         slog.Default(),
		publishTimeout: 5 * time.Second,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &Registry{
		cfg:        cfg,
		namespaces: make(map[string]*Namespace),
	}
}

// CreateNamespace builds a namespace and stores it under name. An existing
// namespace with the same name is replaced and closed unless the registry is
// strict; tasks still bound to it fail with ErrClosed.
func (r *Registry) CreateNamespace(name, topic, deadletterTopic string, retry any) (*Namespace, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrInvalidNamespace)
	}
	if topic == "" {
		return nil, fmt.Errorf("%w: %s: empty topic", ErrInvalidNamespace, name)
	}
	if deadletterTopic != "" && deadletterTopic == topic {
		return nil, fmt.Errorf("%w: %s: deadletter topic must differ from topic %s", ErrInvalidNamespace, name, topic)
	}

	ns := newNamespace(name, topic, deadletterTopic, retry, r.cfg)

	r.mu.Lock()
	prev, exists := r.namespaces[name]
	if exists && r.cfg.strict {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNamespaceExists, name)
	}
	r.namespaces[name] = ns
	r.mu.Unlock()

	if exists {
		r.cfg.logger.Warn("namespace re-created, replacing previous definition",
			"namespace", name,
			"previous_topic", prev.topic,
			"topic", topic)
		if err := prev.Close(); err != nil {
			r.cfg.logger.Error("failed to close replaced namespace",
				"namespace", name,
				"error", err)
		}
	}

	return ns, nil
}

func (r *Registry) Namespace(name string) (*Namespace, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ns, ok := r.namespaces[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNamespaceNotFound, name)
	}
	return ns, nil
}

// Namespaces returns the registered namespaces ordered by name.
func (r *Registry) Namespaces() []*Namespace {
	r.mu.RLock()
	list := make([]*Namespace, 0, len(r.namespaces))
	for _, ns := range r.namespaces {
		list = append(list, ns)
	}
	r.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool { return list[i].name < list[j].name })
	return list
}

// Close releases the producers of every registered namespace.
func (r *Registry) Close() error {
	r.mu.RLock()
	all := make([]*Namespace, 0, len(r.namespaces))
	for _, ns := range r.namespaces {
		all = append(all, ns)
	}
	r.mu.RUnlock()

	var errs []error
	for _, ns := range all {
		if err := ns.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close namespace %s: %w", ns.name, err))
		}
	}
	return errors.Join(errs...)
}
