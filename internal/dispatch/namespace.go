package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/podushkina/taskdispatch/internal/broker"
	"github.com/podushkina/taskdispatch/internal/task"
)

type producerRef struct {
	p broker.Producer
}

// Namespace links a topic, a deadletter topic and a default retry policy to
// a group of tasks. All of its tasks are published to the same topic through
// one lazily created producer.
type Namespace struct {
	name            string
	topic           string
	deadletterTopic string
	defaultRetry    any

	cfg    *settings
	logger *slog.Logger

	mu    sync.RWMutex
	tasks map[string]*Task

	// producer is read lock-free once set; initMu serializes creation.
	producer atomic.Pointer[producerRef]
	initMu   sync.Mutex
	closed   bool
}

func newNamespace(name, topic, deadletterTopic string, retry any, cfg *settings) *Namespace {
	return &Namespace{
		name:            name,
		topic:           topic,
		deadletterTopic: deadletterTopic,
		defaultRetry:    retry,
		cfg:             cfg,
		logger:          cfg.logger.With("component", "namespace", "namespace", name),
		tasks:           make(map[string]*Task),
	}
}

func (ns *Namespace) Name() string {
	return ns.name
}

func (ns *Namespace) Topic() string {
	return ns.topic
}

func (ns *Namespace) DeadletterTopic() string {
	return ns.deadletterTopic
}

// DefaultRetry returns the retry policy exactly as it was configured.
func (ns *Namespace) DefaultRetry() any {
	return ns.defaultRetry
}

// Register binds fn to name in this namespace and returns the task.
// Registering an existing name replaces the previous task, unless the
// registry was built WithStrictNames, in which case Register panics.
func (ns *Namespace) Register(name string, fn Func) *Task {
	if name == "" {
		panic("dispatch: empty task name")
	}

	t := &Task{name: name, fn: fn, namespace: ns}

	ns.mu.Lock()
	defer ns.mu.Unlock()

	if _, exists := ns.tasks[name]; exists {
		if ns.cfg.strict {
			panic(fmt.Sprintf("dispatch: task %q already registered in namespace %q", name, ns.name))
		}
		ns.logger.Warn("task re-registered, replacing previous definition", "task", name)
	}
	ns.tasks[name] = t

	return t
}

func (ns *Namespace) Task(name string) (*Task, error) {
	ns.mu.RLock()
	defer ns.mu.RUnlock()

	t, ok := ns.tasks[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrTaskNotFound, ns.name, name)
	}
	return t, nil
}

// Tasks returns the registered tasks ordered by name.
func (ns *Namespace) Tasks() []*Task {
	ns.mu.RLock()
	tasks := make([]*Task, 0, len(ns.tasks))
	for _, t := range ns.tasks {
		tasks = append(tasks, t)
	}
	ns.mu.RUnlock()

	sort.Slice(tasks, func(i, j int) bool { return tasks[i].name < tasks[j].name })
	return tasks
}

// Producer returns the namespace's producer, creating it on first use.
// Concurrent first callers share a single construction. A failed
// construction is not cached, so a later call may succeed.
func (ns *Namespace) Producer() (broker.Producer, error) {
	if ref := ns.producer.Load(); ref != nil {
		return ref.p, nil
	}

	ns.initMu.Lock()
	defer ns.initMu.Unlock()

	if ns.closed {
		return nil, ErrClosed
	}
	if ref := ns.producer.Load(); ref != nil {
		return ref.p, nil
	}

	clusterTopic := ns.cfg.clusterTopic
	if clusterTopic == "" {
		clusterTopic = ns.topic
	}

	cluster, err := ns.cfg.resolver.TopicCluster(clusterTopic)
	if err != nil {
		return nil, fmt.Errorf("resolve cluster for topic %s: %w", clusterTopic, err)
	}

	opts, err := ns.cfg.resolver.ClusterOptions(cluster)
	if err != nil {
		return nil, fmt.Errorf("resolve options for cluster %s: %w", cluster, err)
	}

	p, err := ns.cfg.factory(opts)
	if err != nil {
		return nil, fmt.Errorf("create producer for cluster %s: %w", cluster, err)
	}

	ns.producer.Store(&producerRef{p: p})
	ns.logger.Info("producer created", "cluster", cluster)

	return p, nil
}

// SendTask serializes one invocation of t and publishes it to the
// namespace topic. It returns the invocation id. Nothing is published when
// encoding fails.
func (ns *Namespace) SendTask(ctx context.Context, t *Task, args []any, kwargs map[string]any) (string, error) {
	if t == nil || t.namespace != ns {
		return "", ErrTaskNamespace
	}

	msg, err := task.NewMessage(ns.name, t.name, args, kwargs, ns.cfg.now())
	if err != nil {
		return "", err
	}

	data, err := task.Encode(msg)
	if err != nil {
		return "", err
	}

	p, err := ns.Producer()
	if err != nil {
		return "", err
	}

	pctx := ctx
	if ns.cfg.publishTimeout > 0 {
		var cancel context.CancelFunc
		pctx, cancel = context.WithTimeout(ctx, ns.cfg.publishTimeout)
		defer cancel()
	}

	if err := p.Produce(pctx, ns.topic, broker.Payload{Value: data}); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(pctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: task %s/%s: %w", ErrPublishTimeout, ns.name, t.name, err)
		}
		return "", fmt.Errorf("send task %s/%s: %w", ns.name, t.name, err)
	}

	ns.logger.Debug("task sent", "task", t.name, "task_id", msg.ID, "topic", ns.topic)

	return msg.ID, nil
}

// Close releases the producer. The namespace cannot send afterwards.
func (ns *Namespace) Close() error {
	ns.initMu.Lock()
	defer ns.initMu.Unlock()

	ns.closed = true
	ref := ns.producer.Swap(nil)
	if ref == nil {
		return nil
	}
	return ref.p.Close()
}
