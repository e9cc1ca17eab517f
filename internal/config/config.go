package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/podushkina/taskdispatch/internal/broker"
)

var (
	ErrUnknownTopic   = errors.New("unknown topic")
	ErrUnknownCluster = errors.New("unknown cluster")
)

type Config struct {
	Server     ServerConfig             `mapstructure:"server" validate:"required"`
	Producer   ProducerConfig           `mapstructure:"producer" validate:"required"`
	Clusters   map[string]ClusterConfig `mapstructure:"clusters" validate:"required,min=1,dive"`
	Topics     map[string]TopicConfig   `mapstructure:"topics" validate:"dive"`
	Namespaces []NamespaceConfig        `mapstructure:"namespaces" validate:"dive"`
}

type ServerConfig struct {
	Port     int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

type ProducerConfig struct {
	PublishTimeout time.Duration `mapstructure:"publish_timeout" validate:"gte=0"`
	Workers        int           `mapstructure:"workers" validate:"gt=0"`
	QueueSize      int           `mapstructure:"queue_size" validate:"gt=0"`
	// ClusterTopic, when set, is the single logical topic used to find the
	// cluster for every namespace.
	ClusterTopic string `mapstructure:"cluster_topic"`
	// DefaultCluster hosts topics missing from Topics. Empty means such
	// topics fail to resolve.
	DefaultCluster string `mapstructure:"default_cluster"`
	StrictNames    bool   `mapstructure:"strict_names"`
}

type ClusterConfig struct {
	Addr         string        `mapstructure:"addr" validate:"required,hostname_port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db" validate:"gte=0"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout" validate:"gte=0"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" validate:"gte=0"`
}

type TopicConfig struct {
	Cluster string `mapstructure:"cluster" validate:"required"`
}

type NamespaceConfig struct {
	Name            string         `mapstructure:"name" validate:"required"`
	Topic           string         `mapstructure:"topic" validate:"required"`
	DeadletterTopic string         `mapstructure:"deadletter_topic" validate:"omitempty,nefield=Topic"`
	Retry           map[string]any `mapstructure:"retry"`
	Tasks           []string       `mapstructure:"tasks" validate:"dive,required"`
}

// TopicCluster implements broker.Resolver. Topic and cluster names are
// matched case-insensitively since viper lowercases map keys.
func (c *Config) TopicCluster(topic string) (string, error) {
	if tc, ok := c.Topics[strings.ToLower(topic)]; ok {
		return tc.Cluster, nil
	}
	if c.Producer.DefaultCluster != "" {
		return c.Producer.DefaultCluster, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
}

// ClusterOptions implements broker.Resolver.
func (c *Config) ClusterOptions(cluster string) (broker.ClusterOptions, error) {
	cc, ok := c.Clusters[strings.ToLower(cluster)]
	if !ok {
		return broker.ClusterOptions{}, fmt.Errorf("%w: %s", ErrUnknownCluster, cluster)
	}
	return broker.ClusterOptions{
		Addr:         cc.Addr,
		Password:     cc.Password,
		DB:           cc.DB,
		DialTimeout:  cc.DialTimeout,
		WriteTimeout: cc.WriteTimeout,
	}, nil
}
