package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const envPrefix = "TASKDISPATCH"

// Load reads configuration from path (or ./taskdispatch.yaml when path is
// empty and the file exists) and from TASKDISPATCH_* environment variables,
// which take precedence. The result is validated before it is returned.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("taskdispatch")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")

	v.SetDefault("producer.publish_timeout", "5s")
	v.SetDefault("producer.workers", 4)
	v.SetDefault("producer.queue_size", 256)
	v.SetDefault("producer.cluster_topic", "")
	v.SetDefault("producer.default_cluster", "default")
	v.SetDefault("producer.strict_names", false)

	v.SetDefault("clusters.default.addr", "localhost:6379")
}

// Validate checks field constraints and cross references between clusters,
// topics and namespaces.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	for name, tc := range c.Topics {
		if _, err := c.ClusterOptions(tc.Cluster); err != nil {
			return fmt.Errorf("invalid configuration: topic %s: %w", name, err)
		}
	}

	if dc := c.Producer.DefaultCluster; dc != "" {
		if _, err := c.ClusterOptions(dc); err != nil {
			return fmt.Errorf("invalid configuration: default cluster: %w", err)
		}
	}

	seen := make(map[string]struct{}, len(c.Namespaces))
	for _, ns := range c.Namespaces {
		if _, dup := seen[ns.Name]; dup {
			return fmt.Errorf("invalid configuration: duplicate namespace %s", ns.Name)
		}
		seen[ns.Name] = struct{}{}

		lookup := ns.Topic
		if c.Producer.ClusterTopic != "" {
			lookup = c.Producer.ClusterTopic
		}
		if _, err := c.TopicCluster(lookup); err != nil {
			return fmt.Errorf("invalid configuration: namespace %s: %w", ns.Name, err)
		}
	}

	return nil
}
