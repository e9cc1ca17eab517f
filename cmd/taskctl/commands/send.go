package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/podushkina/taskdispatch/internal/config"
	"github.com/podushkina/taskdispatch/internal/dispatch"
	"github.com/spf13/cobra"
)

var (
	sendNamespace string
	sendTask      string
	sendArgs      string
	sendKwargs    string
	sendVerbose   bool
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Publish one task invocation",
	Long: `Publish one invocation of a task to its namespace topic and print the
invocation id.

The namespace must exist in the configuration. The task name is not checked
against any worker; it is written to the message as given.

Examples:
  taskctl send --namespace billing --task charge --args '[1, "a"]'
  taskctl send --namespace billing --task refund --kwargs '{"order": 42}'`,
	RunE: runSend,
}

func init() {
	sendCmd.Flags().StringVarP(&sendNamespace, "namespace", "n", "", "Namespace to publish to")
	sendCmd.Flags().StringVarP(&sendTask, "task", "t", "", "Task name")
	sendCmd.Flags().StringVar(&sendArgs, "args", "[]", "Positional arguments as a JSON array")
	sendCmd.Flags().StringVar(&sendKwargs, "kwargs", "{}", "Keyword arguments as a JSON object")
	sendCmd.Flags().BoolVarP(&sendVerbose, "verbose", "v", false, "Log producer activity to stderr")
	sendCmd.MarkFlagRequired("namespace")
	sendCmd.MarkFlagRequired("task")
	rootCmd.AddCommand(sendCmd)
}

func runSend(cmd *cobra.Command, _ []string) error {
	if strings.TrimSpace(sendNamespace) == "" {
		return fmt.Errorf("--namespace must not be empty")
	}
	if strings.TrimSpace(sendTask) == "" {
		return fmt.Errorf("--task must not be empty")
	}

	var params []any
	if err := decodeJSON(sendArgs, &params); err != nil {
		return fmt.Errorf("invalid --args: %w", err)
	}
	var kwargs map[string]any
	if err := decodeJSON(sendKwargs, &kwargs); err != nil {
		return fmt.Errorf("invalid --kwargs: %w", err)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	var nc *config.NamespaceConfig
	for i := range cfg.Namespaces {
		if cfg.Namespaces[i].Name == sendNamespace {
			nc = &cfg.Namespaces[i]
			break
		}
	}
	if nc == nil {
		return fmt.Errorf("%w: %s", dispatch.ErrNamespaceNotFound, sendNamespace)
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	if sendVerbose {
		log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	registry := dispatch.NewRegistry(cfg,
		dispatch.WithLogger(log),
		dispatch.WithPublishTimeout(cfg.Producer.PublishTimeout),
		dispatch.WithClusterTopic(cfg.Producer.ClusterTopic),
	)
	defer registry.Close()

	ns, err := registry.CreateNamespace(nc.Name, nc.Topic, nc.DeadletterTopic, nc.Retry)
	if err != nil {
		return err
	}

	id, err := ns.Register(sendTask, nil).Delay(context.Background(), params, kwargs)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), id)
	return nil
}

func decodeJSON(s string, v any) error {
	dec := json.NewDecoder(bytes.NewBufferString(s))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}

	var extra json.RawMessage
	if err := dec.Decode(&extra); err != io.EOF {
		return errors.New("unexpected data after JSON value")
	}
	return nil
}
