package commands

import (
	"fmt"
	"strings"

	"github.com/podushkina/taskdispatch/internal/config"
	"github.com/spf13/cobra"
)

var namespacesCmd = &cobra.Command{
	Use:   "namespaces",
	Short: "List configured task namespaces",
	RunE:  runNamespaces,
}

func init() {
	rootCmd.AddCommand(namespacesCmd)
}

func runNamespaces(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(cfg.Namespaces) == 0 {
		fmt.Fprintln(out, "No namespaces configured")
		return nil
	}

	for _, ns := range cfg.Namespaces {
		deadletter := ns.DeadletterTopic
		if deadletter == "" {
			deadletter = "-"
		}
		fmt.Fprintf(out, "%s\ttopic=%s\tdeadletter=%s\ttasks=%s\n",
			ns.Name, ns.Topic, deadletter, strings.Join(ns.Tasks, ","))
	}

	return nil
}
