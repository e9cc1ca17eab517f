package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/podushkina/taskdispatch/internal/api"
	"github.com/podushkina/taskdispatch/internal/config"
	"github.com/podushkina/taskdispatch/internal/dispatch"
	"github.com/podushkina/taskdispatch/internal/handlers"
	"github.com/podushkina/taskdispatch/internal/logger"
	"github.com/podushkina/taskdispatch/internal/worker"
)

func main() {
	configPath := flag.String("config", "", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	log := logger.Setup(cfg.Server.LogLevel)

	registry, err := buildRegistry(cfg, log)
	if err != nil {
		log.Error("failed to build task registry", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := registry.Close(); err != nil {
			log.Error("failed to close producers", "error", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := worker.NewPool(cfg.Producer.Workers, cfg.Producer.QueueSize, log)
	pool.Start(ctx)

	handler := api.NewHandler(registry, pool)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", "error", err)
	}

	cancel()
	pool.Stop()
	log.Info("server stopped")
}

// buildRegistry creates every configured namespace and registers the
// builtin callables it lists.
func buildRegistry(cfg *config.Config, log *slog.Logger) (*dispatch.Registry, error) {
	opts := []dispatch.Option{
		dispatch.WithLogger(log),
		dispatch.WithPublishTimeout(cfg.Producer.PublishTimeout),
		dispatch.WithClusterTopic(cfg.Producer.ClusterTopic),
	}
	if cfg.Producer.StrictNames {
		opts = append(opts, dispatch.WithStrictNames())
	}

	registry := dispatch.NewRegistry(cfg, opts...)

	for _, nc := range cfg.Namespaces {
		ns, err := registry.CreateNamespace(nc.Name, nc.Topic, nc.DeadletterTopic, nc.Retry)
		if err != nil {
			return nil, err
		}

		for _, name := range nc.Tasks {
			fn, ok := handlers.Builtin[name]
			if !ok {
				return nil, fmt.Errorf("namespace %s: unknown builtin task %s", nc.Name, name)
			}
			ns.Register(name, fn)
		}

		log.Info("namespace created",
			"namespace", nc.Name,
			"topic", nc.Topic,
			"deadletter_topic", nc.DeadletterTopic,
			"tasks", len(nc.Tasks))
	}

	return registry, nil
}
