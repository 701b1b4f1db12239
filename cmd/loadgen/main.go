package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/postboard/internal/loadgen"
	"github.com/okian/postboard/pkg/logger"
)

// Default configuration constants.
const (
	defaultNumUsers     = 100
	defaultPostsPerUser = 5
	defaultWorkers      = 2 // multiplier for runtime.NumCPU()
	defaultTimeout      = 30 * time.Second
	defaultRunTimeout   = 10 * time.Minute
)

func main() {
	if err := command().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "load run failed:", err)
		os.Exit(1)
	}
}

func command() *cobra.Command {
	cfg := &loadgen.Config{}
	var (
		logFormat  string
		runTimeout time.Duration
	)

	cmd := &cobra.Command{
		Use:           "loadgen",
		Short:         "Drive concurrent user and post lifecycles against a postboard server",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.InitWith(os.Stdout, logFormat); err != nil {
				return fmt.Errorf("failed to setup logging: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, runTimeout)
			defer cancel()

			_, err := loadgen.Run(ctx, cfg)
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", "http://localhost:3000", "base URL of the service")
	f.IntVar(&cfg.NumUsers, "users", defaultNumUsers, "number of users to create")
	f.IntVar(&cfg.PostsPerUser, "posts", defaultPostsPerUser, "posts drafted per user")
	f.Float64Var(&cfg.PublishRatio, "publish", 0.5, "fraction of posts to publish")
	f.Float64Var(&cfg.DeleteRatio, "delete", 0.2, "fraction of published posts to delete")
	f.IntVar(&cfg.Workers, "workers", runtime.NumCPU()*defaultWorkers, "number of concurrent workers")
	f.DurationVar(&cfg.Timeout, "timeout", defaultTimeout, "HTTP request timeout")
	f.DurationVar(&runTimeout, "run-timeout", defaultRunTimeout, "overall run deadline")
	f.BoolVarP(&cfg.Verbose, "verbose", "v", false, "log every failed request")
	f.StringVar(&logFormat, "log-format", "text", "log format: text or json")

	return cmd
}
