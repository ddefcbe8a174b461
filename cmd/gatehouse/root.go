package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/gatehouse/pkg/config"
	"github.com/dmitrymomot/gatehouse/pkg/logger"
)

type rootOptions struct {
	envFiles []string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "gatehouse",
		Short:         "Route dispatcher and authentication gate",
		SilenceUsage:  true,
	}
	cmd.PersistentFlags().StringSliceVar(&opts.envFiles, "env", nil, "dotenv files to load (default .env)")

	cmd.AddCommand(
		newServeCmd(opts),
		newRoutesCmd(opts),
		newHashCmd(),
		newUserCmd(opts),
	)
	return cmd
}

func (o *rootOptions) load() (*config.Config, error) {
	return config.Load(o.envFiles...)
}

func newLogger(cfg *config.Config) *slog.Logger {
	return logger.New(
		logger.WithLevel(logger.ParseLevel(cfg.App.LogLevel)),
		logger.WithFormat(logger.Format(cfg.App.LogFormat)),
		logger.WithSentry(cfg.Sentry),
		logger.WithExtractors(logger.RequestIDExtractor()),
	)
}
