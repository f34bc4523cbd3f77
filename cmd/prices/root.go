package main

import (
	"context"
	"fmt"

	"coinprices/config"
	"coinprices/internal/collector"
	"coinprices/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type app struct {
	configPath string
	cfg        *config.Config
	log        *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:          "prices",
		Short:        "Ingest CoinGecko prices into a relational store",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			log, err := logger.New(cfg.Log)
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			a.cfg, a.log = cfg, log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (default: ./config.yaml, ./config/config.yaml)")

	root.AddCommand(
		newLastCmd(a),
		newHistoricalCmd(a),
		newScheduleCmd(a),
		newStatsCmd(a),
		newDeleteCmd(a),
		newMappingCmd(a),
	)

	return root
}

// withCollector opens a collector for the duration of fn.
func (a *app) withCollector(ctx context.Context, fn func(*collector.Collector) error) error {
	c, err := collector.New(ctx, a.cfg, a.log)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			a.log.Warn("failed to close storage", zap.Error(err))
		}
	}()
	return fn(c)
}
