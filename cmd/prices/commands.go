package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"coinprices/internal/collector"
	"coinprices/internal/ingest"
	"coinprices/internal/model"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newLastCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "last",
		Short: "Fetch the current price of every mapped symbol",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runOnce(cmd.Context(), ingest.Latest)
		},
	}
}

func newHistoricalCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "historical",
		Short: "Fetch 30 days of hourly prices for every mapped symbol",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runOnce(cmd.Context(), ingest.Historical)
		},
	}
}

func (a *app) runOnce(ctx context.Context, mode ingest.Mode) error {
	return a.withCollector(ctx, func(c *collector.Collector) error {
		res, err := c.RunOnce(ctx, mode)
		if err != nil {
			a.log.Error("ingest failed", zap.Stringer("mode", mode), zap.Error(err))
			return err
		}
		a.log.Info("ingest done",
			zap.Stringer("mode", mode),
			zap.Int("symbols", res.Symbols),
			zap.Int("records", res.Records),
		)
		return nil
	})
}

func newScheduleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run historical hourly and latest every minute until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return a.withCollector(ctx, func(c *collector.Collector) error {
				a.log.Info("scheduler starting",
					zap.Duration("historical_every", a.cfg.Schedule.HistoricalEvery),
					zap.Duration("latest_every", a.cfg.Schedule.LatestEvery),
				)
				return c.Schedule(ctx)
			})
		},
	}
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print row counts and the newest price per symbol",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withCollector(cmd.Context(), func(c *collector.Collector) error {
				stats, err := c.Stats(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "prices: %d\nmappings: %d\n", stats.Prices, stats.Mappings)
				if len(stats.Symbols) == 0 {
					return nil
				}

				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "SYMBOL\tROWS\tLATEST\tUSD\tEUR\tMIRRORED")
				for _, st := range stats.Symbols {
					latest, usd, eur, mirrored := "-", "-", "-", "-"
					if st.Latest != nil {
						latest = st.Latest.Timestamp.Format(time.RFC3339)
						usd = fmt.Sprintf("%g", st.Latest.PriceUSD)
						eur = fmt.Sprintf("%g", st.Latest.PriceEUR)
					}
					if st.Mirrored != nil {
						mirrored = time.Unix(st.Mirrored.Ts, 0).UTC().Format(time.RFC3339)
					}
					fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\n", st.Symbol, st.Rows, latest, usd, eur, mirrored)
				}
				return w.Flush()
			})
		},
	}
}

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Delete every stored price (mappings are kept)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withCollector(cmd.Context(), func(c *collector.Collector) error {
				n, err := c.Store().DeletePrices(cmd.Context())
				if err != nil {
					return err
				}
				a.log.Info("prices deleted", zap.Int64("rows", n))
				return nil
			})
		},
	}
}

func newMappingCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mapping",
		Short: "Inspect or edit the symbol to CoinGecko id mapping",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print every mapping row",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withCollector(cmd.Context(), func(c *collector.Collector) error {
				mappings, err := c.Store().LoadMappings(cmd.Context())
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "SYMBOL\tNAME")
				for _, m := range mappings {
					fmt.Fprintf(w, "%s\t%s\n", m.Symbol, m.Name)
				}
				return w.Flush()
			})
		},
	}, &cobra.Command{
		Use:   "set <symbol> <name>",
		Short: "Add a mapping or replace its CoinGecko id",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withCollector(cmd.Context(), func(c *collector.Collector) error {
				m := model.Mapping{Symbol: args[0], Name: args[1]}
				if err := c.Store().UpsertMapping(cmd.Context(), m); err != nil {
					return err
				}
				a.log.Info("mapping saved", zap.String("symbol", m.Symbol), zap.String("name", m.Name))
				return nil
			})
		},
	})

	return cmd
}
