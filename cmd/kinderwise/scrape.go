package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"kinderwise/internal/audit"
	"kinderwise/internal/config"
	"kinderwise/internal/ingest"
	"kinderwise/internal/scraper"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var sourceName string

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape configured health authority feeds into draft bundles",
	RunE: func(cmd *cobra.Command, args []string) error {
		sources := cfg.Scraper.Sources
		if sourceName != "" {
			src, ok := cfg.Source(sourceName)
			if !ok {
				return fmt.Errorf("unknown source %q", sourceName)
			}
			sources = []config.SourceConfig{src}
		}
		if len(sources) == 0 {
			return fmt.Errorf("no scraper sources configured")
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		processor := ingest.NewProcessor(st, audit.NewDirectAuditor(st, logger), logger)
		s := scraper.New(
			scraper.NewHTTPExtractor(cfg.Scraper.TimeoutDuration(), cfg.Scraper.UserAgent),
			processor,
			cfg.Scraper.UserAgent,
			logger.With(zap.String("component", "scraper")),
		)

		var result *multierror.Error
		for _, src := range sources {
			out, err := s.Run(ctx, src)
			if err != nil {
				logger.Error("Scrape failed", zap.String("source", src.Name), zap.Error(err))
				result = multierror.Append(result, err)
				continue
			}
			logger.Info("Scrape complete",
				zap.String("source", src.Name),
				zap.String("batch_id", out.BatchID),
				zap.String("status", string(out.Status)),
				zap.Int("successful", out.Results.Successful),
				zap.Int("failed", out.Results.Failed))
		}
		return result.ErrorOrNil()
	},
}

func init() {
	scrapeCmd.Flags().StringVar(&sourceName, "source", "", "Only scrape the named source")
}
