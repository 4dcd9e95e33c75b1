package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"kinderwise/internal/audit"
	"kinderwise/internal/auth"
	"kinderwise/internal/chat"
	"kinderwise/internal/feed"
	"kinderwise/internal/ingest"
	"kinderwise/internal/server"
	"kinderwise/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const drainWait = 10 * time.Second

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server and the audit drainer",
	RunE: func(cmd *cobra.Command, args []string) error {
		if listenAddr != "" {
			cfg.Server.Addr = listenAddr
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		queue, closeQueue, err := openAuditQueue()
		if err != nil {
			return err
		}
		defer closeQueue()

		// The drainer outlives the signal; the store closes only after it is done.
		drainCtx, stopDrain := context.WithCancel(context.Background())
		drainer := audit.NewDrainer(queue, st, logger.With(zap.String("component", "audit")))
		go drainer.Start(drainCtx)
		defer func() {
			stopDrain()
			select {
			case <-drainer.Done():
			case <-time.After(drainWait):
				logger.Warn("Audit drainer did not stop in time")
			}
		}()

		if bs, ok := st.(*store.BadgerStore); ok {
			go bs.RunGC(ctx, cfg.Storage.GCDuration(), logger)
		}

		if cfg.Ingest.Secret == "" {
			logger.Warn("No ingest secret configured; POST /api/ingest will reject every request")
		}

		var completer chat.Completer
		if cfg.Chat.LLMEnabled() {
			completer = chat.NewOpenAIClient(cfg.Chat)
		}

		srv := server.NewServer(server.Deps{
			Content:   st,
			Processor: ingest.NewProcessor(st, audit.NewQueueAuditor(queue, logger), logger),
			Auth:      auth.NewBearer(cfg.Ingest.Secret),
			Feeds: feed.NewBuilder(feed.Site{
				Title:       cfg.Server.SiteTitle,
				BaseURL:     cfg.Server.BaseURL,
				Description: cfg.Server.SiteDescription,
			}),
			Chat:         chat.NewService(st, completer, logger),
			MaxBatchSize: cfg.Ingest.MaxBatchSize,
			FeedLimit:    cfg.Server.FeedLimit,
		}, logger)

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start(cfg.Server.Addr)
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
		case <-ctx.Done():
			logger.Info("Shutting down...")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			logger.Error("Server shutdown failed", zap.Error(err))
		}

		logger.Info("Goodbye!")
		return nil
	},
}

// openAuditQueue uses Redis when an address is configured and an
// in-process queue otherwise.
func openAuditQueue() (audit.Queue, func(), error) {
	if cfg.Redis.Addr == "" {
		return audit.NewChanQueue(0), func() {}, nil
	}
	q, err := audit.NewRedisQueue(cfg.Redis.Addr)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Audit queue on redis", zap.String("addr", cfg.Redis.Addr))
	return q, func() { q.Close() }, nil
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "addr", "", "Listen address (overrides server.addr)")
}
