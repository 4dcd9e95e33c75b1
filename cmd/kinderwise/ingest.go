package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"kinderwise/internal/audit"
	"kinderwise/internal/ingest"
	"kinderwise/internal/model"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var batchID string

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Ingest a JSON or NDJSON file of content bundles",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fileBatch, bundles, err := ingest.ReadFile(args[0])
		if err != nil {
			return err
		}
		id := batchID
		if id == "" {
			id = fileBatch
		}
		if id == "" {
			id = uuid.NewString()
		}

		req := ingest.Request{BatchID: id, Articles: bundles}
		if err := req.Check(cfg.Ingest.MaxBatchSize); err != nil {
			return err
		}

		ctx := context.Background()
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		processor := ingest.NewProcessor(st, audit.NewDirectAuditor(st, logger), logger)
		out := processor.Process(ctx, req.BatchID, req.Articles)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return err
		}

		logger.Info("Batch ingested",
			zap.String("batch_id", out.BatchID),
			zap.String("status", string(out.Status)))
		if out.Status == model.BatchError {
			return fmt.Errorf("every bundle in batch %s failed", out.BatchID)
		}
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&batchID, "batch-id", "", "Batch ID (default: from the file, else a new UUID)")
}
