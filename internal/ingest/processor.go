// Package ingest runs batches of content bundles through validation and
// the content store, recording every attempt in the audit log.
package ingest

import (
	"context"
	"time"

	"kinderwise/internal/audit"
	"kinderwise/internal/model"
	"kinderwise/internal/validate"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const validationFailed = "Validation failed"

// Upserter is the slice of the content store the processor needs.
type Upserter interface {
	UpsertBundle(ctx context.Context, p model.UpsertParams) (uuid.UUID, error)
}

// Outcome is the result of one batch.
type Outcome struct {
	BatchID   string             `json:"batch_id"`
	Status    model.BatchStatus  `json:"status"`
	Results   model.BatchResults `json:"results"`
	Timestamp time.Time          `json:"timestamp"`
}

type Processor struct {
	store     Upserter
	validator *validate.Validator
	auditor   audit.Auditor
	logger    *zap.Logger
}

func NewProcessor(st Upserter, auditor audit.Auditor, logger *zap.Logger) *Processor {
	return &Processor{
		store:     st,
		validator: validate.New(logger.With(zap.String("component", "validator"))),
		auditor:   auditor,
		logger:    logger,
	}
}

// Process handles bundles one at a time, in order. A failing bundle is
// recorded and never stops the batch.
func (p *Processor) Process(ctx context.Context, batchID string, bundles []any) Outcome {
	logger := p.logger.With(zap.String("batch_id", batchID))
	logger.Info("Batch started", zap.Int("bundles", len(bundles)))

	results := model.NewBatchResults(len(bundles))
	for _, raw := range bundles {
		results = p.step(ctx, batchID, raw, results)
	}

	status := results.Status()
	entry := model.NewLogEntry(batchID, "", model.ActionBatchCompletion, status)
	entry.Metadata = results
	p.auditor.Record(ctx, entry)

	logger.Info("Batch complete",
		zap.String("status", string(status)),
		zap.Int("successful", results.Successful),
		zap.Int("failed", results.Failed))

	return Outcome{
		BatchID:   batchID,
		Status:    status,
		Results:   results,
		Timestamp: time.Now().UTC(),
	}
}

// step folds one bundle into results.
func (p *Processor) step(ctx context.Context, batchID string, raw any, results model.BatchResults) model.BatchResults {
	slug := validate.SlugOf(raw)

	if !p.validator.Validate(raw) {
		p.recordFailure(ctx, batchID, slug, validationFailed, raw)
		return withFailure(results, slug, validationFailed)
	}

	id, err := p.upsert(ctx, raw)
	if err != nil {
		p.logger.Error("Upsert failed",
			zap.String("batch_id", batchID),
			zap.String("slug", slug),
			zap.Error(err))
		p.recordFailure(ctx, batchID, slug, err.Error(), raw)
		return withFailure(results, slug, err.Error())
	}

	entry := model.NewLogEntry(batchID, slug, model.ActionCreate, model.BatchSuccess)
	entry.Metadata = map[string]string{"article_id": id.String()}
	p.auditor.Record(ctx, entry)

	results.Successful++
	return results
}

func (p *Processor) upsert(ctx context.Context, raw any) (uuid.UUID, error) {
	bundle, err := model.DecodeBundle(raw)
	if err != nil {
		return uuid.Nil, err
	}
	return p.store.UpsertBundle(ctx, bundle.UpsertParams())
}

func (p *Processor) recordFailure(ctx context.Context, batchID, slug, msg string, raw any) {
	entry := model.NewLogEntry(batchID, slug, model.ActionError, model.BatchError)
	entry.ErrorMessage = msg
	entry.Metadata = raw
	p.auditor.Record(ctx, entry)
}

func withFailure(results model.BatchResults, slug, msg string) model.BatchResults {
	results.Failed++
	results.Errors = append(results.Errors, model.BundleError{Slug: slug, Error: msg})
	return results
}
