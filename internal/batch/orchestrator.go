package batch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/hmogawa/receipt-ocr-batch/internal/llm"
)

// Admitter gates each outbound inference call.
type Admitter interface {
	Admit()
}

// Journal records attempt outcomes as they happen. Optional; a nil journal
// disables recording.
type Journal interface {
	RecordAttempt(ctx context.Context, runID, filename string, attempt int, status, detail string) error
}

// Attempt statuses written to the journal.
const (
	AttemptOK    = "OK"
	AttemptRetry = "RETRY"
	AttemptFatal = "FATAL"
)

// Options tune a single orchestrator run.
type Options struct {
	RunID      string // defaults to a fresh UUID
	Prompt     string // defaults to llm.DefaultReceiptPrompt
	MaxRetries int    // defaults to 3
	Journal    Journal
}

// Orchestrator drives the batch: sorted input order, admission pacing and
// bounded retry per image, rate-limit classification, and persistence of
// whatever accumulated on every exit path.
type Orchestrator struct {
	logger     *slog.Logger
	window     Admitter
	client     llm.Inferer
	store      *Store
	journal    Journal
	runID      string
	prompt     string
	maxRetries int
	schema     map[string]any
}

func NewOrchestrator(logger *slog.Logger, window Admitter, client llm.Inferer, store *Store, opts Options) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.RunID == "" {
		opts.RunID = uuid.New().String()
	}
	if opts.Prompt == "" {
		opts.Prompt = llm.DefaultReceiptPrompt
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	return &Orchestrator{
		logger:     logger,
		window:     window,
		client:     client,
		store:      store,
		journal:    opts.Journal,
		runID:      opts.RunID,
		prompt:     opts.Prompt,
		maxRetries: opts.MaxRetries,
		schema:     llm.BuildReceiptJSONSchema(),
	}
}

// RunID identifies this orchestrator's run in logs and the journal.
func (o *Orchestrator) RunID() string { return o.runID }

// Run processes tasks in order and returns one record per attempted image.
// A rate-limit classified error aborts the remaining batch; images never
// reached get no record. Persistence is deferred so it fires exactly once
// whether the loop finished or the abort unwound it.
func (o *Orchestrator) Run(ctx context.Context, tasks []Task) (records []Record, err error) {
	defer func() {
		if _, perr := o.store.Persist(records); perr != nil {
			o.logger.Error("batch.persist.failed", "run_id", o.runID, "error", perr)
		}
	}()

	for _, t := range tasks {
		o.logger.Info("batch.image.start",
			"run_id", o.runID,
			"position", fmt.Sprintf("%d/%d", t.Position, len(tasks)),
			"filename", t.Name,
		)
		rec, perr := o.processImage(ctx, t)
		if perr != nil {
			o.logger.Error("batch.abort", "run_id", o.runID, "filename", t.Name, "error", perr)
			return records, perr
		}
		records = append(records, rec)
	}

	o.logger.Info("batch.done", "run_id", o.runID, "records", len(records))
	return records, nil
}

// processImage runs the bounded retry loop for one image. A rate-limit
// classified error is the only one allowed to escape; everything else is
// retried and, once attempts are exhausted, downgraded to a failure record.
func (o *Orchestrator) processImage(ctx context.Context, t Task) (Record, error) {
	for attempt := 1; attempt <= o.maxRetries; attempt++ {
		o.window.Admit()

		text, err := o.client.Infer(ctx, t.Path, o.prompt)
		if err != nil {
			if llm.IsRateLimit(err) {
				o.recordAttempt(ctx, t.Name, attempt, AttemptFatal, err.Error())
				return nil, fmt.Errorf("rate limit while processing %s: %w", t.Name, err)
			}
			o.logger.Error("batch.attempt.error",
				"run_id", o.runID, "filename", t.Name,
				"attempt", attempt, "max_retries", o.maxRetries, "error", err,
			)
			o.recordAttempt(ctx, t.Name, attempt, AttemptRetry, err.Error())
			continue
		}

		if strings.TrimSpace(text) == "" {
			o.logger.Error("batch.attempt.empty_response",
				"run_id", o.runID, "filename", t.Name,
				"attempt", attempt, "max_retries", o.maxRetries,
			)
			o.recordAttempt(ctx, t.Name, attempt, AttemptRetry, "empty response text")
			continue
		}

		v, ok := llm.ExtractJSON(text)
		if !ok {
			o.logger.Error("batch.attempt.unparsable",
				"run_id", o.runID, "filename", t.Name,
				"attempt", attempt, "max_retries", o.maxRetries, "text_len", len(text),
			)
			o.recordAttempt(ctx, t.Name, attempt, AttemptRetry, "no JSON found in response")
			continue
		}

		o.recordAttempt(ctx, t.Name, attempt, AttemptOK, "")
		o.review(t.Name, v)
		return NewRecord(t.Name, v), nil
	}

	o.logger.Error("batch.image.exhausted",
		"run_id", o.runID, "filename", t.Name, "max_retries", o.maxRetries,
	)
	return FailureRecord(t.Name), nil
}

// review checks the extracted value against the expected receipt fields and
// logs when a manual look is warranted. Advisory only: the record keeps
// whatever the service returned.
func (o *Orchestrator) review(filename string, v any) {
	if err := llm.ValidateValue(o.schema, v); err != nil {
		o.logger.Warn("record.needs_review", "run_id", o.runID, "filename", filename, "reason", err)
	}
}

func (o *Orchestrator) recordAttempt(ctx context.Context, filename string, attempt int, status, detail string) {
	if o.journal == nil {
		return
	}
	if err := o.journal.RecordAttempt(ctx, o.runID, filename, attempt, status, detail); err != nil {
		o.logger.Warn("batch.journal.error", "run_id", o.runID, "filename", filename, "error", err)
	}
}
