package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/hmogawa/receipt-ocr-batch/internal/batch"
	"github.com/hmogawa/receipt-ocr-batch/internal/common"
	"github.com/hmogawa/receipt-ocr-batch/internal/journal"
	"github.com/hmogawa/receipt-ocr-batch/internal/llm/gemini"
	"github.com/hmogawa/receipt-ocr-batch/internal/ratelimit"
)

func main() {
	var (
		in          = flag.String("in", "", "input directory of receipt images (default: INPUT_DIR)")
		out         = flag.String("out", "", "output directory for the run's JSON artifact (default: OUTPUT_DIR)")
		journalPath = flag.String("journal", "", "optional SQLite run journal path (default: JOURNAL_PATH)")
		model       = flag.String("model", "", "Gemini model override (default: GEMINI_MODEL)")
	)
	flag.Parse()

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	cfg := common.LoadConfig()
	if *in != "" {
		cfg.Batch.InputDir = *in
	}
	if *out != "" {
		cfg.Batch.OutputDir = *out
	}
	if *journalPath != "" {
		cfg.Batch.JournalPath = *journalPath
	}
	if *model != "" {
		cfg.Inference.Model = *model
	}
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	tasks, err := batch.ListImages(cfg.Batch.InputDir)
	if err != nil {
		logger.Error("failed to list input images", "dir", cfg.Batch.InputDir, "error", err)
		os.Exit(1)
	}
	if len(tasks) == 0 {
		logger.Info("no images to process", "dir", cfg.Batch.InputDir)
		return
	}
	logger.Info("starting batch run", "dir", cfg.Batch.InputDir, "images", len(tasks), "model", cfg.Inference.Model)

	client := gemini.NewClient(gemini.Config{
		APIKey:  cfg.Inference.APIKey,
		BaseURL: cfg.Inference.BaseURL,
		Model:   cfg.Inference.Model,
		Timeout: cfg.Inference.Timeout,
	}, logger)
	window := ratelimit.New(cfg.Batch.MaxRPM, cfg.Batch.Window, logger)
	store := batch.NewStore(cfg.Batch.OutputDir, logger)

	ctx := context.Background()
	runID := uuid.New().String()

	var (
		j           *journal.Journal
		orchJournal batch.Journal
	)
	if cfg.Batch.JournalPath != "" {
		j, err = journal.Open(cfg.Batch.JournalPath, logger)
		if err != nil {
			logger.Error("failed to open run journal", "path", cfg.Batch.JournalPath, "error", err)
			os.Exit(1)
		}
		defer func() {
			if cerr := j.Close(); cerr != nil {
				logger.Warn("journal close error", "error", cerr)
			}
		}()
		if err := j.StartRun(ctx, runID, cfg.Batch.InputDir); err != nil {
			logger.Warn("journal start failed", "run_id", runID, "error", err)
		}
		orchJournal = j
	}

	orch := batch.NewOrchestrator(logger, window, client, store, batch.Options{
		RunID:      runID,
		Prompt:     cfg.Inference.Prompt,
		MaxRetries: cfg.Batch.MaxRetries,
		Journal:    orchJournal,
	})

	records, runErr := orch.Run(ctx, tasks)

	if j != nil {
		status := journal.StatusDone
		if runErr != nil {
			status = journal.StatusAborted
		}
		if err := j.FinishRun(ctx, runID, status, len(records)); err != nil {
			logger.Warn("journal finish failed", "run_id", runID, "error", err)
		}
	}

	if runErr != nil {
		logger.Error("run aborted",
			"run_id", runID,
			"records", len(records),
			"images_total", len(tasks),
			"error", runErr,
		)
		os.Exit(1)
	}

	logger.Info("run complete",
		"run_id", runID,
		"records", len(records),
		"failed", batch.CountFailures(records),
		"images_total", len(tasks),
	)
}
