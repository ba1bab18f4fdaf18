package journal

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
)

func openTestJournal(t *testing.T, path string) *Journal {
	t.Helper()
	j, err := Open(path, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestRunLifecycle(t *testing.T) {
	j := openTestJournal(t, ":memory:")
	ctx := context.Background()

	if err := j.StartRun(ctx, "run-1", "/input/jpg"); err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if err := j.RecordAttempt(ctx, "run-1", "a.jpg", 1, "RETRY", "garbage text"); err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}
	if err := j.RecordAttempt(ctx, "run-1", "a.jpg", 2, "OK", ""); err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}
	if err := j.FinishRun(ctx, "run-1", StatusDone, 1); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	status, recordCount, attempts, err := j.RunSummary(ctx, "run-1")
	if err != nil {
		t.Fatalf("RunSummary: %v", err)
	}
	if status != StatusDone {
		t.Errorf("status = %q", status)
	}
	if recordCount != 1 {
		t.Errorf("record count = %d", recordCount)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d", attempts)
	}
}

func TestAbortedRunKeepsHistory(t *testing.T) {
	j := openTestJournal(t, ":memory:")
	ctx := context.Background()

	if err := j.StartRun(ctx, "run-2", "/input/jpg"); err != nil {
		t.Fatal(err)
	}
	if err := j.RecordAttempt(ctx, "run-2", "c.jpg", 1, "FATAL", "quota exceeded"); err != nil {
		t.Fatal(err)
	}
	if err := j.FinishRun(ctx, "run-2", StatusAborted, 2); err != nil {
		t.Fatal(err)
	}

	status, recordCount, attempts, err := j.RunSummary(ctx, "run-2")
	if err != nil {
		t.Fatal(err)
	}
	if status != StatusAborted || recordCount != 2 || attempts != 1 {
		t.Errorf("summary = %s/%d/%d", status, recordCount, attempts)
	}
}

func TestOpenCreatesFileJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	j := openTestJournal(t, path)

	if err := j.StartRun(context.Background(), "run-3", "/input"); err != nil {
		t.Fatalf("StartRun on file-backed journal: %v", err)
	}
}

func TestRunSummaryUnknownRun(t *testing.T) {
	j := openTestJournal(t, ":memory:")
	if _, _, _, err := j.RunSummary(context.Background(), "missing"); err == nil {
		t.Error("expected an error for an unknown run")
	}
}
