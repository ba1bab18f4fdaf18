package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/hmogawa/receipt-ocr-batch/internal/export"
)

// flatten turns one or more batch-run JSON artifacts into tables: CSV by
// default (BOM-prefixed UTF-8, Excel-friendly), XLSX with -xlsx.
func main() {
	var (
		in     = flag.String("in", "", "run output JSON file, or a directory of them (required)")
		outdir = flag.String("outdir", "", "output directory (defaults to the input's directory)")
		xlsx   = flag.Bool("xlsx", false, "write XLSX instead of CSV")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if *in == "" {
		logger.Error("missing required flag", "flag", "-in")
		os.Exit(1)
	}

	inputs, err := collectInputs(*in)
	if err != nil {
		logger.Error("failed to collect inputs", "in", *in, "error", err)
		os.Exit(1)
	}
	if len(inputs) == 0 {
		logger.Info("no JSON files to flatten", "in", *in)
		return
	}

	svc := export.NewService(logger)
	failures := 0
	for _, src := range inputs {
		if err := flattenOne(svc, src, *outdir, *xlsx); err != nil {
			logger.Error("flatten failed", "file", src, "error", err)
			failures++
		}
	}

	logger.Info("flatten complete", "files", len(inputs), "failures", failures)
	if failures > 0 {
		os.Exit(1)
	}
}

func collectInputs(in string) ([]string, error) {
	st, err := os.Stat(in)
	if err != nil {
		return nil, err
	}
	if !st.IsDir() {
		return []string{in}, nil
	}
	entries, err := os.ReadDir(in)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			continue
		}
		files = append(files, filepath.Join(in, e.Name()))
	}
	return files, nil
}

func flattenOne(svc *export.Service, src, outdir string, xlsx bool) error {
	recs, err := export.LoadRecords(src)
	if err != nil {
		return err
	}

	if outdir == "" {
		outdir = filepath.Dir(src)
	}
	if err := os.MkdirAll(outdir, 0o755); err != nil {
		return err
	}
	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))

	if xlsx {
		b, err := svc.WriteXLSX(recs)
		if err != nil {
			return err
		}
		return os.WriteFile(filepath.Join(outdir, base+".xlsx"), b, 0o644)
	}
	return svc.WriteCSV(recs, filepath.Join(outdir, base+".csv"))
}
