package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/iancoleman/orderedmap"
	"github.com/xuri/excelize/v2"
)

// utf8BOM makes the CSV open cleanly in Excel with Japanese field names.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Service flattens a run's JSON array into a table: the header is the union
// of record keys in first-appearance order, so the filename column always
// comes first.
type Service struct {
	logger *slog.Logger
}

func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// LoadRecords reads a run output file: a JSON array of objects whose key
// order is preserved.
func LoadRecords(path string) ([]*orderedmap.OrderedMap, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}
	var recs []*orderedmap.OrderedMap
	if err := json.Unmarshal(b, &recs); err != nil {
		return nil, fmt.Errorf("parse records: %w", err)
	}
	return recs, nil
}

// Headers returns the union of all record keys in first-appearance order.
func Headers(recs []*orderedmap.OrderedMap) []string {
	var headers []string
	seen := map[string]struct{}{}
	for _, r := range recs {
		for _, k := range r.Keys() {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			headers = append(headers, k)
		}
	}
	return headers
}

// NormalizeValue converts a JSON value into a cell string: null becomes "",
// nested structures become compact JSON, and control characters other than
// tab and newline are stripped.
func NormalizeValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return stripControl(t)
	case map[string]any, []any, *orderedmap.OrderedMap, orderedmap.OrderedMap:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 32 || r == '\t' || r == '\n' {
			return r
		}
		return -1
	}, s)
}

// WriteCSV writes the flattened table to path as BOM-prefixed UTF-8 CSV.
func (s *Service) WriteCSV(recs []*orderedmap.OrderedMap, path string) error {
	start := time.Now()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			s.logger.Warn("export.csv.close_error", "path", path, "error", cerr)
		}
	}()

	if _, err := f.Write(utf8BOM); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}

	headers := Headers(recs)
	w := csv.NewWriter(f)
	if err := w.Write(headers); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range recs {
		row := make([]string, len(headers))
		for i, h := range headers {
			if v, ok := r.Get(h); ok {
				row[i] = NormalizeValue(v)
			}
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}

	s.logger.Info("export.csv.ok",
		"path", path,
		"rows", len(recs),
		"columns", len(headers),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// WriteXLSX returns the flattened table as an XLSX workbook.
func (s *Service) WriteXLSX(recs []*orderedmap.OrderedMap) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	const sheet = "Records"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := Headers(recs)
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for rowIdx, r := range recs {
		for colIdx, h := range headers {
			v, ok := r.Get(h)
			if !ok {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			_ = f.SetCellValue(sheet, cell, NormalizeValue(v))
		}
	}

	// Filename column is usually the widest.
	_ = f.SetColWidth(sheet, "A", "A", 32)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(recs),
		"columns", len(headers),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}
