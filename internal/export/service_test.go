package export

import (
	"bytes"
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/iancoleman/orderedmap"
	"github.com/xuri/excelize/v2"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleRecords() []*orderedmap.OrderedMap {
	r1 := orderedmap.New()
	r1.Set("filename", "r1.jpg")
	r1.Set("日付", "2024-01-01")
	r1.Set("店名", "テスト")

	r2 := orderedmap.New()
	r2.Set("filename", "r2.jpg")
	r2.Set("error", "Invalid or no JSON")

	return []*orderedmap.OrderedMap{r1, r2}
}

func TestHeadersUnionInFirstAppearanceOrder(t *testing.T) {
	got := Headers(sampleRecords())
	want := []string{"filename", "日付", "店名", "error"}
	if len(got) != len(want) {
		t.Fatalf("headers = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("header %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNormalizeValue(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", "テスト", "テスト"},
		{"string with control chars", "a\x00b\tc\nd", "ab\tc\nd"},
		{"number", float64(1000), "1000"},
		{"bool", true, "true"},
		{"list", []any{"a", "b"}, `["a","b"]`},
		{"map", map[string]any{"k": "v"}, `{"k":"v"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeValue(tt.in); got != tt.want {
				t.Errorf("NormalizeValue(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestWriteCSV(t *testing.T) {
	svc := NewService(testLogger())
	path := filepath.Join(t.TempDir(), "out.csv")

	if err := svc.WriteCSV(sampleRecords(), path); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(b, []byte{0xEF, 0xBB, 0xBF}) {
		t.Error("CSV should start with a UTF-8 BOM")
	}

	rows, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(b, []byte{0xEF, 0xBB, 0xBF}))).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
	if rows[0][0] != "filename" || rows[0][1] != "日付" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][0] != "r1.jpg" || rows[1][2] != "テスト" {
		t.Errorf("row 1 = %v", rows[1])
	}
	// r2 has no 日付/店名 columns; they must be empty, error filled.
	if rows[2][1] != "" || rows[2][3] != "Invalid or no JSON" {
		t.Errorf("row 2 = %v", rows[2])
	}
}

func TestWriteXLSX(t *testing.T) {
	svc := NewService(testLogger())

	b, err := svc.WriteXLSX(sampleRecords())
	if err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer func() { _ = f.Close() }()

	a1, err := f.GetCellValue("Records", "A1")
	if err != nil {
		t.Fatal(err)
	}
	if a1 != "filename" {
		t.Errorf("A1 = %q", a1)
	}
	b2, _ := f.GetCellValue("Records", "B2")
	if b2 != "2024-01-01" {
		t.Errorf("B2 = %q", b2)
	}
}

func TestLoadRecordsPreservesKeyOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.json")
	content := `[{"filename":"r1.jpg","日付":"2024-01-01","店名":"テスト","合計金額":"1000","登録番号":"不明"}]`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	recs, err := LoadRecords(path)
	if err != nil {
		t.Fatalf("LoadRecords: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("records = %d", len(recs))
	}
	keys := recs[0].Keys()
	want := []string{"filename", "日付", "店名", "合計金額", "登録番号"}
	if len(keys) != len(want) {
		t.Fatalf("keys = %v", keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("key %d = %q, want %q", i, keys[i], want[i])
		}
	}
}

func TestLoadRecordsBadFile(t *testing.T) {
	if _, err := LoadRecords(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected an error for a missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadRecords(path); err == nil {
		t.Error("expected an error for malformed JSON")
	}
}
