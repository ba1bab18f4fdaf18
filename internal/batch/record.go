package batch

import "github.com/iancoleman/orderedmap"

const (
	// FilenameKey is always the first key of a record.
	FilenameKey = "filename"
	// ErrorKey marks a record whose image exhausted every attempt.
	ErrorKey = "error"
	// DataKey holds extracted values that were not JSON objects.
	DataKey = "data"

	// FailureReason is the synthetic value stored under ErrorKey.
	FailureReason = "Invalid or no JSON"
)

// Record is the structured result for one image. Key order is preserved
// through serialization and the filename is always the first key.
type Record = *orderedmap.OrderedMap

// NewRecord builds a record from an extracted value: object fields are merged
// in after the filename, anything else lands under "data".
func NewRecord(filename string, v any) Record {
	rec := orderedmap.New()
	rec.Set(FilenameKey, filename)
	switch m := v.(type) {
	case *orderedmap.OrderedMap:
		mergeOrdered(rec, m)
	case orderedmap.OrderedMap:
		mergeOrdered(rec, &m)
	default:
		rec.Set(DataKey, v)
	}
	return rec
}

// FailureRecord marks an image whose every attempt failed: filename plus the
// synthetic error field, nothing else.
func FailureRecord(filename string) Record {
	rec := orderedmap.New()
	rec.Set(FilenameKey, filename)
	rec.Set(ErrorKey, FailureReason)
	return rec
}

// CountFailures returns how many records are failure records.
func CountFailures(records []Record) int {
	n := 0
	for _, r := range records {
		if _, ok := r.Get(ErrorKey); ok {
			n++
		}
	}
	return n
}

func mergeOrdered(dst, src *orderedmap.OrderedMap) {
	for _, k := range src.Keys() {
		v, _ := src.Get(k)
		dst.Set(k, v)
	}
}
