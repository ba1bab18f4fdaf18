package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/hmogawa/receipt-ocr-batch/constants"
)

// Task is one input image: its path plus its 1-based position in the sorted
// input set.
type Task struct {
	Path     string
	Name     string
	Position int
}

// ListImages enumerates dir (non-recursive), keeps files with an allowed
// image extension, and returns tasks sorted lexicographically by filename.
func ListImages(dir string) ([]Task, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := constants.NormalizeExt(filepath.Ext(e.Name()))
		if _, ok := constants.AllowedExtensions[ext]; !ok {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	tasks := make([]Task, 0, len(names))
	for i, name := range names {
		tasks = append(tasks, Task{
			Path:     filepath.Join(dir, name),
			Name:     name,
			Position: i + 1,
		})
	}
	return tasks, nil
}
