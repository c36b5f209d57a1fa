package repository

import (
	"os"
	"path/filepath"
	"testing"

	"vrepo/internal/state"
)

// writeTree creates the given files (slash-separated, relative to root)
// with their content.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		full := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			t.Fatalf("Failed to create directory: %v", err)
		}
		if err := os.WriteFile(full, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
	}
}

func paths(resources []Resource) []string {
	var out []string
	for _, res := range resources {
		out = append(out, res.Path())
	}
	return out
}

// memoryStore keeps the persisted index in memory and counts saves.
type memoryStore struct {
	index state.Index
	saves int
}

func (s *memoryStore) LoadIndex() (state.Index, error) {
	out := state.Index{}
	for k, v := range s.index {
		out[k] = v
	}
	return out, nil
}

func (s *memoryStore) SaveIndex(idx state.Index) error {
	s.index = idx
	s.saves++
	return nil
}
