package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEntryEncoding(t *testing.T) {
	tests := []struct {
		name  string
		json  string
		entry Entry
	}{
		{name: "null", json: `null`, entry: Entry{}},
		{name: "single reference", json: `"css/a.css"`, entry: NewEntry("css/a.css")},
		{name: "override stack", json: `["over/a.css","css/a.css"]`, entry: NewEntry("over/a.css", "css/a.css")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx, err := Decode([]byte(`{"/a":`+tt.json+`}`), FormatJSON)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if diff := cmp.Diff(tt.entry, idx["/a"]); diff != "" {
				t.Errorf("Decoded entry mismatch (-want +got):\n%s", diff)
			}

			data, err := tt.entry.MarshalJSON()
			if err != nil {
				t.Fatalf("MarshalJSON failed: %v", err)
			}
			if string(data) != tt.json {
				t.Errorf("Expected %s, got %s", tt.json, data)
			}
		})
	}
}

func TestDecodeRejectsNonStringReferences(t *testing.T) {
	if _, err := Decode([]byte(`{"/a": [1, 2]}`), FormatJSON); err == nil {
		t.Error("Expected error for numeric references")
	}
	if _, err := Decode([]byte(`{"/a": {"x": "y"}}`), FormatJSON); err == nil {
		t.Error("Expected error for object reference")
	}
}

func TestManagerRoundTrip(t *testing.T) {
	idx := Index{
		"/":          Entry{},
		"/css":       NewEntry("res/css"),
		"/css/a.css": NewEntry("res/css/a.css"),
		"/css/b.css": NewEntry("over/b.css", "res/css/b.css"),
		"/link":      NewEntry("@/css"),
	}

	for _, name := range []string{"index.json", "index.yaml"} {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			manager, err := NewManager(filepath.Join(dir, name))
			if err != nil {
				t.Fatalf("NewManager failed: %v", err)
			}

			empty, err := manager.LoadIndex()
			if err != nil {
				t.Fatalf("LoadIndex on fresh file failed: %v", err)
			}
			if len(empty) != 0 {
				t.Errorf("Expected empty index, got %v", empty)
			}

			if err := manager.SaveIndex(idx); err != nil {
				t.Fatalf("SaveIndex failed: %v", err)
			}

			loaded, err := manager.LoadIndex()
			if err != nil {
				t.Fatalf("LoadIndex failed: %v", err)
			}
			if diff := cmp.Diff(idx, loaded); diff != "" {
				t.Errorf("Round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestManagerBackupRotation(t *testing.T) {
	dir := t.TempDir()
	manager, err := NewManager(filepath.Join(dir, "index.json"))
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	manager.SetBackupCount(1)

	for i := 0; i < 3; i++ {
		if err := manager.SaveIndex(Index{"/": Entry{}}); err != nil {
			t.Fatalf("SaveIndex %d failed: %v", i, err)
		}
	}

	entries, err := os.ReadDir(filepath.Join(dir, ".vrepo-backups"))
	if err != nil {
		t.Fatalf("Failed to read backup dir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected 1 backup, got %d", len(entries))
	}
}
