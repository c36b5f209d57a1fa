package repository

import (
	"path/filepath"
	"sort"
	"testing"

	"vrepo/internal/state"

	"github.com/google/go-cmp/cmp"
)

// newGenericIndex builds an index whose entries have no backing, so no
// files are needed on disk.
func newGenericIndex(keys ...string) *Index {
	idx := NewIndex("/nonexistent")
	for _, k := range keys {
		idx.Set(k, state.Entry{})
	}
	return idx
}

func hitPaths(hits []Hit) []string {
	var out []string
	for _, h := range hits {
		out = append(out, h.Path)
	}
	return out
}

func TestIndexKeepsKeysSorted(t *testing.T) {
	idx := newGenericIndex("/js/app.js", "/css/b.css", "/css", "/css-x", "/css/a.css", "/js")

	keys := idx.Keys()
	if !sort.StringsAreSorted(keys) {
		t.Fatalf("Keys not sorted: %v", keys)
	}
	expected := []string{"/", "/css", "/css-x", "/css/a.css", "/css/b.css", "/js", "/js/app.js"}
	if diff := cmp.Diff(expected, keys); diff != "" {
		t.Errorf("Keys mismatch (-want +got):\n%s", diff)
	}

	// replacing an entry must not duplicate its key
	idx.Set("/css", state.NewEntry("@/js"))
	if idx.Len() != len(expected) {
		t.Errorf("Expected %d keys after replace, got %d", len(expected), idx.Len())
	}
}

func TestIndexLookup(t *testing.T) {
	base := t.TempDir()
	writeTree(t, base, map[string]string{
		"a.txt": "a",
		"b.txt": "b",
	})
	idx := NewIndex(base)
	idx.Set("/stack", state.NewEntry("a.txt", "b.txt"))
	idx.Set("/gone", state.NewEntry("missing.txt", "a.txt"))
	idx.Set("/link", state.NewEntry("@/stack"))
	idx.Set("/dir", state.Entry{})
	idx.Set("/abs", state.NewEntry(filepath.Join(base, "b.txt")))

	t.Run("first reference wins", func(t *testing.T) {
		ref, ok := idx.Lookup("/stack")
		if !ok {
			t.Fatal("Expected /stack to resolve")
		}
		if ref.Kind != ReferenceFilesystem || ref.Value != filepath.Join(base, "a.txt") {
			t.Errorf("Unexpected reference %+v", ref)
		}
	})

	t.Run("missing target is a miss", func(t *testing.T) {
		if _, ok := idx.Lookup("/gone"); ok {
			t.Error("Expected /gone to be a miss even though a later layer exists")
		}
	})

	t.Run("link passes through", func(t *testing.T) {
		ref, ok := idx.Lookup("/link")
		if !ok || ref.Kind != ReferenceLink || ref.Value != "/stack" {
			t.Errorf("Unexpected link reference %+v (ok=%v)", ref, ok)
		}
	})

	t.Run("entry without reference", func(t *testing.T) {
		ref, ok := idx.Lookup("/dir")
		if !ok || ref.Kind != ReferenceNone {
			t.Errorf("Unexpected reference %+v (ok=%v)", ref, ok)
		}
	})

	t.Run("absolute reference", func(t *testing.T) {
		ref, ok := idx.Lookup("/abs")
		if !ok || ref.Value != filepath.Join(base, "b.txt") {
			t.Errorf("Unexpected reference %+v (ok=%v)", ref, ok)
		}
	})

	t.Run("unknown path", func(t *testing.T) {
		if _, ok := idx.Lookup("/nope"); ok {
			t.Error("Expected miss for unknown path")
		}
	})
}

func TestIndexGlob(t *testing.T) {
	idx := newGenericIndex(
		"/css", "/css-x", "/css/a.css", "/css/b.css", "/css/sub", "/css/sub/c.css",
		"/js", "/js/app.js",
	)

	tests := []struct {
		name     string
		pattern  string
		flags    ScanFlag
		expected []string
	}{
		{name: "direct matches", pattern: "/css/*.css", expected: []string{"/css/a.css", "/css/b.css"}},
		{name: "deep matches", pattern: "/css/**", expected: []string{"/css/a.css", "/css/b.css", "/css/sub", "/css/sub/c.css"}},
		{name: "across prefix", pattern: "/**/*.css", expected: []string{"/css/a.css", "/css/b.css", "/css/sub/c.css"}},
		{name: "stop on first", pattern: "/css/*.css", flags: StopOnFirst, expected: []string{"/css/a.css"}},
		{name: "literal", pattern: "/js/app.js", expected: []string{"/js/app.js"}},
		{name: "literal miss", pattern: "/js/lib.js", expected: nil},
		{name: "sibling with shared prefix", pattern: "/css-*", expected: []string{"/css-x"}},
		{name: "no prefix run", pattern: "/img/*", expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits, err := idx.Glob(tt.pattern, tt.flags)
			if err != nil {
				t.Fatalf("Glob failed: %v", err)
			}
			if diff := cmp.Diff(tt.expected, hitPaths(hits)); diff != "" {
				t.Errorf("Glob(%q) mismatch (-want +got):\n%s", tt.pattern, diff)
			}
		})
	}
}

func TestIndexChildren(t *testing.T) {
	idx := newGenericIndex("/css", "/css-x", "/css/a.css", "/css/sub", "/css/sub/c.css", "/js")

	if diff := cmp.Diff([]string{"/css", "/css-x", "/js"}, hitPaths(idx.Children("/", 0))); diff != "" {
		t.Errorf("Root children mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"/css/a.css", "/css/sub"}, hitPaths(idx.Children("/css", 0))); diff != "" {
		t.Errorf("/css children mismatch (-want +got):\n%s", diff)
	}
	if hits := idx.Children("/js", StopOnFirst); len(hits) != 0 {
		t.Errorf("Expected no children for /js, got %v", hitPaths(hits))
	}
}

func TestIndexRemove(t *testing.T) {
	idx := newGenericIndex("/css", "/css-x", "/css/a.css", "/css/sub", "/css/sub/c.css", "/js")

	removed, err := idx.Remove("/css")
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if removed != 4 {
		t.Errorf("Expected 4 removed entries, got %d", removed)
	}
	if diff := cmp.Diff([]string{"/", "/css-x", "/js"}, idx.Keys()); diff != "" {
		t.Errorf("Keys after remove mismatch (-want +got):\n%s", diff)
	}

	removed, err = idx.Remove("/*")
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("Expected 2 removed entries, got %d", removed)
	}

	removed, err = idx.Remove("/")
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if removed != 0 || idx.Len() != 1 {
		t.Errorf("Root must survive: removed=%d len=%d", removed, idx.Len())
	}
}

func TestIndexLoadAndSnapshot(t *testing.T) {
	idx := NewIndex("/nonexistent")
	idx.Load(state.Index{
		"/b":       state.NewEntry("b.txt"),
		"/a/":      state.NewEntry("bad"),
		"relative": state.NewEntry("bad"),
		"/a":       state.NewEntry("x", "y"),
	})

	if diff := cmp.Diff([]string{"/", "/a", "/b"}, idx.Keys()); diff != "" {
		t.Errorf("Loaded keys mismatch (-want +got):\n%s", diff)
	}

	expected := state.Index{
		"/":  state.Entry{},
		"/a": state.NewEntry("x", "y"),
		"/b": state.NewEntry("b.txt"),
	}
	if diff := cmp.Diff(expected, idx.Snapshot()); diff != "" {
		t.Errorf("Snapshot mismatch (-want +got):\n%s", diff)
	}

	if cleared := idx.Clear(); cleared != 2 {
		t.Errorf("Expected 2 cleared entries, got %d", cleared)
	}
}
