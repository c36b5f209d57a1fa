package repository

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"vrepo/internal/logging"
	"vrepo/internal/state"
)

var (
	indexLogger = logging.GetLogger().WithPrefix("index")
)

// linkPrefix marks a reference to another repository path instead of a
// filesystem path.
const linkPrefix = "@"

// ScanFlag modifies index scans.
type ScanFlag uint8

const (
	// StopOnFirst ends a scan after the first hit
	StopOnFirst ScanFlag = 1 << iota
)

// ReferenceKind tells how a resolved reference is backed.
type ReferenceKind int

const (
	// ReferenceNone has no backing content
	ReferenceNone ReferenceKind = iota
	// ReferenceFilesystem is an absolute path to an existing file or directory
	ReferenceFilesystem
	// ReferenceLink is a repository path, passed through unresolved
	ReferenceLink
)

// Reference is the resolved, authoritative reference of an index entry.
type Reference struct {
	Kind  ReferenceKind
	Value string
}

// Hit is an index path together with its resolved reference.
type Hit struct {
	Path      string
	Reference Reference
}

// Index is a flattened mapping from repository paths to references.
//
// Keys are kept in ascending byte order at all times. Scans rely on this:
// all keys sharing a prefix form one contiguous run, so a scan can stop as
// soon as that run ends.
type Index struct {
	keys    []string
	entries map[string]state.Entry
	baseDir string
}

// NewIndex creates an index that resolves relative filesystem references
// against baseDir. The root path is always present.
func NewIndex(baseDir string) *Index {
	idx := &Index{
		entries: make(map[string]state.Entry),
		baseDir: baseDir,
	}
	idx.Set("/", state.Entry{})
	return idx
}

// BaseDir returns the directory relative references are resolved against.
func (idx *Index) BaseDir() string {
	return idx.baseDir
}

// Len returns the number of entries, the root included.
func (idx *Index) Len() int {
	return len(idx.keys)
}

// Keys returns the indexed paths in ascending order.
func (idx *Index) Keys() []string {
	return append([]string(nil), idx.keys...)
}

// Load replaces the content of the index with a persisted mapping.
// Keys that are not canonical paths are skipped.
func (idx *Index) Load(persisted state.Index) {
	idx.entries = make(map[string]state.Entry, len(persisted)+1)
	idx.keys = make([]string, 0, len(persisted)+1)
	for p, entry := range persisted {
		canonical, err := CanonicalPath(p)
		if err != nil || canonical != p {
			indexLogger.Warn("Skipping malformed index key %q", p)
			continue
		}
		idx.entries[p] = entry
		idx.keys = append(idx.keys, p)
	}
	if _, ok := idx.entries["/"]; !ok {
		idx.entries["/"] = state.Entry{}
		idx.keys = append(idx.keys, "/")
	}
	sort.Strings(idx.keys)
	indexLogger.Debug("Loaded %d index entries", len(idx.keys))
}

// Snapshot returns the persistable form of the index.
func (idx *Index) Snapshot() state.Index {
	out := make(state.Index, len(idx.entries))
	for p, entry := range idx.entries {
		out[p] = state.NewEntry(entry.References...)
	}
	return out
}

// Entry returns the raw, unresolved entry stored for p.
func (idx *Index) Entry(p string) (state.Entry, bool) {
	entry, ok := idx.entries[p]
	return entry, ok
}

// Set inserts or replaces the entry for the canonical path p.
func (idx *Index) Set(p string, entry state.Entry) {
	if _, exists := idx.entries[p]; !exists {
		i := sort.SearchStrings(idx.keys, p)
		idx.keys = append(idx.keys, "")
		copy(idx.keys[i+1:], idx.keys[i:])
		idx.keys[i] = p
	}
	idx.entries[p] = entry
	indexLogger.Trace("Set %q -> %v", p, entry.References)
}

// Remove deletes every entry matched by pattern and every entry below such
// a match. The root entry is never removed. It returns the number of
// deleted entries.
func (idx *Index) Remove(pattern string) (int, error) {
	matcher, err := selfOrDescendants(pattern)
	if err != nil {
		return 0, err
	}
	prefix := GlobStaticPrefix(pattern)

	kept := idx.keys[:0:0]
	removed := 0
	for _, key := range idx.keys {
		if key != "/" && strings.HasPrefix(key, prefix) && matcher.Match(key) {
			delete(idx.entries, key)
			removed++
			continue
		}
		kept = append(kept, key)
	}
	idx.keys = kept
	indexLogger.Debug("Removed %d entries matching %q", removed, pattern)
	return removed, nil
}

// Clear removes every entry except the root and returns how many were removed.
func (idx *Index) Clear() int {
	removed := len(idx.keys) - 1
	idx.keys = []string{"/"}
	idx.entries = map[string]state.Entry{"/": {}}
	return removed
}

// Lookup resolves the entry stored at p.
func (idx *Index) Lookup(p string) (Reference, bool) {
	entry, ok := idx.entries[p]
	if !ok {
		return Reference{}, false
	}
	return idx.resolve(entry)
}

// Glob resolves every entry matching pattern. Literal patterns are plain
// lookups.
func (idx *Index) Glob(pattern string, flags ScanFlag) ([]Hit, error) {
	if !IsDynamicGlob(pattern) {
		p := GlobStaticPrefix(pattern)
		ref, ok := idx.Lookup(p)
		if !ok {
			return nil, nil
		}
		return []Hit{{Path: p, Reference: ref}}, nil
	}

	matcher, err := CompileGlob(pattern)
	if err != nil {
		return nil, err
	}
	return idx.scan(GlobStaticPrefix(pattern), matcher, flags), nil
}

// Children resolves the direct children of dir.
func (idx *Index) Children(dir string, flags ScanFlag) []Hit {
	return idx.scan(childPrefix(dir), childMatcher(dir), flags)
}

// scan walks the run of keys starting with prefix and collects the ones
// accepted by matcher. The root is only reachable by its literal path.
func (idx *Index) scan(prefix string, matcher Matcher, flags ScanFlag) []Hit {
	var hits []Hit
	start := sort.SearchStrings(idx.keys, prefix)
	visited := 0
	for _, key := range idx.keys[start:] {
		if !strings.HasPrefix(key, prefix) {
			// the prefix run is over, nothing after this can match
			break
		}
		visited++
		if key == "/" || !matcher.Match(key) {
			continue
		}
		ref, ok := idx.resolve(idx.entries[key])
		if !ok {
			continue
		}
		hits = append(hits, Hit{Path: key, Reference: ref})
		if flags&StopOnFirst != 0 {
			break
		}
	}
	indexLogger.Trace("Scanned %d of %d keys for prefix %q, %d hits", visited, len(idx.keys), prefix, len(hits))
	return hits
}

// resolve picks the authoritative reference of an entry. Filesystem
// references are made absolute and must still exist; a missing target is
// treated as a miss rather than an I/O error.
func (idx *Index) resolve(entry state.Entry) (Reference, bool) {
	ref, ok := entry.First()
	if !ok {
		return Reference{Kind: ReferenceNone}, true
	}
	if strings.HasPrefix(ref, linkPrefix) {
		return Reference{Kind: ReferenceLink, Value: strings.TrimPrefix(ref, linkPrefix)}, true
	}

	abs := MakeAbsolute(filepath.FromSlash(ref), idx.baseDir)
	if _, err := os.Stat(abs); err != nil {
		indexLogger.Debug("Reference target %q is gone: %v", abs, err)
		return Reference{}, false
	}
	return Reference{Kind: ReferenceFilesystem, Value: abs}, true
}
