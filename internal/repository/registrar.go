package repository

import (
	"fmt"
	"path/filepath"

	"vrepo/internal/logging"
	"vrepo/internal/state"
)

var (
	registryLogger = logging.GetLogger().WithPrefix("registrar")
)

// registrar flattens a resource and its subtree into index entries.
type registrar struct {
	index *Index
	// real paths of directories already expanded, guards against symlink loops
	seen  map[string]bool
	added int
}

func newRegistrar(index *Index) *registrar {
	return &registrar{index: index, seen: make(map[string]bool)}
}

// register stores res at p, then every descendant of res at p joined with
// the descendant's relative name.
func (rg *registrar) register(p string, res Resource) error {
	entry, err := rg.entryFor(res)
	if err != nil {
		return err
	}
	rg.index.Set(p, entry)
	rg.added++

	if dir, ok := res.(*DirectoryResource); ok {
		real, err := filepath.EvalSymlinks(dir.FilesystemPath())
		if err != nil {
			return err
		}
		if rg.seen[real] {
			registryLogger.Warn("Not descending into %s again (symlink loop)", dir.FilesystemPath())
			return nil
		}
		rg.seen[real] = true
	}

	var children []Resource
	if dir, ok := res.(*DirectoryResource); ok {
		children, err = dir.ReadChildren()
	} else {
		children, err = res.ListChildren()
	}
	if err != nil {
		return fmt.Errorf("listing children of %s: %w", res.Path(), err)
	}
	for _, child := range children {
		if err := rg.register(JoinPath(p, child.Name()), child); err != nil {
			return err
		}
	}
	return nil
}

// ensureParents creates generic entries for missing ancestors of p so that
// p is reachable by listing from the root.
func (rg *registrar) ensureParents(p string) {
	for parent := ParentPath(p); parent != "/"; parent = ParentPath(parent) {
		if _, ok := rg.index.Entry(parent); ok {
			return
		}
		rg.index.Set(parent, state.Entry{})
	}
}

func (rg *registrar) entryFor(res Resource) (state.Entry, error) {
	ref, err := referenceFor(res, rg.index.BaseDir())
	if err != nil {
		return state.Entry{}, err
	}
	if ref == "" {
		return state.Entry{}, nil
	}
	return state.NewEntry(ref), nil
}

// referenceFor returns the string stored in the index for res; "" stands
// for a resource without backing.
func referenceFor(res Resource, baseDir string) (string, error) {
	switch r := res.(type) {
	case FilesystemResource:
		abs, err := filepath.Abs(r.FilesystemPath())
		if err != nil {
			return "", err
		}
		return makeRelative(abs, baseDir), nil
	case *LinkResource:
		target, err := CanonicalPath(r.Target())
		if err != nil {
			return "", fmt.Errorf("link target %q: %w", r.Target(), err)
		}
		return linkPrefix + target, nil
	default:
		return "", nil
	}
}
