package repository

import (
	"fmt"
	"path/filepath"

	"vrepo/internal/logging"
	"vrepo/internal/state"
)

var (
	jsonLogger = logging.GetLogger().WithPrefix("jsonrepo")
)

// Store persists an index. *state.Manager implements it.
type Store interface {
	LoadIndex() (state.Index, error)
	SaveIndex(state.Index) error
}

// JSONRepository is an editable repository backed by an Index and
// persisted as one path-to-reference mapping after every change.
type JSONRepository struct {
	index *Index
	store Store
}

var _ EditableRepository = (*JSONRepository)(nil)

// NewJSONRepository loads the index held by store. Relative filesystem
// references resolve against baseDir. A nil store keeps the index in memory.
func NewJSONRepository(store Store, baseDir string) (*JSONRepository, error) {
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base directory %s: %w", baseDir, err)
	}

	repo := &JSONRepository{
		index: NewIndex(absBase),
		store: store,
	}
	if store != nil {
		persisted, err := store.LoadIndex()
		if err != nil {
			return nil, err
		}
		repo.index.Load(persisted)
	}
	jsonLogger.Debug("Opened repository with %d entries (base %s)", repo.index.Len(), absBase)
	return repo, nil
}

// OpenJSONRepository opens the index file at indexPath, creating it when
// missing. An empty baseDir means the directory of the index file.
func OpenJSONRepository(indexPath, baseDir string) (*JSONRepository, error) {
	manager, err := state.NewManager(indexPath)
	if err != nil {
		return nil, err
	}
	if baseDir == "" {
		baseDir = filepath.Dir(manager.Path())
	}
	return NewJSONRepository(manager, baseDir)
}

// Index exposes the underlying reference index.
func (r *JSONRepository) Index() *Index {
	return r.index
}

// Get implements Repository
func (r *JSONRepository) Get(p string) (Resource, error) {
	canonical, err := CanonicalPath(p)
	if err != nil {
		return nil, newError(OpGet, p, err)
	}
	ref, ok := r.index.Lookup(canonical)
	if !ok {
		return nil, newError(OpGet, canonical, ErrResourceNotFound)
	}
	res, ok := r.createResource(Hit{Path: canonical, Reference: ref})
	if !ok {
		return nil, newError(OpGet, canonical, ErrResourceNotFound)
	}
	return res, nil
}

// Find implements Repository
func (r *JSONRepository) Find(query, language string) ([]Resource, error) {
	hits, err := r.glob(OpFind, query, language, 0)
	if err != nil {
		return nil, err
	}
	return r.createResources(hits), nil
}

// Contains implements Repository
func (r *JSONRepository) Contains(query, language string) (bool, error) {
	hits, err := r.glob(OpContains, query, language, StopOnFirst)
	if err != nil {
		return false, err
	}
	return len(hits) > 0, nil
}

// HasChildren implements Repository
func (r *JSONRepository) HasChildren(p string) (bool, error) {
	canonical, err := r.existing(OpHasChildren, p)
	if err != nil {
		return false, err
	}
	return len(r.index.Children(canonical, StopOnFirst)) > 0, nil
}

// ListChildren implements Repository
func (r *JSONRepository) ListChildren(p string) ([]Resource, error) {
	canonical, err := r.existing(OpListChildren, p)
	if err != nil {
		return nil, err
	}
	return r.createResources(r.index.Children(canonical, 0)), nil
}

// Add implements EditableRepository. A directory is indexed together with
// its whole subtree at the time of the call.
func (r *JSONRepository) Add(p string, res Resource) error {
	canonical, err := CanonicalPath(p)
	if err != nil {
		return newError(OpAdd, p, err)
	}
	if res == nil {
		return newError(OpAdd, canonical, fmt.Errorf("nil resource"))
	}

	rg := newRegistrar(r.index)
	rg.ensureParents(canonical)
	if err := rg.register(canonical, res); err != nil {
		return newError(OpAdd, canonical, err)
	}
	jsonLogger.Info("Added %d entries at %s", rg.added, canonical)
	return r.flush(OpAdd, canonical)
}

// Remove implements EditableRepository
func (r *JSONRepository) Remove(query, language string) (int, error) {
	if err := checkLanguage(OpRemove, query, language); err != nil {
		return 0, err
	}
	selector, err := canonicalSelector(query)
	if err != nil {
		return 0, newError(OpRemove, query, err)
	}
	removed, err := r.index.Remove(selector)
	if err != nil {
		return 0, newError(OpRemove, selector, err)
	}
	if removed == 0 {
		return 0, nil
	}
	jsonLogger.Info("Removed %d entries matching %s", removed, selector)
	return removed, r.flush(OpRemove, selector)
}

// Clear implements EditableRepository
func (r *JSONRepository) Clear() (int, error) {
	removed := r.index.Clear()
	jsonLogger.Info("Cleared %d entries", removed)
	return removed, r.flush(OpClear, "")
}

// Reload discards the in-memory index and reads it again from the store.
func (r *JSONRepository) Reload() error {
	if r.store == nil {
		return nil
	}
	persisted, err := r.store.LoadIndex()
	if err != nil {
		return err
	}
	r.index.Load(persisted)
	return nil
}

func (r *JSONRepository) flush(op, p string) error {
	if r.store == nil {
		return nil
	}
	if err := r.store.SaveIndex(r.index.Snapshot()); err != nil {
		return newError(op, p, err)
	}
	return nil
}

func (r *JSONRepository) glob(op, query, language string, flags ScanFlag) ([]Hit, error) {
	if err := checkLanguage(op, query, language); err != nil {
		return nil, err
	}
	selector, err := canonicalSelector(query)
	if err != nil {
		return nil, newError(op, query, err)
	}
	hits, err := r.index.Glob(selector, flags)
	if err != nil {
		return nil, newError(op, selector, fmt.Errorf("%w: %v", ErrInvalidPath, err))
	}
	return hits, nil
}

// existing canonicalizes p and checks that the index holds it.
func (r *JSONRepository) existing(op, p string) (string, error) {
	canonical, err := CanonicalPath(p)
	if err != nil {
		return "", newError(op, p, err)
	}
	if _, ok := r.index.Lookup(canonical); !ok {
		return "", newError(op, canonical, ErrResourceNotFound)
	}
	return canonical, nil
}

func (r *JSONRepository) createResources(hits []Hit) []Resource {
	out := make([]Resource, 0, len(hits))
	for _, hit := range hits {
		if res, ok := r.createResource(hit); ok {
			out = append(out, res)
		}
	}
	return out
}

func (r *JSONRepository) createResource(hit Hit) (Resource, bool) {
	var res Resource
	switch hit.Reference.Kind {
	case ReferenceNone:
		res = NewGenericResource(hit.Path)
	case ReferenceLink:
		res = NewLinkResource(hit.Reference.Value, hit.Path)
	case ReferenceFilesystem:
		fsRes, err := NewFilesystemResource(hit.Reference.Value, hit.Path)
		if err != nil {
			jsonLogger.Debug("Dropping %s: %v", hit.Path, err)
			return nil, false
		}
		res = fsRes
	default:
		return nil, false
	}
	return attachResource(res, r, hit.Path), true
}
