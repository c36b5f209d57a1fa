package repository

import (
	"sort"

	"vrepo/internal/logging"
)

var (
	mountLogger = logging.GetLogger().WithPrefix("mount")
)

// Factory builds the repository for a mount point the first time the mount
// point is used. It receives the mount point it is registered at.
type Factory func(mountPoint string) (Repository, error)

// mountSlot holds either a live repository or the factory that will build
// it. Once resolved, the factory is dropped.
type mountSlot struct {
	repo    Repository
	factory Factory
}

func (s *mountSlot) resolved() bool {
	return s.repo != nil
}

type mountEntry struct {
	path string
	slot *mountSlot
}

// MountTable maps mount points to repositories.
//
// Mount points are kept in descending byte order. An ancestor path is
// always a prefix of its descendants and therefore sorts before them in
// ascending order, so walking the table in descending order meets the most
// specific mount point of any path first.
type MountTable struct {
	mounts []mountEntry
}

// Mount attaches v at p, replacing any previous mount at the same path.
// v must be a Repository, a Factory or a func(string) (Repository, error).
func (t *MountTable) Mount(p string, v interface{}) error {
	canonical, err := CanonicalPath(p)
	if err != nil {
		return newError(OpMount, p, err)
	}

	slot, err := newMountSlot(v)
	if err != nil {
		return newError(OpMount, canonical, err)
	}

	for i := range t.mounts {
		if t.mounts[i].path == canonical {
			t.mounts[i].slot = slot
			mountLogger.Debug("Replaced mount at %s", canonical)
			return nil
		}
	}
	t.mounts = append(t.mounts, mountEntry{path: canonical, slot: slot})
	sort.Slice(t.mounts, func(i, j int) bool {
		return t.mounts[i].path > t.mounts[j].path
	})
	mountLogger.Debug("Mounted %s (lazy=%v)", canonical, !slot.resolved())
	return nil
}

func newMountSlot(v interface{}) (*mountSlot, error) {
	switch val := v.(type) {
	case nil:
		return nil, ErrInvalidMountArgument
	case Factory:
		if val == nil {
			return nil, ErrInvalidMountArgument
		}
		return &mountSlot{factory: val}, nil
	case func(string) (Repository, error):
		if val == nil {
			return nil, ErrInvalidMountArgument
		}
		return &mountSlot{factory: val}, nil
	case Repository:
		return &mountSlot{repo: val}, nil
	default:
		return nil, ErrInvalidMountArgument
	}
}

// Unmount removes the mount at p. Unmounting a path that is not mounted
// does nothing.
func (t *MountTable) Unmount(p string) error {
	canonical, err := CanonicalPath(p)
	if err != nil {
		return newError(OpUnmount, p, err)
	}
	for i := range t.mounts {
		if t.mounts[i].path == canonical {
			t.mounts = append(t.mounts[:i], t.mounts[i+1:]...)
			mountLogger.Debug("Unmounted %s", canonical)
			return nil
		}
	}
	return nil
}

// MountPoints returns the mount points, most specific first.
func (t *MountTable) MountPoints() []string {
	out := make([]string, len(t.mounts))
	for i, m := range t.mounts {
		out[i] = m.path
	}
	return out
}

// Len returns the number of mount points.
func (t *MountTable) Len() int {
	return len(t.mounts)
}

// Split finds the most specific mount point containing the canonical path p
// and returns it with the remainder of p below it. The remainder is "/"
// when p is the mount point itself and p unchanged for the root mount.
// ok is false when no mount point contains p.
func (t *MountTable) Split(p string) (mountPoint, subPath string, ok bool) {
	for _, m := range t.mounts {
		if IsBasePath(m.path, p) {
			return m.path, RelativePath(p, m.path), true
		}
	}
	return "", "", false
}

// Resolve returns the repository mounted at mountPoint, building it from
// its factory on first use.
func (t *MountTable) Resolve(mountPoint string) (Repository, error) {
	slot := t.find(mountPoint)
	if slot == nil {
		return nil, newError(OpResolve, mountPoint, ErrResourceNotFound)
	}
	if slot.resolved() {
		return slot.repo, nil
	}

	mountLogger.Debug("Building repository for %s", mountPoint)
	repo, err := slot.factory(mountPoint)
	if err != nil {
		return nil, newError(OpResolve, mountPoint, err)
	}
	if repo == nil {
		return nil, newError(OpResolve, mountPoint, ErrFactoryContract)
	}
	slot.repo = repo
	slot.factory = nil
	return repo, nil
}

func (t *MountTable) find(p string) *mountSlot {
	for _, m := range t.mounts {
		if m.path == p {
			return m.slot
		}
	}
	return nil
}
