package repository

import (
	"sort"

	"vrepo/internal/logging"
)

var (
	compositeLogger = logging.GetLogger().WithPrefix("composite")
)

// CompositeRepository routes every call to the repository mounted at the
// most specific mount point of the requested path. Resources coming back
// are references whose Path includes the mount point, while their
// RepositoryPath stays the one of the owning repository.
//
// "Search" calls (Find, Contains) return nothing when no mount point
// matches; calls for one specific resource (Get, HasChildren, ListChildren)
// fail with ErrResourceNotFound.
type CompositeRepository struct {
	mounts MountTable
}

var _ Repository = (*CompositeRepository)(nil)

// NewCompositeRepository creates a composite without mount points.
func NewCompositeRepository() *CompositeRepository {
	return &CompositeRepository{}
}

// Mount attaches a Repository or a Factory at p.
func (c *CompositeRepository) Mount(p string, v interface{}) error {
	return c.mounts.Mount(p, v)
}

// Unmount detaches whatever is mounted at p.
func (c *CompositeRepository) Unmount(p string) error {
	return c.mounts.Unmount(p)
}

// MountPoints returns the mount points, most specific first.
func (c *CompositeRepository) MountPoints() []string {
	return c.mounts.MountPoints()
}

// Get implements Repository. The root is a generic resource standing for
// all mount points.
func (c *CompositeRepository) Get(p string) (Resource, error) {
	canonical, err := CanonicalPath(p)
	if err != nil {
		return nil, newError(OpGet, p, err)
	}
	if canonical == "/" {
		return attachResource(NewGenericResource("/"), c, "/"), nil
	}

	mountPoint, subPath, ok := c.mounts.Split(canonical)
	if !ok {
		return nil, newError(OpGet, canonical, ErrResourceNotFound)
	}
	repo, err := c.mounts.Resolve(mountPoint)
	if err != nil {
		return nil, err
	}
	compositeLogger.Trace("Get %s -> %s:%s", canonical, mountPoint, subPath)

	res, err := repo.Get(subPath)
	if err != nil {
		return nil, err
	}
	return rebaseResource(mountPoint, res), nil
}

// Find implements Repository
func (c *CompositeRepository) Find(query, language string) ([]Resource, error) {
	repo, mountPoint, subQuery, err := c.route(OpFind, query, language)
	if err != nil || repo == nil {
		return nil, err
	}
	found, err := repo.Find(subQuery, language)
	if err != nil {
		return nil, err
	}
	return rebaseResources(mountPoint, found), nil
}

// Contains implements Repository
func (c *CompositeRepository) Contains(query, language string) (bool, error) {
	repo, _, subQuery, err := c.route(OpContains, query, language)
	if err != nil || repo == nil {
		return false, err
	}
	return repo.Contains(subQuery, language)
}

// HasChildren implements Repository. The root has children as soon as one
// mount point exists.
func (c *CompositeRepository) HasChildren(p string) (bool, error) {
	canonical, err := CanonicalPath(p)
	if err != nil {
		return false, newError(OpHasChildren, p, err)
	}
	if canonical == "/" {
		return c.mounts.Len() > 0, nil
	}

	mountPoint, subPath, ok := c.mounts.Split(canonical)
	if !ok {
		return false, newError(OpHasChildren, canonical, ErrResourceNotFound)
	}
	repo, err := c.mounts.Resolve(mountPoint)
	if err != nil {
		return false, err
	}
	return repo.HasChildren(subPath)
}

// ListChildren implements Repository. Mount points exactly one level below
// p are listed as generic resources, next to the children reported by the
// repository mounted at p, if any.
func (c *CompositeRepository) ListChildren(p string) ([]Resource, error) {
	canonical, err := CanonicalPath(p)
	if err != nil {
		return nil, newError(OpListChildren, p, err)
	}

	byPath := make(map[string]Resource)
	for _, mp := range c.mounts.MountPoints() {
		if mp != canonical && mp != "/" && ParentPath(mp) == canonical {
			byPath[mp] = attachResource(NewGenericResource(mp), c, mp)
		}
	}

	mountPoint, subPath, ok := c.mounts.Split(canonical)
	switch {
	case ok:
		repo, err := c.mounts.Resolve(mountPoint)
		if err != nil {
			return nil, err
		}
		children, err := repo.ListChildren(subPath)
		if err != nil {
			return nil, err
		}
		for _, child := range rebaseResources(mountPoint, children) {
			// a mount point shadows what the parent repository has there
			if _, shadowed := byPath[child.Path()]; !shadowed {
				byPath[child.Path()] = child
			}
		}
	case canonical != "/":
		return nil, newError(OpListChildren, canonical, ErrResourceNotFound)
	}

	out := make([]Resource, 0, len(byPath))
	for _, res := range byPath {
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path() < out[j].Path() })
	return out, nil
}

// route validates a query and finds the repository responsible for it.
// A nil repository without error means no mount point matches.
func (c *CompositeRepository) route(op, query, language string) (Repository, string, string, error) {
	if err := checkLanguage(op, query, language); err != nil {
		return nil, "", "", err
	}
	selector, err := canonicalSelector(query)
	if err != nil {
		return nil, "", "", newError(op, query, err)
	}
	mountPoint, subQuery, ok := c.mounts.Split(selector)
	if !ok {
		compositeLogger.Trace("No mount point for %s", selector)
		return nil, "", "", nil
	}
	repo, err := c.mounts.Resolve(mountPoint)
	if err != nil {
		return nil, "", "", err
	}
	return repo, mountPoint, subQuery, nil
}

func rebaseResource(mountPoint string, res Resource) Resource {
	if mountPoint == "/" {
		return res
	}
	return res.CreateReference(PrefixPath(mountPoint, res.Path()))
}

func rebaseResources(mountPoint string, resources []Resource) []Resource {
	if mountPoint == "/" {
		return resources
	}
	out := make([]Resource, len(resources))
	for i, res := range resources {
		out[i] = rebaseResource(mountPoint, res)
	}
	return out
}
