package repository

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Resource is an entry of a repository.
//
// A resource has two paths. RepositoryPath is where the resource lives inside
// the repository that produced it. Path is where the caller sees it; the two
// differ once a resource is surfaced through a composite repository, in which
// case IsReference reports true.
type Resource interface {
	Path() string
	RepositoryPath() string
	Repository() Repository
	Name() string
	IsReference() bool

	// CreateReference returns a copy of the resource visible at path. The
	// repository path and repository stay the same.
	CreateReference(path string) Resource

	HasChildren() (bool, error)
	ListChildren() ([]Resource, error)
}

// FilesystemResource is a resource backed by a file or directory on disk.
type FilesystemResource interface {
	Resource
	FilesystemPath() string
}

// node holds the identity shared by all resource kinds.
type node struct {
	path     string
	repoPath string
	repo     Repository
}

func (n *node) Path() string {
	if n.path == "" {
		return n.repoPath
	}
	return n.path
}

func (n *node) RepositoryPath() string { return n.repoPath }
func (n *node) Repository() Repository { return n.repo }
func (n *node) Name() string           { return BaseName(n.Path()) }

func (n *node) IsReference() bool {
	return n.path != "" && n.path != n.repoPath
}

func (n *node) attach(repo Repository, p string) {
	n.repo = repo
	n.repoPath = p
	n.path = p
}

func (n *node) childrenOf() (bool, []Resource, error) {
	if n.repo == nil {
		return false, nil, nil
	}
	children, err := n.repo.ListChildren(n.repoPath)
	if err != nil {
		return true, nil, err
	}
	return true, n.rebase(children), nil
}

// rebase moves children listed by the owning repository under this
// resource's visible path.
func (n *node) rebase(children []Resource) []Resource {
	if !n.IsReference() {
		return children
	}
	out := make([]Resource, 0, len(children))
	for _, child := range children {
		out = append(out, child.CreateReference(JoinPath(n.Path(), child.Name())))
	}
	return out
}

// GenericResource has no backing content. Repositories use it for
// directories that exist only as path prefixes, and for mount points.
type GenericResource struct {
	node
}

// NewGenericResource creates a detached generic resource.
func NewGenericResource(p string) *GenericResource {
	return &GenericResource{node{repoPath: p}}
}

// CreateReference implements Resource
func (r *GenericResource) CreateReference(p string) Resource {
	c := *r
	c.path = p
	return &c
}

// HasChildren implements Resource
func (r *GenericResource) HasChildren() (bool, error) {
	if r.repo == nil {
		return false, nil
	}
	return r.repo.HasChildren(r.repoPath)
}

// ListChildren implements Resource
func (r *GenericResource) ListChildren() ([]Resource, error) {
	_, children, err := r.childrenOf()
	return children, err
}

// FileResource is a regular file on disk.
type FileResource struct {
	node
	fsPath string
}

// NewFileResource creates a detached file resource for fsPath.
func NewFileResource(fsPath, p string) *FileResource {
	return &FileResource{node: node{repoPath: p}, fsPath: fsPath}
}

// FilesystemPath implements FilesystemResource
func (r *FileResource) FilesystemPath() string { return r.fsPath }

// CreateReference implements Resource
func (r *FileResource) CreateReference(p string) Resource {
	c := *r
	c.path = p
	return &c
}

// HasChildren implements Resource
func (r *FileResource) HasChildren() (bool, error) { return false, nil }

// ListChildren implements Resource
func (r *FileResource) ListChildren() ([]Resource, error) { return nil, nil }

// Read returns the file content.
func (r *FileResource) Read() ([]byte, error) {
	return os.ReadFile(r.fsPath)
}

// DirectoryResource is a directory on disk.
type DirectoryResource struct {
	node
	fsPath string
}

// NewDirectoryResource creates a detached directory resource for fsPath.
func NewDirectoryResource(fsPath, p string) *DirectoryResource {
	return &DirectoryResource{node: node{repoPath: p}, fsPath: fsPath}
}

// FilesystemPath implements FilesystemResource
func (r *DirectoryResource) FilesystemPath() string { return r.fsPath }

// CreateReference implements Resource
func (r *DirectoryResource) CreateReference(p string) Resource {
	c := *r
	c.path = p
	return &c
}

// HasChildren implements Resource. Detached directories look at the disk.
func (r *DirectoryResource) HasChildren() (bool, error) {
	if r.repo != nil {
		return r.repo.HasChildren(r.repoPath)
	}
	entries, err := os.ReadDir(r.fsPath)
	if err != nil {
		return false, err
	}
	return len(entries) > 0, nil
}

// ListChildren implements Resource. Detached directories look at the disk.
func (r *DirectoryResource) ListChildren() ([]Resource, error) {
	if attached, children, err := r.childrenOf(); attached {
		return children, err
	}
	return r.ReadChildren()
}

// ReadChildren lists the directory on disk, ordered by name. The returned
// resources are detached and located below the directory's path.
func (r *DirectoryResource) ReadChildren() ([]Resource, error) {
	entries, err := os.ReadDir(r.fsPath)
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	children := make([]Resource, 0, len(entries))
	for _, entry := range entries {
		childFS := filepath.Join(r.fsPath, entry.Name())
		childPath := JoinPath(r.Path(), entry.Name())
		child, err := NewFilesystemResource(childFS, childPath)
		if err != nil {
			// vanished between ReadDir and Stat
			continue
		}
		children = append(children, child)
	}
	return children, nil
}

// LinkResource points to another repository path. The target is opaque to
// the repository and returned as stored.
type LinkResource struct {
	node
	target string
}

// NewLinkResource creates a detached link to target.
func NewLinkResource(target, p string) *LinkResource {
	return &LinkResource{node: node{repoPath: p}, target: target}
}

// Target returns the linked repository path.
func (r *LinkResource) Target() string { return r.target }

// CreateReference implements Resource
func (r *LinkResource) CreateReference(p string) Resource {
	c := *r
	c.path = p
	return &c
}

// HasChildren implements Resource
func (r *LinkResource) HasChildren() (bool, error) {
	if r.repo == nil {
		return false, nil
	}
	return r.repo.HasChildren(r.repoPath)
}

// ListChildren implements Resource
func (r *LinkResource) ListChildren() ([]Resource, error) {
	_, children, err := r.childrenOf()
	return children, err
}

// NewFilesystemResource stats fsPath and returns a FileResource or a
// DirectoryResource for it.
func NewFilesystemResource(fsPath, p string) (FilesystemResource, error) {
	abs, err := filepath.Abs(fsPath)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	switch {
	case info.IsDir():
		return NewDirectoryResource(abs, p), nil
	case info.Mode().IsRegular():
		return NewFileResource(abs, p), nil
	default:
		return nil, fmt.Errorf("%s: unsupported file type %s", abs, info.Mode().Type())
	}
}

// attachResource binds res to repo at p. Only the kinds produced by this
// package can be attached.
func attachResource(res Resource, repo Repository, p string) Resource {
	switch r := res.(type) {
	case *GenericResource:
		r.attach(repo, p)
	case *FileResource:
		r.attach(repo, p)
	case *DirectoryResource:
		r.attach(repo, p)
	case *LinkResource:
		r.attach(repo, p)
	}
	return res
}
