package fs

import (
	"context"
	"os"

	"vrepo/internal/logging"
	"vrepo/internal/repository"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"
)

var (
	dirLogger = logging.GetLogger().WithPrefix("dir")
)

// Dir is a listable repository path: the root, a generic resource, a mount
// placeholder or an indexed directory.
type Dir struct {
	fs   *RepoFS
	path string
}

// Attr implements the Node interface, returning directory attributes.
func (d *Dir) Attr(_ context.Context, a *fuse.Attr) error {
	dirLogger.Trace("Getting attributes for directory: %q", d.path)
	a.Mode = os.ModeDir | 0555
	a.Uid = d.fs.uid
	a.Gid = d.fs.gid
	return nil
}

// Lookup implements the NodeStringLookuper interface, finding a child node.
func (d *Dir) Lookup(_ context.Context, name string) (fusefs.Node, error) {
	childPath := repository.JoinPath(d.path, name)
	dirLogger.Debug("Looking up %q in directory %q", name, d.path)

	res, err := d.fs.resolve(childPath)
	if err != nil {
		dirLogger.Debug("Lookup of %q failed: %v", childPath, err)
		return nil, ToFuseError(err)
	}
	return d.fs.nodeFor(res), nil
}

// ReadDirAll implements the HandleReadDirAller interface, listing directory contents.
func (d *Dir) ReadDirAll(_ context.Context) ([]fuse.Dirent, error) {
	dirLogger.Debug("Reading directory contents: %q", d.path)

	children, err := d.fs.listChildren(d.path)
	if err != nil {
		dirLogger.Debug("Listing %q failed: %v", d.path, err)
		return nil, ToFuseError(err)
	}

	entries := make([]fuse.Dirent, 0, len(children)+2)
	entries = append(entries, fuse.Dirent{Name: ".", Type: fuse.DT_Dir})
	entries = append(entries, fuse.Dirent{Name: "..", Type: fuse.DT_Dir})
	for _, child := range children {
		entries = append(entries, fuse.Dirent{Name: child.Name(), Type: direntType(child)})
	}

	dirLogger.Debug("Directory %q contains %d entries", d.path, len(entries))
	return entries, nil
}

// direntType reports the kind a listed resource will have once looked up.
// Links are reported as unknown since their target decides.
func direntType(res repository.Resource) fuse.DirentType {
	switch res.(type) {
	case *repository.FileResource:
		return fuse.DT_File
	case *repository.LinkResource:
		return fuse.DT_Unknown
	default:
		return fuse.DT_Dir
	}
}
