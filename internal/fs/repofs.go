// Package fs exposes a repository as a read-only FUSE filesystem.
package fs

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"vrepo/internal/logging"
	"vrepo/internal/repository"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"
)

var (
	vfsLogger = logging.GetLogger().WithPrefix("vfs")
)

// maxLinkDepth bounds how many link resources are followed for one lookup.
const maxLinkDepth = 8

// RepoFS serves a repository through FUSE.
//
// Repositories are not safe for concurrent use while the FUSE server
// dispatches requests from many goroutines, so every repository call goes
// through mu.
type RepoFS struct {
	repo repository.Repository
	conn *fuse.Conn
	done chan struct{}
	uid  uint32 // User ID reported for every node
	gid  uint32 // Group ID reported for every node
	mu   sync.Mutex
}

// NewRepoFS creates a filesystem view of repo. Ownership defaults to the
// current process and can be overridden with PUID and PGID.
func NewRepoFS(repo repository.Repository) *RepoFS {
	uid := envID("PUID", safeIntToUint32(os.Getuid()))
	gid := envID("PGID", safeIntToUint32(os.Getgid()))
	vfsLogger.Debug("Creating repository filesystem (uid=%d, gid=%d)", uid, gid)

	return &RepoFS{
		repo: repo,
		uid:  uid,
		gid:  gid,
	}
}

// Root implements the fusefs.FS interface, returning the root directory node.
func (vfs *RepoFS) Root() (fusefs.Node, error) {
	vfsLogger.Trace("Getting root directory node")
	return &Dir{fs: vfs, path: "/"}, nil
}

// resolve fetches the resource at p and follows links until it reaches a
// resource that can be turned into a node.
func (vfs *RepoFS) resolve(p string) (repository.Resource, error) {
	vfs.mu.Lock()
	defer vfs.mu.Unlock()

	res, err := vfs.repo.Get(p)
	for depth := 0; err == nil; depth++ {
		link, ok := res.(*repository.LinkResource)
		if !ok {
			return res, nil
		}
		if depth == maxLinkDepth {
			vfsLogger.Warn("Too many links while resolving %q", p)
			return nil, repository.ErrResourceNotFound
		}
		vfsLogger.Trace("Following link %q -> %q", link.Path(), link.Target())
		res, err = vfs.repo.Get(link.Target())
	}
	return nil, err
}

func (vfs *RepoFS) listChildren(p string) ([]repository.Resource, error) {
	vfs.mu.Lock()
	defer vfs.mu.Unlock()
	return vfs.repo.ListChildren(p)
}

// reloader is implemented by repositories backed by a file that can change
// underneath them.
type reloader interface {
	Reload() error
}

// Reload rereads the served repository from its backing store. It does
// nothing for repositories that cannot be reloaded.
func (vfs *RepoFS) Reload() error {
	r, ok := vfs.repo.(reloader)
	if !ok {
		vfsLogger.Debug("Repository %T cannot be reloaded", vfs.repo)
		return nil
	}
	vfs.mu.Lock()
	defer vfs.mu.Unlock()
	vfsLogger.Info("Reloading repository")
	return r.Reload()
}

// nodeFor turns a resolved resource into a FUSE node. Files become File
// nodes; everything else can be listed and becomes a Dir.
func (vfs *RepoFS) nodeFor(res repository.Resource) fusefs.Node {
	if file, ok := res.(*repository.FileResource); ok {
		return &File{fs: vfs, path: file.Path(), fsPath: file.FilesystemPath()}
	}
	return &Dir{fs: vfs, path: res.Path()}
}

func waitForMount(mountpoint string) error {
	for i := 0; i < 30; i++ {
		info, err := os.Stat(mountpoint)
		if err == nil && info.IsDir() {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("mount point not available after 3 seconds")
}

// Mount mounts the filesystem at mountPoint and serves it in the background.
func (vfs *RepoFS) Mount(mountPoint string) error {
	vfsLogger.Info("Mounting repository filesystem")
	vfsLogger.Debug("Mount point: %s", mountPoint)
	vfsLogger.Debug("UID: %d, GID: %d", vfs.uid, vfs.gid)

	mountOpts := []fuse.MountOption{
		fuse.FSName("vrepo"),
		fuse.Subtype("vrepo"),
		fuse.ReadOnly(),
		fuse.DefaultPermissions(),
		fuse.AsyncRead(),
	}

	c, err := fuse.Mount(mountPoint, mountOpts...)
	if err != nil {
		return fmt.Errorf("mount failed: %w", err)
	}
	vfs.conn = c
	vfs.done = make(chan struct{})

	go func() {
		defer close(vfs.done)
		if err := fusefs.Serve(c, vfs); err != nil {
			vfsLogger.Error("FUSE server error: %v", err)
		}
		vfsLogger.Debug("FUSE server stopped")
	}()

	if err := waitForMount(mountPoint); err != nil {
		c.Close()
		vfsLogger.Error("Mount point not ready: %v", err)
		return fmt.Errorf("mount point failed to initialize: %w", err)
	}

	vfsLogger.Info("Filesystem mounted successfully")
	return nil
}

// Wait blocks until the FUSE server stops or ctx is done.
func (vfs *RepoFS) Wait(ctx context.Context) error {
	if vfs.done == nil {
		return nil
	}
	select {
	case <-vfs.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Unmount cleanly unmounts the filesystem and closes the connection.
func (vfs *RepoFS) Unmount(mountPoint string) error {
	vfsLogger.Info("Unmounting filesystem from: %s", mountPoint)
	if vfs.conn == nil {
		return nil
	}
	if err := fuse.Unmount(mountPoint); err != nil {
		vfsLogger.Error("Unmount failed: %v", err)
		return err
	}
	<-vfs.done
	err := vfs.conn.Close()
	vfs.conn = nil
	vfsLogger.Info("Unmount completed successfully")
	return err
}
