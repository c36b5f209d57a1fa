package fs

import (
	"context"
	"io"
	"os"
	"sync"
	"syscall"

	"vrepo/internal/logging"

	"bazil.org/fuse"
	fusefs "bazil.org/fuse/fs"
)

var (
	fileLogger = logging.GetLogger().WithPrefix("file")
)

// File is a repository resource backed by a regular file on disk.
type File struct {
	fs     *RepoFS
	path   string
	fsPath string
}

// Attr implements the Node interface, returning the file's attributes.
func (f *File) Attr(_ context.Context, a *fuse.Attr) error {
	fileLogger.Trace("Getting attributes for file: %q (source: %q)", f.path, f.fsPath)

	info, err := os.Stat(f.fsPath)
	if err != nil {
		if os.IsNotExist(err) {
			fileLogger.Warn("Source file not found: %q", f.fsPath)
			return syscall.ENOENT
		}
		fileLogger.Error("Failed to stat file: %v", err)
		return ToFuseError(err)
	}

	a.Mode = info.Mode().Perm() &^ 0222
	a.Size = safeInt64ToUint64(info.Size())
	a.Mtime = info.ModTime()
	a.Atime = info.ModTime()
	a.Ctime = info.ModTime()
	a.Uid = f.fs.uid
	a.Gid = f.fs.gid
	a.BlockSize = 4096
	a.Blocks = safeInt64ToUint64((info.Size() + 511) / 512)
	return nil
}

// Open implements the NodeOpener interface. Only read access is allowed.
func (f *File) Open(_ context.Context, req *fuse.OpenRequest, resp *fuse.OpenResponse) (fusefs.Handle, error) {
	fileLogger.Debug("Opening file %q with flags %v", f.path, req.Flags)

	if !req.Flags.IsReadOnly() {
		fileLogger.Warn("Attempted write access to read-only file: %q", f.path)
		return nil, ToFuseError(ErrReadOnly)
	}

	file, err := os.Open(f.fsPath)
	if err != nil {
		fileLogger.Error("Failed to open file: %v", err)
		return nil, ToFuseError(err)
	}

	resp.Flags |= fuse.OpenKeepCache
	return &FileHandle{file: file, path: f.path}, nil
}

// FileHandle is an open file of the source filesystem.
type FileHandle struct {
	file *os.File
	path string // For logging purposes
	mu   sync.Mutex
}

// Read implements the HandleReader interface, reading data from the file.
func (fh *FileHandle) Read(_ context.Context, req *fuse.ReadRequest, resp *fuse.ReadResponse) error {
	fh.mu.Lock()
	defer fh.mu.Unlock()

	fileLogger.Trace("Reading %d bytes from file %q at offset %d", req.Size, fh.path, req.Offset)

	resp.Data = make([]byte, req.Size)
	n, err := fh.file.ReadAt(resp.Data, req.Offset)
	if err != nil && err != io.EOF {
		fileLogger.Error("Failed to read from file: %v", err)
		return ToFuseError(err)
	}
	resp.Data = resp.Data[:n]
	return nil
}

// Release implements the HandleReleaser interface, closing the file handle.
func (fh *FileHandle) Release(_ context.Context, _ *fuse.ReleaseRequest) error {
	fh.mu.Lock()
	defer fh.mu.Unlock()

	fileLogger.Debug("Closing file %q", fh.path)
	return fh.file.Close()
}
