package fs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"vrepo/internal/repository"

	"bazil.org/fuse"
)

func TestFileOperations(t *testing.T) {
	vfs, _, sourceDir := setupTestFS(t)
	ctx := context.Background()
	testContent := []byte("read me")

	lookupFile := func(t *testing.T) *File {
		t.Helper()
		node, err := lookupPath(ctx, t, vfs, "docs", "readme.txt")
		if err != nil {
			t.Fatalf("Failed to lookup file: %v", err)
		}
		file, ok := node.(*File)
		if !ok {
			t.Fatalf("Expected *File, got %T", node)
		}
		return file
	}

	t.Run("FileAttributes", func(t *testing.T) {
		attr := &fuse.Attr{}
		if err := lookupFile(t).Attr(ctx, attr); err != nil {
			t.Fatalf("Failed to get file attributes: %v", err)
		}
		if attr.Mode&os.ModeDir != 0 {
			t.Error("File should not be a directory")
		}
		if attr.Mode&0222 != 0 {
			t.Errorf("File should not be writable, mode %v", attr.Mode)
		}
		if attr.Size != uint64(len(testContent)) {
			t.Errorf("Expected size %d, got %d", len(testContent), attr.Size)
		}
	})

	t.Run("FileReading", func(t *testing.T) {
		handle, err := lookupFile(t).Open(ctx, &fuse.OpenRequest{Flags: fuse.OpenReadOnly}, &fuse.OpenResponse{})
		if err != nil {
			t.Fatalf("Failed to open file: %v", err)
		}

		fh := handle.(*FileHandle)
		resp := &fuse.ReadResponse{}
		err = fh.Read(ctx, &fuse.ReadRequest{Offset: 5, Size: 64}, resp)
		if err != nil && err != io.EOF {
			t.Fatalf("Failed to read file: %v", err)
		}
		if string(resp.Data) != "me" {
			t.Errorf("Expected content %q, got %q", "me", string(resp.Data))
		}

		if err := fh.Release(ctx, &fuse.ReleaseRequest{}); err != nil {
			t.Errorf("Failed to close file: %v", err)
		}
	})

	t.Run("WriteAccessDenied", func(t *testing.T) {
		for _, flags := range []fuse.OpenFlags{fuse.OpenWriteOnly, fuse.OpenReadWrite} {
			_, err := lookupFile(t).Open(ctx, &fuse.OpenRequest{Flags: flags}, &fuse.OpenResponse{})
			if !errors.Is(err, syscall.EROFS) {
				t.Errorf("Expected EROFS for flags %v, got %v", flags, err)
			}
		}
	})

	t.Run("VanishedSource", func(t *testing.T) {
		file := lookupFile(t)
		if err := os.Remove(filepath.Join(sourceDir, "docs", "readme.txt")); err != nil {
			t.Fatalf("Failed to remove source file: %v", err)
		}
		if err := file.Attr(ctx, &fuse.Attr{}); !errors.Is(err, syscall.ENOENT) {
			t.Errorf("Expected ENOENT, got %v", err)
		}
		if _, err := lookupPath(ctx, t, vfs, "docs", "readme.txt"); !errors.Is(err, syscall.ENOENT) {
			t.Errorf("Expected lookup to miss, got %v", err)
		}
	})
}

func TestToFuseError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"read only", ErrReadOnly, syscall.EROFS},
		{"not found", fmt.Errorf("get: %w", repository.ErrResourceNotFound), syscall.ENOENT},
		{"invalid path", fmt.Errorf("get: %w", repository.ErrInvalidPath), syscall.EINVAL},
		{"factory", repository.ErrFactoryContract, syscall.EIO},
		{"not exist", os.ErrNotExist, syscall.ENOENT},
		{"permission", os.ErrPermission, syscall.EACCES},
		{"other", errors.New("boom"), syscall.EIO},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToFuseError(tt.err); got != tt.want {
				t.Errorf("ToFuseError(%v) = %v, expected %v", tt.err, got, tt.want)
			}
		})
	}
}
