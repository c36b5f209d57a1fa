package repository

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewFilesystemResource(t *testing.T) {
	base := t.TempDir()
	writeTree(t, base, map[string]string{
		"dir/b.txt": "b",
		"dir/a.txt": "a",
		"dir/sub/c": "c",
	})

	res, err := NewFilesystemResource(filepath.Join(base, "dir"), "/dir")
	if err != nil {
		t.Fatalf("NewFilesystemResource failed: %v", err)
	}
	dir, ok := res.(*DirectoryResource)
	if !ok {
		t.Fatalf("Expected *DirectoryResource, got %T", res)
	}

	children, err := dir.ReadChildren()
	if err != nil {
		t.Fatalf("ReadChildren failed: %v", err)
	}
	if diff := cmp.Diff([]string{"/dir/a.txt", "/dir/b.txt", "/dir/sub"}, paths(children)); diff != "" {
		t.Errorf("Children mismatch (-want +got):\n%s", diff)
	}
	if _, ok := children[2].(*DirectoryResource); !ok {
		t.Errorf("Expected sub to be a directory, got %T", children[2])
	}

	has, err := dir.HasChildren()
	if err != nil || !has {
		t.Errorf("Detached directory HasChildren = %v (err=%v)", has, err)
	}

	if _, err := NewFilesystemResource(filepath.Join(base, "missing"), "/missing"); !os.IsNotExist(err) {
		t.Errorf("Expected not-exist error, got %v", err)
	}
}

func TestCreateReference(t *testing.T) {
	resources := []Resource{
		NewGenericResource("/res"),
		NewFileResource("/tmp/res", "/res"),
		NewDirectoryResource("/tmp/res", "/res"),
		NewLinkResource("/target", "/res"),
	}

	for _, res := range resources {
		ref := res.CreateReference("/mount/res")
		if ref.Path() != "/mount/res" || ref.RepositoryPath() != "/res" {
			t.Errorf("%T: unexpected identity %q / %q", res, ref.Path(), ref.RepositoryPath())
		}
		if !ref.IsReference() {
			t.Errorf("%T: expected reference", res)
		}
		if res.Path() != "/res" || res.IsReference() {
			t.Errorf("%T: original was modified", res)
		}
	}

	link := NewLinkResource("/target", "/res").CreateReference("/x").(*LinkResource)
	if link.Target() != "/target" {
		t.Errorf("Reference lost link target: %q", link.Target())
	}
}
