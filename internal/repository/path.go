package repository

import (
	"path"
	"path/filepath"
	"strings"
)

// CanonicalPath validates a repository path and normalizes it: "." and ".."
// segments are resolved, duplicate and trailing slashes are dropped.
// The input must be a non-empty string starting with "/".
func CanonicalPath(p string) (string, error) {
	if p == "" || p[0] != '/' {
		return "", ErrInvalidPath
	}
	if strings.ContainsRune(p, 0) {
		return "", ErrInvalidPath
	}
	return path.Clean(p), nil
}

// canonicalSelector validates a glob selector. Selectors are cleaned like
// paths except that glob syntax is left untouched.
func canonicalSelector(query string) (string, error) {
	if query == "" || query[0] != '/' {
		return "", ErrInvalidPath
	}
	if strings.ContainsRune(query, 0) {
		return "", ErrInvalidPath
	}
	if strings.HasSuffix(query, `\`) && !strings.HasSuffix(query, `\\`) {
		return "", ErrInvalidPath
	}
	return path.Clean(query), nil
}

// JoinPath appends a relative name to a canonical repository path.
func JoinPath(base, name string) string {
	return path.Join(base, name)
}

// ParentPath returns the parent of a canonical path; the parent of "/" is "/".
func ParentPath(p string) string {
	return path.Dir(p)
}

// BaseName returns the last segment of a canonical path ("" for the root).
func BaseName(p string) string {
	if p == "/" {
		return ""
	}
	return path.Base(p)
}

// IsBasePath reports whether base equals p or is one of its ancestors.
// Both paths must be canonical.
func IsBasePath(base, p string) bool {
	if base == "/" {
		return true
	}
	return p == base || strings.HasPrefix(p, base+"/")
}

// RelativePath returns p as seen from base, as an absolute path rooted at
// base ("/" when they are equal). base must satisfy IsBasePath(base, p).
func RelativePath(p, base string) string {
	if base == "/" {
		return p
	}
	rel := strings.TrimPrefix(p, base)
	if rel == "" {
		return "/"
	}
	return rel
}

// PrefixPath maps a path relative to a mount point back into the mount's
// parent namespace.
func PrefixPath(mountPoint, p string) string {
	if mountPoint == "/" {
		return p
	}
	if p == "/" {
		return mountPoint
	}
	return mountPoint + p
}

// MakeAbsolute resolves a filesystem path against base unless it is
// already absolute.
func MakeAbsolute(p, base string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}

// makeRelative stores filesystem paths below base relative to it, so an
// index file can move together with the tree it describes.
func makeRelative(p, base string) string {
	if base == "" || !filepath.IsAbs(p) {
		return p
	}
	rel, err := filepath.Rel(base, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return p
	}
	return filepath.ToSlash(rel)
}
