// Package repository implements path-addressed resource repositories: an
// index-backed repository persisted as a path-to-reference mapping, and a
// composite repository that mounts other repositories at path prefixes.
//
// Repositories are not safe for concurrent use. Callers that share one
// between goroutines must serialize access themselves.
package repository

// LanguageGlob is the query language understood by Find, Contains and Remove.
const LanguageGlob = "glob"

// Repository is the read contract every repository satisfies. Paths and
// queries are absolute, slash-separated repository paths.
type Repository interface {
	// Get returns the resource at path or an ErrResourceNotFound error.
	Get(path string) (Resource, error)

	// Find returns every resource matching query. No match is not an error.
	Find(query, language string) ([]Resource, error)

	// Contains reports whether at least one resource matches query.
	Contains(query, language string) (bool, error)

	// HasChildren reports whether the resource at path has children.
	HasChildren(path string) (bool, error)

	// ListChildren returns the direct children of the resource at path.
	ListChildren(path string) ([]Resource, error)
}

// EditableRepository is a repository whose content can be changed.
type EditableRepository interface {
	Repository

	// Add registers res at path. Directories are added with their subtree.
	Add(path string, res Resource) error

	// Remove deletes every resource matching query together with its
	// descendants and returns how many entries were removed.
	Remove(query, language string) (int, error)

	// Clear removes every resource and returns how many were removed.
	Clear() (int, error)
}

func checkLanguage(op, query, language string) error {
	if language != LanguageGlob {
		return newError(op, query, ErrUnsupportedLanguage)
	}
	return nil
}
