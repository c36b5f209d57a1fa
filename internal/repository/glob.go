package repository

import (
	"strings"

	"github.com/gobwas/glob"
)

// Matcher tests repository paths against a compiled pattern.
type Matcher interface {
	Match(p string) bool
}

// MatcherFunc adapts a function to the Matcher interface.
type MatcherFunc func(p string) bool

// Match implements Matcher
func (f MatcherFunc) Match(p string) bool { return f(p) }

const globSpecial = `*?[{`

// IsDynamicGlob reports whether pattern contains unescaped wildcard syntax.
func IsDynamicGlob(pattern string) bool {
	for i := 0; i < len(pattern); i++ {
		switch c := pattern[i]; {
		case c == '\\':
			i++
		case strings.IndexByte(globSpecial, c) >= 0:
			return true
		}
	}
	return false
}

// GlobStaticPrefix returns the literal text before the first wildcard of
// pattern, with escapes removed. For a literal pattern it is the whole
// unescaped pattern.
func GlobStaticPrefix(pattern string) string {
	var b strings.Builder
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		if c == '\\' && i+1 < len(pattern) {
			i++
			b.WriteByte(pattern[i])
			continue
		}
		if strings.IndexByte(globSpecial, c) >= 0 {
			break
		}
		b.WriteByte(c)
	}
	return b.String()
}

// CompileGlob compiles pattern into a Matcher. "*" and "?" do not match
// "/", "**" matches any sequence including "/".
func CompileGlob(pattern string) (Matcher, error) {
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, err
	}
	return g, nil
}

// QuoteGlob escapes every wildcard character in a literal path.
func QuoteGlob(p string) string {
	return glob.QuoteMeta(p)
}

// selfOrDescendants matches everything pattern matches plus every path below
// such a match, which is what pattern + "{,/**/*}" expresses.
func selfOrDescendants(pattern string) (Matcher, error) {
	self, err := CompileGlob(pattern)
	if err != nil {
		return nil, err
	}
	below, err := CompileGlob(strings.TrimSuffix(pattern, "/") + "/**")
	if err != nil {
		return nil, err
	}
	return MatcherFunc(func(p string) bool {
		return self.Match(p) || below.Match(p)
	}), nil
}

// childMatcher matches the immediate children of dir.
func childMatcher(dir string) Matcher {
	prefix := childPrefix(dir)
	return MatcherFunc(func(p string) bool {
		if len(p) <= len(prefix) || !strings.HasPrefix(p, prefix) {
			return false
		}
		return strings.IndexByte(p[len(prefix):], '/') < 0
	})
}

func childPrefix(dir string) string {
	if dir == "/" {
		return "/"
	}
	return dir + "/"
}
