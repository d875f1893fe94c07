package mirror

import (
	gitignore "github.com/sabhiram/go-gitignore"
)

// Matcher decides whether a relative, slash-separated path is excluded from
// mirroring. Excluded paths are neither copied nor pruned.
type Matcher interface {
	MatchesPath(path string) bool
}

// IgnoreList is a Matcher built from gitignore-style patterns.
type IgnoreList struct {
	patterns []string
	ignore   *gitignore.GitIgnore
}

// NewIgnoreList compiles the given patterns. Blank lines and comments are
// ignored, as in a .gitignore file.
func NewIgnoreList(patterns ...string) *IgnoreList {
	return &IgnoreList{
		patterns: patterns,
		ignore:   gitignore.CompileIgnoreLines(patterns...),
	}
}

// MatchesPath reports whether path is excluded.
func (l *IgnoreList) MatchesPath(path string) bool {
	if l == nil || len(l.patterns) == 0 {
		return false
	}
	return l.ignore.MatchesPath(path)
}
