package builder

import (
	"errors"
	"path"

	"github.com/gobwas/glob"
)

// pathGlob matches slash-separated paths. "*" and "?" stay within one
// segment, "**" crosses segments.
type pathGlob []glob.Glob

// compileGlob compiles an exclusion pattern. A "**/" at the start of the
// pattern or of a segment also matches zero directories, so "**/*.ipynb"
// matches "notebook.ipynb".
func compileGlob(pattern string) (pathGlob, error) {
	if pattern == "" {
		return nil, errors.New("empty pattern")
	}
	var g pathGlob
	for _, v := range globVariants(pattern) {
		c, err := glob.Compile(v, '/')
		if err != nil {
			return nil, err
		}
		g = append(g, c)
	}
	return g, nil
}

func globVariants(pattern string) []string {
	for i := 0; i+3 <= len(pattern); i++ {
		if pattern[i:i+3] != "**/" || (i > 0 && pattern[i-1] != '/') {
			continue
		}
		var out []string
		for _, rest := range globVariants(pattern[i+3:]) {
			out = append(out, pattern[:i+3]+rest, pattern[:i]+rest)
		}
		return out
	}
	return []string{pattern}
}

func (g pathGlob) Match(p string) bool {
	for _, c := range g {
		if c.Match(p) {
			return true
		}
	}
	return false
}

// excluder decides which source-relative paths are left out of a build.
type excluder struct {
	globs []pathGlob
	// dirs are excluded along with everything below them.
	dirs []string
}

func newExcluder(patterns, dirs []string) (*excluder, error) {
	e := &excluder{}
	for _, p := range patterns {
		g, err := compileGlob(p)
		if err != nil {
			return nil, err
		}
		e.globs = append(e.globs, g)
	}
	for _, d := range dirs {
		e.dirs = append(e.dirs, path.Clean(d))
	}
	return e, nil
}

// excluded reports whether the slash-separated path rel, or any directory
// above it, is excluded.
func (e *excluder) excluded(rel string) bool {
	rel = path.Clean(rel)
	for p := rel; p != "." && p != "/"; p = path.Dir(p) {
		for _, d := range e.dirs {
			if p == d {
				return true
			}
		}
		for _, g := range e.globs {
			if g.Match(p) {
				return true
			}
		}
	}
	return false
}
