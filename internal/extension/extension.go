// Package extension lists the extensions known to the build environment and
// what each contributes to a build.
package extension

import (
	"errors"
	"fmt"
	"slices"

	"folio/internal/config"
)

var (
	ErrUnknownExtension   = errors.New("unknown extension")
	ErrDuplicateExtension = errors.New("extension listed twice")
)

// MathJaxURL is the script loaded on every page when sphinx.ext.mathjax is enabled.
const MathJaxURL = "https://cdn.jsdelivr.net/npm/mathjax@3/es5/tex-mml-chtml.js"

// Extension describes a known extension.
type Extension struct {
	ID          string
	Description string
	// Parsers are the parser kinds the extension registers.
	Parsers []config.ParserKind
	// HeadScripts are script URLs added to every page's head.
	HeadScripts []string
}

var known = map[string]Extension{
	"myst_parser": {
		ID:          "myst_parser",
		Description: "Markdown sources",
		Parsers:     []config.ParserKind{config.ParserMarkdown},
	},
	"sphinx.ext.mathjax": {
		ID:          "sphinx.ext.mathjax",
		Description: "MathJax rendering of equations",
		HeadScripts: []string{MathJaxURL},
	},
	// Docstring extensions are accepted so shared configurations build, but
	// a Go-rendered site has no Python modules to document.
	"sphinx.ext.autodoc": {
		ID:          "sphinx.ext.autodoc",
		Description: "API documentation from docstrings",
	},
	"sphinx.ext.napoleon": {
		ID:          "sphinx.ext.napoleon",
		Description: "Google and NumPy style docstrings",
	},
}

// builtinParsers are available without any extension.
var builtinParsers = []config.ParserKind{config.ParserRestructuredText}

// Lookup returns the known extension id.
func Lookup(id string) (Extension, error) {
	ext, ok := known[id]
	if !ok {
		return Extension{}, fmt.Errorf("%w %q", ErrUnknownExtension, id)
	}
	return ext, nil
}

// IDs lists the known extensions in sorted order.
func IDs() []string {
	var keys []string
	for k := range known {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Set is an ordered collection of enabled extensions.
type Set struct {
	exts []Extension
}

// Resolve looks up every id, keeping their order. Every unknown or repeated
// id is reported in the returned error.
func Resolve(ids []string) (*Set, error) {
	var errs []error
	seen := make(map[string]bool, len(ids))
	s := &Set{}
	for _, id := range ids {
		if seen[id] {
			errs = append(errs, fmt.Errorf("%w: %q", ErrDuplicateExtension, id))
			continue
		}
		seen[id] = true
		ext, err := Lookup(id)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		s.exts = append(s.exts, ext)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return s, nil
}

// Extensions returns the enabled extensions in configuration order.
func (s *Set) Extensions() []Extension {
	return slices.Clone(s.exts)
}

// Provides reports whether kind is built in or registered by an enabled extension.
func (s *Set) Provides(kind config.ParserKind) bool {
	if slices.Contains(builtinParsers, kind) {
		return true
	}
	for _, ext := range s.exts {
		if slices.Contains(ext.Parsers, kind) {
			return true
		}
	}
	return false
}

// HeadScripts collects the head scripts of every enabled extension.
func (s *Set) HeadScripts() []string {
	var out []string
	for _, ext := range s.exts {
		out = append(out, ext.HeadScripts...)
	}
	return out
}
