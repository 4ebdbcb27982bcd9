package builder

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"folio/internal/config"
)

// source is a file the build will parse.
type source struct {
	Path   string // on disk
	Rel    string // slash-separated, relative to the source dir
	Suffix string
	Parser config.ParserKind
}

// slug is the output name of the page without ".html".
func (s source) slug() string {
	return strings.TrimSuffix(s.Rel, s.Suffix)
}

// matchSuffix returns the longest configured suffix name ends with.
func matchSuffix(cfg config.SiteConfig, name string) (string, bool) {
	best := ""
	for suffix := range cfg.SourceSuffix {
		if strings.HasSuffix(name, suffix) && len(name) > len(suffix) && len(suffix) > len(best) {
			best = suffix
		}
	}
	return best, best != ""
}

// collectSources walks sourceDir and returns every file with a configured
// suffix that is not excluded, sorted by relative path. When several files
// map to the same document ("intro.md" and "intro.rst") the first in that
// order is kept and the others are reported as warnings.
func collectSources(sourceDir string, cfg config.SiteConfig, ex *excluder) ([]source, int, []string, error) {
	var sources []source
	skipped := 0
	err := filepath.WalkDir(sourceDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == sourceDir {
			return nil
		}
		rel, err := filepath.Rel(sourceDir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if strings.HasPrefix(d.Name(), ".") || ex.excluded(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			skipped++
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !strings.Contains(rel, "/") && slices.Contains(config.ConfigFileNames, rel) {
			return nil
		}
		suffix, ok := matchSuffix(cfg, d.Name())
		if !ok {
			return nil
		}
		sources = append(sources, source{
			Path:   p,
			Rel:    rel,
			Suffix: suffix,
			Parser: cfg.SourceSuffix[suffix],
		})
		return nil
	})
	if err != nil {
		return nil, 0, nil, err
	}
	slices.SortFunc(sources, func(a, b source) int { return strings.Compare(a.Rel, b.Rel) })

	var warnings []string
	seen := make(map[string]string, len(sources))
	kept := sources[:0]
	for _, src := range sources {
		slug := src.slug()
		if first, ok := seen[slug]; ok {
			warnings = append(warnings, fmt.Sprintf("multiple files found for document %q: %s, %s (using %s)", slug, first, src.Rel, first))
			continue
		}
		seen[slug] = src.Rel
		kept = append(kept, src)
	}
	return kept, skipped, warnings, nil
}
