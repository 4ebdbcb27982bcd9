package util

import (
	"path"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ComputeBaseHref calculates the relative path to the site root
// so that CSS/JS links work correctly for pages at any depth.
// For example, a page at guide/a/b.md would get a BaseHref of "../../".
// relPath is slash-separated.
func ComputeBaseHref(relPath string) string {
	dir := path.Dir(relPath)
	if dir == "." {
		return ""
	}
	return strings.Repeat("../", strings.Count(dir, "/")+1)
}

var titleCaser = cases.Title(language.English)

// TitleFromName turns a file or directory name such as "getting_started" or
// "data-pipelines" into a display title.
func TitleFromName(name string) string {
	name = strings.NewReplacer("_", " ", "-", " ").Replace(name)
	return titleCaser.String(strings.Join(strings.Fields(name), " "))
}

// Slugify lowercases s and joins its words with dashes.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, c := range strings.ToLower(s) {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b.WriteRune(c)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
