package theme

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

//go:embed assets/templates/*.html assets/static/*.css
var assets embed.FS

// Templates parses the built-in page templates, then the *.html files of
// each override directory. Directories earlier in overrideDirs take
// precedence, so a user's templates path can replace "header", "nav",
// "footer" or the whole "main" layout. Missing directories are skipped.
func (t *Theme) Templates(overrideDirs ...string) (*template.Template, error) {
	tmpl, err := template.New(t.Name).ParseFS(assets, "assets/templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse built-in templates: %w", err)
	}

	for i := len(overrideDirs) - 1; i >= 0; i-- {
		matches, err := filepath.Glob(filepath.Join(overrideDirs[i], "*.html"))
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			continue
		}
		if tmpl, err = tmpl.ParseFiles(matches...); err != nil {
			return nil, fmt.Errorf("failed to parse templates in %s: %w", overrideDirs[i], err)
		}
	}
	return tmpl, nil
}

// StaticFiles lists the stylesheets the theme installs, by base name.
func (t *Theme) StaticFiles() []string {
	return []string{"basic.css", t.Name + ".css"}
}

// WriteStatic copies the theme's stylesheets into dir.
func (t *Theme) WriteStatic(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	for _, name := range t.StaticFiles() {
		data, err := fs.ReadFile(assets, path.Join("assets/static", name))
		if err != nil {
			return fmt.Errorf("theme %s has no stylesheet %s: %w", t.Name, name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
			return err
		}
	}
	return nil
}
