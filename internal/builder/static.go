package builder

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// StaticDir is the output directory, relative to the site root, that theme
// stylesheets and html_static_path entries are copied into.
const StaticDir = "_static"

// copyStaticAssets copies each static path into dst. A directory has its
// contents copied; a file is copied by name. Missing entries are logged
// and skipped.
func copyStaticAssets(sourceDir string, entries []string, dst string) (int, error) {
	copied := 0
	for _, entry := range entries {
		src := filepath.Join(sourceDir, filepath.FromSlash(entry))
		info, err := os.Stat(src)
		if errors.Is(err, os.ErrNotExist) {
			slog.Warn("html_static_path entry does not exist", "path", entry)
			continue
		}
		if err != nil {
			return copied, err
		}
		if !info.IsDir() {
			if err := copyFile(src, filepath.Join(dst, info.Name())); err != nil {
				return copied, err
			}
			copied++
			continue
		}
		err = filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if strings.HasPrefix(d.Name(), ".") && p != src {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(src, p)
			if err != nil {
				return err
			}
			if err := copyFile(p, filepath.Join(dst, rel)); err != nil {
				return err
			}
			copied++
			return nil
		})
		if err != nil {
			return copied, err
		}
	}
	return copied, nil
}

func copyFile(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
