package pairing

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/desertthunder/lqx/internal/shared"
	"github.com/spf13/afero"
)

// ListAssets returns the regular, non-hidden files directly inside dir, in directory listing order.
//
// When exts is non-empty only files with one of those extensions (case-insensitive, with the dot) are kept.
func ListAssets(fs afero.Fs, dir string, exts []string) ([]string, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	var paths []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") || !entry.Mode().IsRegular() {
			continue
		}
		if len(exts) > 0 && !HasExt(name, exts) {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	return paths, nil
}

// HasExt reports whether path ends in one of exts, ignoring case.
func HasExt(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return false
	}
	for _, e := range exts {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

// CheckExt returns [shared.ErrUnsupportedExtension] unless path has one of exts.
func CheckExt(path string, exts []string) error {
	if HasExt(path, exts) {
		return nil
	}
	return fmt.Errorf("%w: %s (want one of %s)", shared.ErrUnsupportedExtension, filepath.Base(path), strings.Join(exts, ", "))
}
