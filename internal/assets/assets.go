package assets

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// IsAsset returns true if the file has the configured asset extension.
// The comparison is case-insensitive so icon.PNG and icon.png are treated
// the same way on every platform.
func IsAsset(path, ext string) bool {
	return strings.EqualFold(filepath.Ext(path), ext)
}

// Discover finds all asset files under dir, returning their paths relative
// to dir in lexicographic order. Hidden files and directories (names
// starting with ".") are skipped. Relative paths always use forward
// slashes so ledger keys are stable across platforms.
func Discover(dir, ext string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		// Skip hidden files and directories (e.g. .git)
		if path != dir && strings.HasPrefix(info.Name(), ".") {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if info.IsDir() {
			return nil
		}

		if !IsAsset(path, ext) {
			return nil
		}

		rel, err := RelativePath(dir, path)
		if err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})

	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// RelativePath returns the slash-separated relative path from baseDir to target
func RelativePath(baseDir, target string) (string, error) {
	rel, err := filepath.Rel(baseDir, target)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}
