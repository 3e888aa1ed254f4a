package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// logExtensions are the file types picked up when a directory is given.
var logExtensions = map[string]bool{
	".log":  true,
	".txt":  true,
	".gz":   true,
	".zst":  true,
	".zstd": true,
}

// ExpandInputs expands file paths, glob patterns and directories into a
// deduplicated, sorted list of files. Directories contribute their log
// files (one level deep). Patterns that match nothing are returned as-is
// so that the caller reports a file-not-found error for them.
func ExpandInputs(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var result []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			result = append(result, p)
		}
	}

	for _, pattern := range patterns {
		if info, err := os.Stat(pattern); err == nil && info.IsDir() {
			files, err := dirLogFiles(pattern)
			if err != nil {
				return nil, err
			}
			for _, f := range files {
				add(f)
			}
			continue
		}

		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			add(pattern)
			continue
		}
		for _, match := range matches {
			add(match)
		}
	}

	sort.Strings(result)
	return result, nil
}

func dirLogFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if logExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}
