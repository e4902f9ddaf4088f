package tools

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/sahilm/fuzzy"
)

func (r *Registry) searchFiles(args map[string]any) (string, error) {
	pattern, err := stringArg(args, "pattern")
	if err != nil {
		return "", err
	}
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return "", fmt.Errorf("pattern is empty")
	}

	var names []string
	walkErr := filepath.WalkDir(r.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtree: skip it rather than failing the search.
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && p != r.root {
				return filepath.SkipDir
			}
			return nil
		}
		names = append(names, r.displayPath(p))
		return nil
	})
	if walkErr != nil {
		return "", fmt.Errorf("failed to search workspace: %w", walkErr)
	}

	matches := fuzzy.Find(pattern, names)
	if len(matches) == 0 {
		return fmt.Sprintf("no files matching %q", pattern), nil
	}
	if len(matches) > r.searchLimit {
		matches = matches[:r.searchLimit]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d file(s) matching %q:\n", len(matches), pattern)
	for _, m := range matches {
		b.WriteString(m.Str)
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
