package tools

import (
	"fmt"
	"os"
	"path/filepath"
)

func (r *Registry) createFile(args map[string]any) (string, error) {
	rawPath, err := stringArg(args, "path")
	if err != nil {
		return "", err
	}
	content, err := stringArg(args, "content")
	if err != nil {
		return "", err
	}

	full, err := r.resolve(rawPath)
	if err != nil {
		return "", err
	}

	if info, err := os.Stat(full); err == nil && info.IsDir() {
		return "", fmt.Errorf("%s is a directory", r.displayPath(full))
	}

	if err := os.MkdirAll(filepath.Dir(full), 0700); err != nil {
		return "", fmt.Errorf("failed to create parent directories for %s: %w", r.displayPath(full), err)
	}

	// 0600 - workspace files may hold user content
	if err := os.WriteFile(full, []byte(content), 0600); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", r.displayPath(full), err)
	}

	return fmt.Sprintf("created %s (%d bytes)", r.displayPath(full), len(content)), nil
}
