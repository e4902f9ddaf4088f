package tools

import (
	"fmt"
	"os"
	"unicode/utf8"
)

// maxReadBytes caps how much of a file is returned to the model.
const maxReadBytes = 256 * 1024

func (r *Registry) readFile(args map[string]any) (string, error) {
	rawPath, err := stringArg(args, "path")
	if err != nil {
		return "", err
	}

	full, err := r.resolve(rawPath)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(full)
	if os.IsNotExist(err) {
		// A missing file is an answer, not a failure.
		return fmt.Sprintf("file not found: %s", r.displayPath(full)), nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", r.displayPath(full), err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory, not a file", r.displayPath(full))
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", r.displayPath(full), err)
	}

	truncated := false
	if len(data) > maxReadBytes {
		data = data[:maxReadBytes]
		truncated = true
	}

	if !utf8.Valid(data) {
		return "", fmt.Errorf("%s is not a text file", r.displayPath(full))
	}

	content := string(data)
	if truncated {
		content += fmt.Sprintf("\n\n[truncated at %d bytes]", maxReadBytes)
	}
	return content, nil
}
