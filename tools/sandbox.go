package tools

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// resolve normalizes a remote-supplied path and re-roots it under the
// workspace. Absolute paths and ".." escapes are not rejected outright -
// models routinely hallucinate home directories and leading slashes - but
// they can never land outside the root: the path is cleaned against a
// virtual "/" first, so "../../etc/passwd" becomes <root>/etc/passwd.
func (r *Registry) resolve(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", fmt.Errorf("path is empty")
	}

	// Normalize separators, then collapse "." and ".." against a virtual
	// root so no amount of dot-dots climbs above it.
	slashed := filepath.ToSlash(p)
	cleaned := path.Clean("/" + slashed)
	rel := strings.TrimPrefix(cleaned, "/")
	if rel == "" {
		return "", fmt.Errorf("path resolves to the workspace root itself")
	}

	full := filepath.Join(r.root, filepath.FromSlash(rel))

	// Join cannot escape after the re-root above, but verify anyway before
	// touching the filesystem.
	if full != r.root && !strings.HasPrefix(full, r.root+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes workspace: %s", p)
	}

	return full, nil
}

// displayPath converts an absolute sandbox path back to the workspace-
// relative form shown to the model and the user.
func (r *Registry) displayPath(full string) string {
	rel, err := filepath.Rel(r.root, full)
	if err != nil {
		return full
	}
	return filepath.ToSlash(rel)
}
