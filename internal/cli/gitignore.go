package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// addGitignoreEntries appends paths missing from repoRoot/.gitignore and
// returns the entries it added.
func addGitignoreEntries(repoRoot string, paths ...string) ([]string, error) {
	gitignorePath := filepath.Join(repoRoot, ".gitignore")
	existing, err := os.ReadFile(gitignorePath)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read .gitignore: %w", err)
	}
	present := map[string]bool{}
	for _, line := range strings.Split(string(existing), "\n") {
		present[strings.TrimSpace(line)] = true
	}

	var added []string
	for _, path := range paths {
		entry, err := gitignoreEntry(repoRoot, path)
		if err != nil {
			return nil, err
		}
		if present[entry] || slices.Contains(added, entry) {
			continue
		}
		added = append(added, entry)
	}
	if len(added) == 0 {
		return nil, nil
	}

	updated := string(existing)
	if updated != "" && !strings.HasSuffix(updated, "\n") {
		updated += "\n"
	}
	updated += strings.Join(added, "\n") + "\n"
	if err := os.WriteFile(gitignorePath, []byte(updated), 0o644); err != nil {
		return nil, fmt.Errorf("write .gitignore: %w", err)
	}
	return added, nil
}

// gitignoreEntry converts path to a slash-separated path relative to the
// repo root.
func gitignoreEntry(repoRoot, path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("gitignore entry is empty")
	}
	clean := filepath.Clean(path)
	if filepath.IsAbs(clean) {
		rel, err := filepath.Rel(repoRoot, clean)
		if err != nil {
			return "", fmt.Errorf("resolve %s: %w", path, err)
		}
		clean = rel
	}
	if clean == "." || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("%q is outside the repo root", path)
	}
	return filepath.ToSlash(clean), nil
}
