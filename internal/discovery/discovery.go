// Package discovery finds the git repositories under a root directory and the
// workflow files inside each of them.
package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Repository is a git checkout found on disk.
type Repository struct {
	Name string
	Dir  string
}

// Repositories returns the non-hidden direct subdirectories of root that
// contain a .git entry, sorted by name. When root is itself a repository it is
// the only result.
func Repositories(root string) ([]Repository, error) {
	root = filepath.Clean(root)
	if isRepository(root) {
		return []Repository{{Name: filepath.Base(root), Dir: root}}, nil
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("discovery: read %s: %w", root, err)
	}
	var repos []Repository
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		dir := filepath.Join(root, name)
		if isRepository(dir) {
			repos = append(repos, Repository{Name: name, Dir: dir})
		}
	}
	sort.Slice(repos, func(i, j int) bool { return repos[i].Name < repos[j].Name })
	return repos, nil
}

// WorkflowFiles lists the *.yml and *.yaml files directly inside
// repoDir/workflowsDir, sorted. A missing directory yields no files.
func WorkflowFiles(repoDir, workflowsDir string) ([]string, error) {
	dir := filepath.Join(repoDir, filepath.FromSlash(workflowsDir))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("discovery: read %s: %w", dir, err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if !isYAMLFile(entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func isRepository(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}

func isYAMLFile(name string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	return strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml")
}
