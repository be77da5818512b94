// Package backup copies workflow files aside before they are rewritten. Each
// run gets its own timestamped directory so earlier backups are never
// overwritten.
package backup

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// TimestampLayout names run directories, e.g. 2025-03-01_14-05-09.
const TimestampLayout = "2006-01-02_15-04-05"

// Store is one run's backup directory.
type Store struct {
	dir string
}

// New creates <root>/<timestamp> for a run started at now.
func New(root string, now time.Time) (*Store, error) {
	dir := filepath.Join(root, now.Format(TimestampLayout))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("backup: create %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the run's backup directory.
func (s *Store) Dir() string {
	return s.dir
}

// RepositoryDir returns where a repository's backups are stored.
func (s *Store) RepositoryDir(repoName string) string {
	return filepath.Join(s.dir, repoName)
}

// Copy stores file, which must live under repoDir, at
// <run>/<repoName>/<path relative to repoDir> and returns the backup path.
func (s *Store) Copy(repoName, repoDir, file string) (string, error) {
	rel, err := filepath.Rel(repoDir, file)
	if err != nil {
		return "", fmt.Errorf("backup: relative path of %s: %w", file, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("backup: %s is outside %s", file, repoDir)
	}
	dest := filepath.Join(s.RepositoryDir(repoName), rel)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("backup: ensure dir: %w", err)
	}
	if err := copyFile(file, dest); err != nil {
		return "", fmt.Errorf("backup: copy %s: %w", rel, err)
	}
	return dest, nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
