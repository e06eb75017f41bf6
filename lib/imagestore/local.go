package imagestore

import (
	"os"
	"path/filepath"
)

// LocalStore writes images under a media root on the local filesystem.
type LocalStore struct {
	root string
}

func NewLocalStore(root string) *LocalStore {
	return &LocalStore{root: root}
}

func (s *LocalStore) Put(path string, data []byte) (string, error) {
	full := filepath.Join(s.root, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (s *LocalStore) Delete(ref string) error {
	return os.Remove(filepath.Join(s.root, filepath.FromSlash(ref)))
}

func (s *LocalStore) Exists(ref string) bool {
	_, err := os.Stat(filepath.Join(s.root, filepath.FromSlash(ref)))
	return err == nil
}
