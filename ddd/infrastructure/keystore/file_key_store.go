package keystore

import (
	"fmt"
	"os"
	"path/filepath"

	"video-service/pkg/config"
)

// FileKeyStore persists raw AES key bytes under a private directory outside
// the web-served tree, one file per key id.
type FileKeyStore struct {
	root string
}

func NewFileKeyStore(cfg *config.Config) (*FileKeyStore, error) {
	root := cfg.Storage.KeysRoot
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, fmt.Errorf("create keys dir: %w", err)
	}
	return &FileKeyStore{root: root}, nil
}

func (s *FileKeyStore) Path(keyID string) string {
	return filepath.Join(s.root, keyID+".key")
}

func (s *FileKeyStore) Save(keyID string, key []byte) (string, error) {
	path := s.Path(keyID)
	if err := os.WriteFile(path, key, 0o600); err != nil {
		return "", err
	}
	return path, nil
}

func (s *FileKeyStore) Load(keyID string) ([]byte, error) {
	return os.ReadFile(s.Path(keyID))
}

// Delete removes the key file; an already-absent key is not an error.
func (s *FileKeyStore) Delete(keyID string) error {
	err := os.Remove(s.Path(keyID))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
