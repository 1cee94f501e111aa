package service

import (
	"crypto/rand"
	"fmt"

	"github.com/google/uuid"

	"video-service/ddd/domain/repo"
	"video-service/pkg/errno"
)

// KeySize is the AES-128 key length in bytes.
const KeySize = 16

// KeyService mints and resolves per-asset encryption keys. It performs no
// authorization; callers must be pre-authorized by the gateway.
type KeyService struct {
	store repo.KeyStore
}

func NewKeyService(store repo.KeyStore) *KeyService {
	return &KeyService{store: store}
}

// GenerateKey produces 16 cryptographically random bytes and a unique id.
func (s *KeyService) GenerateKey() (string, []byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", nil, fmt.Errorf("generate key bytes: %w", err)
	}
	return uuid.NewString(), key, nil
}

// PersistKey writes raw key bytes to the private key store and returns the
// storage path.
func (s *KeyService) PersistKey(keyID string, key []byte) (string, error) {
	if len(key) != KeySize {
		return "", fmt.Errorf("%w: key must be %d bytes", errno.ErrInvalidParam, KeySize)
	}
	path, err := s.store.Save(keyID, key)
	if err != nil {
		return "", fmt.Errorf("%w: persist key %s: %v", errno.ErrStorageFailed, keyID, err)
	}
	return path, nil
}

// RetrieveKey loads raw key bytes by id.
func (s *KeyService) RetrieveKey(keyID string) ([]byte, error) {
	key, err := s.store.Load(keyID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errno.ErrKeyNotFound, keyID)
	}
	return key, nil
}

// DeleteKey invalidates the key. Deleting a missing key is not an error.
func (s *KeyService) DeleteKey(keyID string) error {
	return s.store.Delete(keyID)
}

// KeyPath exposes the on-disk location for the engine key-info descriptor.
func (s *KeyService) KeyPath(keyID string) string {
	return s.store.Path(keyID)
}
