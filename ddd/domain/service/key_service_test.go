package service_test

import (
	"bytes"
	"errors"
	"testing"

	"video-service/ddd/domain/service"
	"video-service/ddd/infrastructure/keystore"
	"video-service/pkg/config"
	"video-service/pkg/errno"
)

func newKeyService(t *testing.T) *service.KeyService {
	t.Helper()
	cfg := &config.Config{}
	cfg.Storage.KeysRoot = t.TempDir()
	store, err := keystore.NewFileKeyStore(cfg)
	if err != nil {
		t.Fatalf("NewFileKeyStore: %v", err)
	}
	return service.NewKeyService(store)
}

func TestGenerateKey(t *testing.T) {
	svc := newKeyService(t)

	id1, key1, err := svc.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	if len(key1) != service.KeySize {
		t.Fatalf("key length: got %d want %d", len(key1), service.KeySize)
	}
	if id1 == "" {
		t.Fatal("empty key id")
	}

	id2, key2, err := svc.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	if id1 == id2 {
		t.Fatal("key ids must be unique")
	}
	if bytes.Equal(key1, key2) {
		t.Fatal("key bytes must differ between generations")
	}
}

func TestPersistAndRetrieveKey(t *testing.T) {
	svc := newKeyService(t)

	id, key, err := svc.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	path, err := svc.PersistKey(id, key)
	if err != nil {
		t.Fatalf("PersistKey: %v", err)
	}
	if path == "" {
		t.Fatal("empty key path")
	}

	got, err := svc.RetrieveKey(id)
	if err != nil {
		t.Fatalf("RetrieveKey: %v", err)
	}
	if !bytes.Equal(got, key) {
		t.Fatal("retrieved key bytes differ")
	}
}

func TestPersistKeyRejectsWrongSize(t *testing.T) {
	svc := newKeyService(t)
	if _, err := svc.PersistKey("k1", []byte("short")); err == nil {
		t.Fatal("expected error for wrong key size")
	}
}

func TestRetrieveMissingKey(t *testing.T) {
	svc := newKeyService(t)
	_, err := svc.RetrieveKey("no-such-key")
	if !errors.Is(err, errno.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestDeleteKeyIdempotent(t *testing.T) {
	svc := newKeyService(t)

	id, key, _ := svc.GenerateKey()
	if _, err := svc.PersistKey(id, key); err != nil {
		t.Fatalf("PersistKey: %v", err)
	}

	if err := svc.DeleteKey(id); err != nil {
		t.Fatalf("DeleteKey: %v", err)
	}
	if err := svc.DeleteKey(id); err != nil {
		t.Fatalf("second DeleteKey must be a no-op: %v", err)
	}
	if _, err := svc.RetrieveKey(id); err == nil {
		t.Fatal("key must be gone after delete")
	}
}
