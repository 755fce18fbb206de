package storage

import (
	"context"
	"io"

	"authkit-session/internal/crypto"
)

// EncryptedStore seals values before handing them to the wrapped Store.
// Keys are stored in the clear.
type EncryptedStore struct {
	inner     Store
	encryptor *crypto.Encryptor
}

// NewEncryptedStore wraps inner.
func NewEncryptedStore(inner Store, encryptor *crypto.Encryptor) *EncryptedStore {
	return &EncryptedStore{inner: inner, encryptor: encryptor}
}

// Get implements Store.
func (e *EncryptedStore) Get(ctx context.Context, key string) (string, bool, error) {
	sealed, ok, err := e.inner.Get(ctx, key)
	if err != nil || !ok {
		return "", ok, err
	}
	value, err := e.encryptor.Open(key, sealed)
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set implements Store.
func (e *EncryptedStore) Set(ctx context.Context, key, value string) error {
	sealed, err := e.encryptor.Seal(key, value)
	if err != nil {
		return err
	}
	return e.inner.Set(ctx, key, sealed)
}

// Delete implements Store.
func (e *EncryptedStore) Delete(ctx context.Context, key string) error {
	return e.inner.Delete(ctx, key)
}

// Close closes the wrapped store if it holds resources.
func (e *EncryptedStore) Close() error {
	if closer, ok := e.inner.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
