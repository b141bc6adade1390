// Package secret resolves the InfluxDB password from somewhere other than
// the config file or the command line.
package secret

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNotFound is returned when the store holds no secret for a key.
var ErrNotFound = errors.New("secret not found")

// SecretStore looks up a secret by key. The macOS Keychain and plain files
// are supported; tests use an in-memory map.
type SecretStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// FileStore treats the key as a file path and returns its trimmed contents.
type FileStore struct{}

func (FileStore) Get(_ context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("read secret file: %w", err)
	}
	return []byte(strings.TrimSpace(string(data))), nil
}

// MapStore is an in-memory SecretStore.
type MapStore map[string]string

func (m MapStore) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return []byte(v), nil
}
