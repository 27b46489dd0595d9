// Package storage provides the string-keyed JSON document store that plays
// the part of the browser's local storage.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// Keys under which documents are persisted.
const (
	KeyPatients = "patients"
	KeyAccounts = "sehatec_users"
	KeyTheme    = "theme"
)

// ErrNotFound is returned by Get when the key has never been written.
var ErrNotFound = errors.New("storage: key not found")

// Storage is a key/value store of JSON documents. Set replaces the whole value.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// LoadJSON decodes the document under key into dst. It reports false when the key is missing.
func LoadJSON(ctx context.Context, s Storage, key string, dst interface{}) (bool, error) {
	raw, err := s.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// SaveJSON encodes v and writes it under key.
func SaveJSON(ctx context.Context, s Storage, key string, v interface{}) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, raw)
}
