package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ariebrainware/sehatec/storage"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupStorage returns a DB-backed storage on a private in-memory SQLite database.
func setupStorage(t *testing.T) *storage.DBStorage {
	t.Helper()
	dsn := fmt.Sprintf("file:repository_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	s, err := storage.NewDBStorage(db)
	require.NoError(t, err)
	return s
}

var errWriteFailed = errors.New("disk full")

// flakyStorage wraps a storage and fails writes while failWrites is set.
type flakyStorage struct {
	storage.Storage
	failWrites bool
}

func (f *flakyStorage) Set(ctx context.Context, key string, value []byte) error {
	if f.failWrites {
		return errWriteFailed
	}
	return f.Storage.Set(ctx, key, value)
}
