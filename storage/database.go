package storage

import (
	"context"

	"github.com/ariebrainware/sehatec/model"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DBStorage keeps documents in the storage_entries table.
type DBStorage struct {
	db *gorm.DB
}

// NewDBStorage migrates the storage_entries table and returns a Storage backed by it.
func NewDBStorage(db *gorm.DB) (*DBStorage, error) {
	if err := db.AutoMigrate(&model.StorageEntry{}); err != nil {
		return nil, err
	}
	return &DBStorage{db: db}, nil
}

// Get reads the document under key. A missing key is ErrNotFound and is not
// reported to the gorm logger, since every cold start reads missing keys.
func (s *DBStorage) Get(ctx context.Context, key string) ([]byte, error) {
	var entry model.StorageEntry
	res := s.db.WithContext(ctx).Where(&model.StorageEntry{Key: key}).Limit(1).Find(&entry)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return []byte(entry.Value), nil
}

func (s *DBStorage) Set(ctx context.Context, key string, value []byte) error {
	entry := model.StorageEntry{Key: key, Value: datatypes.JSON(value)}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "storage_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
}
