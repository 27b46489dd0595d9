package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// StorageEntry is one key of the key/value document store backing the repositories.
type StorageEntry struct {
	gorm.Model
	Key   string         `json:"key" gorm:"column:storage_key;type:varchar(191);uniqueIndex;not null"`
	Value datatypes.JSON `json:"value" gorm:"column:value;type:json"`
}
