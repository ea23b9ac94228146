package models

import "time"

// GORM-compatible models with proper tags

// SnapshotBlobGorm represents one stored collection in the snapshot_blobs table.
type SnapshotBlobGorm struct {
	Key       string    `gorm:"primaryKey;column:key" json:"key"`
	Data      []byte    `gorm:"column:data;not null" json:"data"`
	UpdatedAt time.Time `gorm:"column:updated_at;not null" json:"updated_at"`
}

// TableName specifies the table name for SnapshotBlobGorm
func (SnapshotBlobGorm) TableName() string {
	return "snapshot_blobs"
}
