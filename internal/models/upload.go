package models

import (
	"time"

	"gorm.io/datatypes"
)

// UploadTask is one resumable chunked-upload session, keyed by owner and
// content hash. At most one non-terminal task exists per (user, hash).
type UploadTask struct {
	BaseModel
	UserID      string `gorm:"type:uuid;not null;index:idx_task_user_hash"`
	FileHash    string `gorm:"size:128;not null;index:idx_task_user_hash"`
	FileName    string `gorm:"size:255;not null"`
	FileSize    int64  `gorm:"not null"`
	ContentType string `gorm:"size:100;not null"`

	// Chunk geometry declared at announce time. ChunksCount is derived as
	// ceil(FileSize / ChunkSize) and never mutated afterwards.
	ChunkSize   int64 `gorm:"not null"`
	ChunksCount int64 `gorm:"not null"`

	PoolID          string `gorm:"size:36"`
	BundleID        string `gorm:"size:36"`
	EncryptPassword string `gorm:"size:150"` // opaque at this layer

	// ExpiredAt is the file expiry resolved from the share options at
	// announce time; copied onto the File at materialization.
	ExpiredAt *time.Time `gorm:"index"`

	// ShareOptions is the serialized pending share metadata, resolved into
	// the File record when assembly succeeds.
	ShareOptions datatypes.JSON

	Status TaskStatus `gorm:"type:varchar(20);not null;default:'uploading';index"`

	// FileID points forward to the File this task produced, set in the same
	// transaction as the completed transition.
	FileID *string `gorm:"type:uuid"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

// UploadChunk records that one chunk index of one task has been durably
// stored. Written only after the bytes are flushed to staging.
type UploadChunk struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement"`
	TaskID     string `gorm:"type:uuid;not null;uniqueIndex:idx_chunk_task_index"`
	ChunkIndex int64  `gorm:"not null;uniqueIndex:idx_chunk_task_index"`
	ChunkSize  int64  `gorm:"not null"`
	UploadedAt time.Time `gorm:"autoCreateTime"`

	Task *UploadTask `gorm:"foreignKey:TaskID" json:"-"`
}
