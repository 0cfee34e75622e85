package dto

import "time"

// ShareOptions is the pending share metadata attached to an upload task at
// announce time and resolved into the file record on completion.
type ShareOptions struct {
	ShareType     string `json:"share_type" validate:"omitempty,is-share-type"`
	AllowView     *bool  `json:"allow_view"`
	AllowDownload *bool  `json:"allow_download"`
	AllowEdit     *bool  `json:"allow_edit"`
	Password      string `json:"password" validate:"omitempty,max=150"`
	ExpiryType    string `json:"expiry_type" validate:"omitempty,is-expire-mode"`
	ExpiryHours   int    `json:"expiry_hours" validate:"omitempty,gt=0"`
	CustomExpiry  string `json:"custom_expiry"`
	AllowedUsers  string `json:"allowed_users"` // one username per line
	Description   string `json:"description"`
	Tags          string `json:"tags" validate:"omitempty,max=500"`
}

type CreateUploadTaskRequest struct {
	Hash            string        `json:"hash" validate:"required,min=8,max=128"`
	FileName        string        `json:"file_name" validate:"required,max=255"`
	FileSize        int64         `json:"file_size" validate:"required,gt=0"`
	ContentType     string        `json:"content_type" validate:"required,max=100"`
	ChunkSize       int64         `json:"chunk_size" validate:"omitempty,gte=1"`
	PoolID          string        `json:"pool_id" validate:"omitempty,max=36"`
	BundleID        string        `json:"bundle_id" validate:"omitempty,max=36"`
	EncryptPassword string        `json:"encrypt_password" validate:"omitempty,max=150"`
	ShareOptions    *ShareOptions `json:"share_options"`
}

type ExistingFileInfo struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	Size       int64     `json:"size"`
	UploadTime time.Time `json:"upload_time"`
}

type CreateUploadTaskResponse struct {
	FileExists  bool              `json:"file_exists"`
	File        *ExistingFileInfo `json:"file,omitempty"`
	TaskID      string            `json:"task_id,omitempty"`
	ChunkSize   int64             `json:"chunk_size,omitempty"`
	ChunksCount int64             `json:"chunks_count,omitempty"`

	// ReceivedChunks lists the indices already recorded when an open task is
	// resumed, so the client re-sends only what is missing.
	ReceivedChunks []int64 `json:"received_chunks,omitempty"`
}

type CompleteUploadResponse struct {
	FileID   string `json:"file_id"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}
