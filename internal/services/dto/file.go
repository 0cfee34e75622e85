package dto

import (
	"encoding/json"
	"time"

	"fileshare/internal/models"
)

type FileResponse struct {
	ID               string           `json:"id"`
	OriginalFilename string           `json:"original_filename"`
	RawFilename      string           `json:"raw_filename,omitempty"`
	Size             int64            `json:"size"`
	ContentType      string           `json:"content_type,omitempty"`
	ShareType        models.ShareType `json:"share_type"`
	IsPublic         bool             `json:"is_public"`
	AllowView        bool             `json:"allow_view"`
	AllowDownload    bool             `json:"allow_download"`
	AllowEdit        bool             `json:"allow_edit"`
	HasPassword      bool             `json:"has_password"`
	ExpiryTime       *time.Time       `json:"expiry_time,omitempty"`
	AllowedUsers     []string         `json:"allowed_users,omitempty"`
	Description      string           `json:"description,omitempty"`
	Tags             string           `json:"tags,omitempty"`
	UploadedAt       time.Time        `json:"uploaded_at"`
}

// FileURLResponse carries a direct download URL. ExpiresIn is in seconds;
// URLs from backends without signing do not actually expire.
type FileURLResponse struct {
	URL       string `json:"url"`
	ExpiresIn int64  `json:"expires_in"`
}

type FileListResponse struct {
	Files []FileResponse `json:"files"`
	Total int64          `json:"total"`
}

// UpdateShareRequest mirrors the share settings form: visibility mode,
// permission flags, optional password, expiry policy and allow-list.
type UpdateShareRequest struct {
	ShareType     string  `json:"share_type" validate:"required,is-share-type"`
	AllowView     bool    `json:"allow_view"`
	AllowDownload bool    `json:"allow_download"`
	AllowEdit     bool    `json:"allow_edit"`
	Password      string  `json:"password" validate:"omitempty,max=150"`
	ExpiryType    string  `json:"expiry_type" validate:"omitempty,is-expire-mode"`
	ExpiryHours   int     `json:"expiry_hours" validate:"omitempty,gt=0"`
	CustomExpiry  string  `json:"custom_expiry"`
	AllowedUsers  string  `json:"allowed_users"` // one username per line
	Description   *string `json:"description"`
	Tags          *string `json:"tags" validate:"omitempty,max=500"`
}

func NewFileResponse(f *models.File) *FileResponse {
	resp := &FileResponse{
		ID:               f.ID,
		OriginalFilename: f.OriginalFilename,
		RawFilename:      f.RawFilename,
		Size:             f.Size,
		ContentType:      f.ContentType,
		ShareType:        f.ShareType,
		IsPublic:         f.IsPublic,
		AllowView:        f.AllowView,
		AllowDownload:    f.AllowDownload,
		AllowEdit:        f.AllowEdit,
		HasPassword:      f.Password != "",
		ExpiryTime:       f.ExpiryTime,
		Description:      f.Description,
		Tags:             f.Tags,
		UploadedAt:       f.CreatedAt,
	}
	if len(f.AllowedUsers) > 0 {
		var users []string
		if err := json.Unmarshal(f.AllowedUsers, &users); err == nil {
			resp.AllowedUsers = users
		}
	}
	return resp
}
