package dto

import "fileshare/internal/models"

type UserResponse struct {
	ID            string          `json:"id"`
	Username      string          `json:"username"`
	Role          models.UserRole `json:"role"`
	Nickname      string          `json:"nickname,omitempty"`
	AvatarURL     string          `json:"avatar_url,omitempty"`
	Language      string          `json:"language"`
	Theme         string          `json:"theme"`
	MaxFileSize   int64           `json:"max_file_size"`
	MaxTotalFiles int             `json:"max_total_files"`
	MaxTotalSize  int64           `json:"max_total_size"`
}

type UpdateProfileRequest struct {
	Nickname  *string `json:"nickname" validate:"omitempty,max=150"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,url,max=500"`
	Language  *string `json:"language" validate:"omitempty,max=10"`
	Theme     *string `json:"theme" validate:"omitempty,oneof=light dark"`
}

type UpdateLimitsRequest struct {
	MaxFileSize   *int64 `json:"max_file_size" validate:"omitempty,gt=0"`
	MaxTotalFiles *int   `json:"max_total_files" validate:"omitempty,gt=0"`
	MaxTotalSize  *int64 `json:"max_total_size" validate:"omitempty,gt=0"`
}

type UserUsageResponse struct {
	FileCount int64 `json:"file_count"`
	TotalSize int64 `json:"total_size"`
}

func NewUserResponse(u *models.User) *UserResponse {
	return &UserResponse{
		ID:            u.ID,
		Username:      u.Username,
		Role:          u.Role,
		Nickname:      u.Nickname,
		AvatarURL:     u.AvatarURL,
		Language:      u.Language,
		Theme:         u.Theme,
		MaxFileSize:   u.MaxFileSize,
		MaxTotalFiles: u.MaxTotalFiles,
		MaxTotalSize:  u.MaxTotalSize,
	}
}
