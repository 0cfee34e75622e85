package services

import (
	"fileshare/internal/models"
	"fileshare/pkg/apperrors"
)

// Usage is a snapshot of what the user currently stores.
type Usage struct {
	FileCount int64
	TotalSize int64
}

// CheckQuota evaluates a candidate upload against the user's limits. Pure
// function of limits and a usage snapshot; callers decide when to snapshot.
// The snapshot can drift while an upload is in flight, so completion
// re-evaluates with fresh usage before materializing the file.
func CheckQuota(limits models.Limits, usage Usage, candidateSize int64) error {
	if candidateSize > limits.MaxFileSize {
		return apperrors.ErrFileTooLarge
	}
	if usage.FileCount >= int64(limits.MaxTotalFiles) {
		return apperrors.ErrFileCountExceeded
	}
	if usage.TotalSize+candidateSize > limits.MaxTotalSize {
		return apperrors.ErrTotalSizeExceeded
	}
	return nil
}
