package services

import (
	"testing"

	"fileshare/internal/models"
	"fileshare/pkg/apperrors"

	"github.com/stretchr/testify/assert"
)

func TestCheckQuota(t *testing.T) {
	t.Parallel()

	limits := models.Limits{
		MaxFileSize:   1000,
		MaxTotalFiles: 3,
		MaxTotalSize:  5000,
	}

	tests := []struct {
		name      string
		usage     Usage
		candidate int64
		want      error
	}{
		{
			name:      "fits comfortably",
			usage:     Usage{FileCount: 1, TotalSize: 1000},
			candidate: 500,
			want:      nil,
		},
		{
			name:      "single file at the limit passes",
			usage:     Usage{},
			candidate: 1000,
			want:      nil,
		},
		{
			name:      "single file over the limit",
			usage:     Usage{},
			candidate: 1001,
			want:      apperrors.ErrFileTooLarge,
		},
		{
			name:      "file count already at the limit",
			usage:     Usage{FileCount: 3, TotalSize: 0},
			candidate: 1,
			want:      apperrors.ErrFileCountExceeded,
		},
		{
			name:      "total size exactly at the limit passes",
			usage:     Usage{FileCount: 1, TotalSize: 4000},
			candidate: 1000,
			want:      nil,
		},
		{
			name:      "total size one byte over",
			usage:     Usage{FileCount: 1, TotalSize: 4001},
			candidate: 1000,
			want:      apperrors.ErrTotalSizeExceeded,
		},
		{
			name:      "file size checked before count",
			usage:     Usage{FileCount: 3, TotalSize: 5000},
			candidate: 2000,
			want:      apperrors.ErrFileTooLarge,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := CheckQuota(limits, tt.usage, tt.candidate)

			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}
