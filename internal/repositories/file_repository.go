package repositories

import (
	"errors"
	"time"

	"fileshare/internal/models"

	"gorm.io/gorm"
)

var ErrFileNotFound = errors.New("file not found")

type FileRepository interface {
	Create(file *models.File) error
	FindByID(id string) (*models.File, error)
	FindByUser(userID string, limit, offset int) ([]models.File, error)
	FindPublic(now time.Time, limit, offset int) ([]models.File, error)
	// FindByUserHashAndSize locates an existing completed upload with the
	// same content hash and byte size, for announce-time deduplication.
	FindByUserHashAndSize(userID, hash string, size int64) (*models.File, error)
	Update(file *models.File) error
	UpdateShareSettings(file *models.File) error
	Delete(id string) error
	CountByUser(userID string) (int64, error)
	SumSizeByUser(userID string) (int64, error)
	FindExpired(now time.Time, limit int) ([]models.File, error)
}

type FileRepositoryImpl struct {
	db *gorm.DB
}

func NewFileRepository(db *gorm.DB) FileRepository {
	return &FileRepositoryImpl{db: db}
}

func (r *FileRepositoryImpl) Create(file *models.File) error {
	return r.db.Create(file).Error
}

func (r *FileRepositoryImpl) FindByID(id string) (*models.File, error) {
	var file models.File
	err := r.db.Preload("User").First(&file, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}
	return &file, nil
}

func (r *FileRepositoryImpl) FindByUser(userID string, limit, offset int) ([]models.File, error) {
	var files []models.File
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").Limit(limit).Offset(offset).Find(&files).Error
	return files, err
}

func (r *FileRepositoryImpl) FindPublic(now time.Time, limit, offset int) ([]models.File, error) {
	var files []models.File
	err := r.db.Where("is_public = ?", true).
		Where("expiry_time IS NULL OR expiry_time > ?", now).
		Order("created_at DESC").Limit(limit).Offset(offset).Find(&files).Error
	return files, err
}

func (r *FileRepositoryImpl) FindByUserHashAndSize(userID, hash string, size int64) (*models.File, error) {
	// Stored filenames delimit the hash with literal underscores, which LIKE
	// treats as single-character wildcards; escape them so only real
	// delimiters match.
	pattern := "%!_" + hash + "!_%"

	var file models.File
	err := r.db.Where("user_id = ? AND size = ? AND filename LIKE ? ESCAPE '!'", userID, size, pattern).
		First(&file).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrFileNotFound
		}
		return nil, err
	}
	return &file, nil
}

func (r *FileRepositoryImpl) Update(file *models.File) error {
	return r.db.Save(file).Error
}

func (r *FileRepositoryImpl) UpdateShareSettings(file *models.File) error {
	return r.db.Model(file).Updates(map[string]interface{}{
		"is_public":      file.IsPublic,
		"share_type":     file.ShareType,
		"allow_view":     file.AllowView,
		"allow_download": file.AllowDownload,
		"allow_edit":     file.AllowEdit,
		"password":       file.Password,
		"expiry_time":    file.ExpiryTime,
		"allowed_users":  file.AllowedUsers,
		"description":    file.Description,
		"tags":           file.Tags,
	}).Error
}

func (r *FileRepositoryImpl) Delete(id string) error {
	return r.db.Delete(&models.File{}, "id = ?", id).Error
}

func (r *FileRepositoryImpl) CountByUser(userID string) (int64, error) {
	var count int64
	err := r.db.Model(&models.File{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *FileRepositoryImpl) SumSizeByUser(userID string) (int64, error) {
	var total int64
	err := r.db.Model(&models.File{}).Where("user_id = ?", userID).
		Select("COALESCE(SUM(size), 0)").Scan(&total).Error
	return total, err
}

func (r *FileRepositoryImpl) FindExpired(now time.Time, limit int) ([]models.File, error) {
	var files []models.File
	err := r.db.Where("expiry_time IS NOT NULL AND expiry_time < ?", now).
		Limit(limit).Find(&files).Error
	return files, err
}
