package repositories

import (
	"errors"

	"fileshare/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrConfigNotFound = errors.New("config entry not found")

type ConfigRepository interface {
	Get(key string) (*models.ConfigEntry, error)
	GetAll() ([]models.ConfigEntry, error)
	Set(key, value, description string) error
}

type ConfigRepositoryImpl struct {
	db *gorm.DB
}

func NewConfigRepository(db *gorm.DB) ConfigRepository {
	return &ConfigRepositoryImpl{db: db}
}

func (r *ConfigRepositoryImpl) Get(key string) (*models.ConfigEntry, error) {
	var entry models.ConfigEntry
	err := r.db.First(&entry, "key = ?", key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}
	return &entry, nil
}

func (r *ConfigRepositoryImpl) GetAll() ([]models.ConfigEntry, error) {
	var entries []models.ConfigEntry
	err := r.db.Order("key ASC").Find(&entries).Error
	return entries, err
}

func (r *ConfigRepositoryImpl) Set(key, value, description string) error {
	entry := models.ConfigEntry{Key: key, Value: value, Description: description}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&entry).Error
}
