package services

import (
	"context"
	"strconv"

	"fileshare/internal/config"
	"fileshare/internal/logger"
	"fileshare/internal/models"
	"fileshare/internal/repositories"
	"fileshare/pkg/apperrors"
)

// ConfigService exposes the site-wide configuration: registration toggle and
// the default quota triple handed to newly registered users.
type ConfigService interface {
	AllowRegistration() bool
	DefaultLimits() models.Limits
	DefaultTheme() string
	DefaultLanguage() string

	All(ctx context.Context) (map[string]string, error)
	Set(ctx context.Context, key, value string) error

	// Seed writes any missing well-known keys from the startup defaults.
	Seed(defaults config.DefaultsConfig) error
}

type ConfigServiceImpl struct {
	repo repositories.ConfigRepository
}

func NewConfigService(repo repositories.ConfigRepository) ConfigService {
	return &ConfigServiceImpl{repo: repo}
}

func (s *ConfigServiceImpl) get(key, fallback string) string {
	entry, err := s.repo.Get(key)
	if err != nil {
		return fallback
	}
	return entry.Value
}

func (s *ConfigServiceImpl) getInt64(key string, fallback int64) int64 {
	v, err := strconv.ParseInt(s.get(key, ""), 10, 64)
	if err != nil {
		return fallback
	}
	return v
}

func (s *ConfigServiceImpl) AllowRegistration() bool {
	return s.get(models.ConfigAllowRegistration, "true") == "true"
}

func (s *ConfigServiceImpl) DefaultLimits() models.Limits {
	return models.Limits{
		MaxFileSize:   s.getInt64(models.ConfigDefaultMaxFileSize, 1<<30),
		MaxTotalFiles: int(s.getInt64(models.ConfigDefaultMaxTotalFiles, 100)),
		MaxTotalSize:  s.getInt64(models.ConfigDefaultMaxTotalSize, 10<<30),
	}
}

func (s *ConfigServiceImpl) DefaultTheme() string {
	return s.get(models.ConfigDefaultTheme, "light")
}

func (s *ConfigServiceImpl) DefaultLanguage() string {
	return s.get(models.ConfigDefaultLanguage, "en")
}

func (s *ConfigServiceImpl) All(ctx context.Context) (map[string]string, error) {
	entries, err := s.repo.GetAll()
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		out[e.Key] = e.Value
	}
	return out, nil
}

func (s *ConfigServiceImpl) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return apperrors.NewBadRequestError("Config key is required")
	}
	if err := s.repo.Set(key, value, ""); err != nil {
		return apperrors.InternalError(err)
	}
	logger.CtxInfo(ctx, "site config updated", "key", key)
	return nil
}

func (s *ConfigServiceImpl) Seed(defaults config.DefaultsConfig) error {
	seed := map[string]string{
		models.ConfigAllowRegistration:    strconv.FormatBool(defaults.AllowRegistration),
		models.ConfigDefaultMaxFileSize:   strconv.FormatInt(defaults.MaxFileSize, 10),
		models.ConfigDefaultMaxTotalFiles: strconv.Itoa(defaults.MaxTotalFiles),
		models.ConfigDefaultMaxTotalSize:  strconv.FormatInt(defaults.MaxTotalSize, 10),
		models.ConfigDefaultTheme:         defaults.Theme,
		models.ConfigDefaultLanguage:      defaults.Language,
	}
	for key, value := range seed {
		if _, err := s.repo.Get(key); err == nil {
			continue
		}
		if err := s.repo.Set(key, value, "seeded at startup"); err != nil {
			return err
		}
	}
	return nil
}
