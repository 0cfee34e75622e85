package models

// ConfigEntry is one key/value pair of the site-wide configuration
// (registration toggle, default quotas, theme, language).
type ConfigEntry struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	Key         string `gorm:"size:100;uniqueIndex;not null"`
	Value       string `gorm:"type:text;not null"`
	Description string `gorm:"size:255"`
}

// Well-known configuration keys.
const (
	ConfigAllowRegistration    = "allow_registration"
	ConfigDefaultMaxFileSize   = "default_max_file_size"
	ConfigDefaultMaxTotalFiles = "default_max_total_files"
	ConfigDefaultMaxTotalSize  = "default_max_total_size"
	ConfigDefaultTheme         = "default_theme"
	ConfigDefaultLanguage      = "default_language"
	ConfigBackgroundImage      = "background_image"
	ConfigPrimaryColor         = "primary_color"
)
