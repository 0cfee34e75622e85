package config

import (
	"log"
	"os"
	"strconv"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
		Env  string `yaml:"env"`
	} `yaml:"server"`

	Database struct {
		Driver string `yaml:"driver"` // postgres, mysql
		DSN    string `yaml:"dsn"`
	} `yaml:"database"`

	JWT struct {
		Secret string `yaml:"secret"`
		TTL    int    `yaml:"ttl"` // minutes
	} `yaml:"jwt"`

	Storage struct {
		Type      string `yaml:"type"`       // local, s3
		BasePath  string `yaml:"base_path"`  // For local storage
		BaseURL   string `yaml:"base_url"`   // Public URL base
		Bucket    string `yaml:"bucket"`     // For S3/R2
		Region    string `yaml:"region"`     // For S3
		AccessKey string `yaml:"access_key"` // For S3/R2
		SecretKey string `yaml:"secret_key"` // For S3/R2
		Endpoint  string `yaml:"endpoint"`   // For R2/MinIO or custom S3
	} `yaml:"storage"`

	Upload struct {
		StagingDir       string `yaml:"staging_dir"`        // Chunk staging root
		DefaultChunkSize int64  `yaml:"default_chunk_size"` // Bytes, when the client omits chunk_size
		TaskRetention    int    `yaml:"task_retention"`     // Hours before terminal tasks are swept
		AbandonAfter     int    `yaml:"abandon_after"`      // Hours before stale open tasks are swept
		SweepInterval    int    `yaml:"sweep_interval"`     // Minutes between cleanup runs
	} `yaml:"upload"`

	// Defaults seeds the site configuration on first start. Runtime values
	// live in the config table and are read through ConfigService.
	Defaults DefaultsConfig `yaml:"defaults"`

	FirstAdminUsername string `yaml:"first_admin_username"`
	FirstAdminPassword string `yaml:"first_admin_password"`
}

type DefaultsConfig struct {
	AllowRegistration bool   `yaml:"allow_registration"`
	MaxFileSize       int64  `yaml:"max_file_size"`   // Per-file bytes
	MaxTotalFiles     int    `yaml:"max_total_files"` // Per-user file count
	MaxTotalSize      int64  `yaml:"max_total_size"`  // Per-user cumulative bytes
	Theme             string `yaml:"theme"`           // light, dark, auto
	Language          string `yaml:"language"`        // en, zh, auto
}

var AppConfig *Config

// LoadConfig reads config.yaml, or falls back to environment variables when
// DATABASE_URL is set (test/deployment mode).
func LoadConfig() {
	var cfg Config

	dbURL := os.Getenv("DATABASE_URL")

	if dbURL == "" {
		configPath := os.Getenv("CONFIG_PATH")
		if configPath == "" {
			configPath = "config/config.yaml"
		}

		f, err := os.Open(configPath)
		if err != nil {
			log.Fatalf("Failed to open config file at %s: %v", configPath, err)
		}
		defer f.Close()

		decoder := yaml.NewDecoder(f)
		if err := decoder.Decode(&cfg); err != nil {
			log.Fatalf("Failed to parse config file at %s: %v", configPath, err)
		}

		applyDefaults(&cfg)
		AppConfig = &cfg
		return
	}

	cfg.Database.Driver = envOr("DATABASE_DRIVER", "postgres")
	cfg.Database.DSN = dbURL
	cfg.Server.Env = envOr("SERVER_ENV", "development")
	cfg.Server.Port, _ = strconv.Atoi(envOr("SERVER_PORT", "8080"))
	cfg.JWT.Secret = os.Getenv("JWT_SECRET")
	cfg.JWT.TTL = 60

	cfg.Storage.Type = envOr("STORAGE_TYPE", "local")
	cfg.Storage.BasePath = envOr("STORAGE_BASE_PATH", "./uploads")
	cfg.Storage.BaseURL = "/api/v1/files"

	cfg.FirstAdminUsername = os.Getenv("FIRST_ADMIN_USERNAME")
	cfg.FirstAdminPassword = os.Getenv("FIRST_ADMIN_PASSWORD")

	applyDefaults(&cfg)
	AppConfig = &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Upload.StagingDir == "" {
		cfg.Upload.StagingDir = "./uploads/temp"
	}
	if cfg.Upload.DefaultChunkSize == 0 {
		cfg.Upload.DefaultChunkSize = 5 * 1024 * 1024 // 5MB
	}
	if cfg.Upload.TaskRetention == 0 {
		cfg.Upload.TaskRetention = 24
	}
	if cfg.Upload.AbandonAfter == 0 {
		cfg.Upload.AbandonAfter = 48
	}
	if cfg.Upload.SweepInterval == 0 {
		cfg.Upload.SweepInterval = 60
	}
	if cfg.Defaults.MaxFileSize == 0 {
		cfg.Defaults.MaxFileSize = 1024 * 1024 * 1024 // 1GB
	}
	if cfg.Defaults.MaxTotalFiles == 0 {
		cfg.Defaults.MaxTotalFiles = 100
	}
	if cfg.Defaults.MaxTotalSize == 0 {
		cfg.Defaults.MaxTotalSize = 10 * 1024 * 1024 * 1024 // 10GB
	}
	if cfg.Defaults.Theme == "" {
		cfg.Defaults.Theme = "light"
	}
	if cfg.Defaults.Language == "" {
		cfg.Defaults.Language = "en"
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func GetConfig() *Config {
	if AppConfig == nil {
		LoadConfig()
	}
	return AppConfig
}
