package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host          string
	Port          int
	PublicBaseURL string
}

type DBConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type AuthConfig struct {
	AccessSecret       string
	OccupantSessionTTL time.Duration
}

type FilesConfig struct {
	UploadsDir  string
	MaxFiles    int
	MaxBytes    int64
	ScanCommand string
}

type DisputeConfig struct {
	AccessLinkTTL       time.Duration
	VerificationCodeTTL time.Duration
}

type NotifyConfig struct {
	SMTPURL      string
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
}

type RedisConfig struct {
	Addr                    string
	Password                string
	DB                      int
	PublicRequestsPerMinute int
}

type CacheConfig struct {
	CategoryTTL time.Duration
}

type Config struct {
	Environment string
	HTTP        HTTPConfig
	DB          DBConfig
	Auth        AuthConfig
	Files       FilesConfig
	Dispute     DisputeConfig
	Notify      NotifyConfig
	Redis       RedisConfig
	Cache       CacheConfig
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("app")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("./deploy")
	v.AddConfigPath("./internal/config")

	v.AutomaticEnv()

	_ = v.ReadInConfig()

	cfg := &Config{
		Environment: v.GetString("APP_ENV"),
		HTTP: HTTPConfig{
			Host:          v.GetString("HTTP_HOST"),
			Port:          v.GetInt("HTTP_PORT"),
			PublicBaseURL: v.GetString("PUBLIC_BASE_URL"),
		},
		DB: DBConfig{
			DSN:             v.GetString("DB_DSN"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		Auth: AuthConfig{
			AccessSecret:       v.GetString("JWT_ACCESS_SECRET"),
			OccupantSessionTTL: v.GetDuration("OCCUPANT_SESSION_TTL"),
		},
		Files: FilesConfig{
			UploadsDir:  v.GetString("UPLOADS_DIR"),
			MaxFiles:    v.GetInt("UPLOAD_MAX_FILES"),
			MaxBytes:    v.GetInt64("UPLOAD_MAX_BYTES"),
			ScanCommand: v.GetString("UPLOAD_SCAN_COMMAND"),
		},
		Dispute: DisputeConfig{
			AccessLinkTTL:       v.GetDuration("ACCESS_LINK_TTL"),
			VerificationCodeTTL: v.GetDuration("VERIFICATION_CODE_TTL"),
		},
		Notify: NotifyConfig{
			SMTPURL:      v.GetString("SMTP_URL"),
			PollInterval: v.GetDuration("NOTIFY_POLL_INTERVAL"),
			BatchSize:    v.GetInt("NOTIFY_BATCH_SIZE"),
			MaxAttempts:  v.GetInt("NOTIFY_MAX_ATTEMPTS"),
		},
		Redis: RedisConfig{
			Addr:                    v.GetString("REDIS_ADDR"),
			Password:                v.GetString("REDIS_PASSWORD"),
			DB:                      v.GetInt("REDIS_DB"),
			PublicRequestsPerMinute: v.GetInt("PUBLIC_RATE_LIMIT_PER_MINUTE"),
		},
		Cache: CacheConfig{
			CategoryTTL: v.GetDuration("CATEGORY_CACHE_TTL"),
		},
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.HTTP.Host == "" {
		cfg.HTTP.Host = "0.0.0.0"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 7086
	}
	if cfg.HTTP.PublicBaseURL == "" {
		cfg.HTTP.PublicBaseURL = fmt.Sprintf("http://localhost:%d", cfg.HTTP.Port)
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.Auth.OccupantSessionTTL <= 0 {
		cfg.Auth.OccupantSessionTTL = 2 * time.Hour
	}
	if cfg.Files.UploadsDir == "" {
		cfg.Files.UploadsDir = "./uploads"
	}
	if cfg.Files.MaxFiles <= 0 {
		cfg.Files.MaxFiles = 5
	}
	if cfg.Files.MaxBytes <= 0 {
		cfg.Files.MaxBytes = 5 << 20
	}
	if cfg.Dispute.AccessLinkTTL <= 0 {
		cfg.Dispute.AccessLinkTTL = 14 * 24 * time.Hour
	}
	if cfg.Dispute.VerificationCodeTTL <= 0 {
		cfg.Dispute.VerificationCodeTTL = 10 * time.Minute
	}
	if cfg.Notify.PollInterval <= 0 {
		cfg.Notify.PollInterval = 5 * time.Second
	}
	if cfg.Notify.BatchSize <= 0 {
		cfg.Notify.BatchSize = 20
	}
	if cfg.Notify.MaxAttempts <= 0 {
		cfg.Notify.MaxAttempts = 8
	}
	if cfg.Redis.PublicRequestsPerMinute <= 0 {
		cfg.Redis.PublicRequestsPerMinute = 10
	}
	if cfg.Cache.CategoryTTL <= 0 {
		cfg.Cache.CategoryTTL = 5 * time.Minute
	}
}

func validate(cfg *Config) error {
	if cfg.DB.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	if cfg.Auth.AccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.Files.MaxFiles > 5 {
		return fmt.Errorf("UPLOAD_MAX_FILES must not exceed 5")
	}
	return nil
}
