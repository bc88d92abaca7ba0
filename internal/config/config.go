package config

import (
	"CardKeeper/internal/backup"
	"flag"
	"fmt"
	"regexp"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	// Server-side settings
	DatabasePath  string `env:"DATABASE_PATH"`
	AuthSecret    string `env:"AUTH_SECRET"`
	AdminUsername string `env:"ADMIN_USERNAME"`
	LogFormat     string `env:"LOG_FORMAT"`

	// Backup settings
	BackupDir          string        `env:"BACKUP_DIR"`
	BackupPrefix       string        `env:"BACKUP_PREFIX"`
	BackupKey          string        `env:"BACKUP_KEY"`
	BackupTimeout      time.Duration `env:"BACKUP_TIMEOUT"`
	BackupInterval     time.Duration `env:"BACKUP_INTERVAL"`
	BackupVerifySQLite bool          `env:"BACKUP_VERIFY_SQLITE" envDefault:"true"`

	// Offsite mirror (S3-compatible). Пустой бакет — зеркало выключено.
	S3Endpoint  string `env:"S3_ENDPOINT"`
	S3Region    string `env:"S3_REGION"`
	S3Bucket    string `env:"S3_BUCKET"`
	S3AccessKey string `env:"S3_ACCESS_KEY"`
	S3SecretKey string `env:"S3_SECRET_KEY"`

	// Shared settings
	BaseURL     string `env:"BASE_URL"`
	EnableHTTPS bool   `env:"ENABLE_HTTPS"`

	ServerURL string `env:"-"`
	Version   bool   `env:"-"` // show version and exit (flag only)
	AssumeYes bool   `env:"-"` // backupctl: skip restore confirmation (flag only)
}

func NewConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{}
	_ = env.Parse(cfg)

	// флаги работают ТОЛЬКО если переменные из env не заданы
	flag.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "путь к файлу живой БД SQLite")
	flag.StringVar(&cfg.AuthSecret, "auth-secret", cfg.AuthSecret, "секрет для подписи JWT")
	flag.StringVar(&cfg.AdminUsername, "admin", cfg.AdminUsername, "username, который получает роль admin при регистрации")
	flag.StringVar(&cfg.BackupDir, "backup-dir", cfg.BackupDir, "каталог зашифрованных бэкапов")
	flag.StringVar(&cfg.BackupPrefix, "backup-prefix", cfg.BackupPrefix, "префикс имени артефакта")
	flag.DurationVar(&cfg.BackupTimeout, "backup-timeout", cfg.BackupTimeout, "таймаут операций backup/restore")
	flag.DurationVar(&cfg.BackupInterval, "backup-interval", cfg.BackupInterval, "период автоматического бэкапа (0 — выключено)")
	flag.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "address of the server (host:port)")
	flag.BoolVar(&cfg.EnableHTTPS, "https", cfg.EnableHTTPS, "enable HTTPS scheme for ServerURL")
	flag.BoolVar(&cfg.Version, "version", cfg.Version, "Show version and exit")
	flag.BoolVar(&cfg.AssumeYes, "yes", cfg.AssumeYes, "do not ask for confirmation before restore")

	flag.Parse()

	// Defaults
	if cfg.AuthSecret == "" {
		cfg.AuthSecret = "dev-secret-key"
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = "data/cards.db"
	}
	if cfg.BackupDir == "" {
		cfg.BackupDir = "backups"
	}
	if cfg.BackupPrefix == "" {
		cfg.BackupPrefix = "cards"
	}
	if cfg.BackupTimeout <= 0 {
		cfg.BackupTimeout = 5 * time.Minute
	}
	if cfg.BackupInterval < 0 {
		cfg.BackupInterval = 0
	}
	if cfg.S3Region == "" {
		cfg.S3Region = "us-east-1"
	}
	// validate BaseURL: must be in "address:port" (no scheme, no path). Otherwise use default.
	hostPortRe := regexp.MustCompile(`^[A-Za-z0-9\.\-]+:\d{1,5}$`)
	if !hostPortRe.MatchString(cfg.BaseURL) {
		cfg.BaseURL = "localhost:8081"
	}

	if cfg.EnableHTTPS {
		cfg.ServerURL = "https://" + cfg.BaseURL
	} else {
		cfg.ServerURL = "http://" + cfg.BaseURL
	}

	return cfg
}

// Validate проверяет обязательные параметры. Отсутствие ключа бэкапа —
// фатальная ошибка конфигурации, процесс не должен стартовать.
func (c *Config) Validate() error {
	if c.BackupKey == "" {
		return fmt.Errorf("BACKUP_KEY is not set: %w", backup.ErrConfiguration)
	}
	if !backup.ValidPrefix(c.BackupPrefix) {
		return fmt.Errorf("invalid BACKUP_PREFIX %q: %w", c.BackupPrefix, backup.ErrConfiguration)
	}
	return nil
}

// MirrorEnabled сообщает, настроено ли зеркалирование артефактов в S3.
func (c *Config) MirrorEnabled() bool {
	return c.S3Bucket != ""
}
