package config

import (
	"CardKeeper/internal/backup"
	"flag"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetFlagSet создаёт новый FlagSet перед каждым вызовом NewConfig,
// чтобы избежать повторной регистрации одних и тех же флагов между тестами.
func resetFlagSet(t *testing.T) {
	t.Helper()
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	// подавляем вывод парсера флагов в тестах
	flag.CommandLine.SetOutput(os.Stderr)
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DATABASE_PATH", "AUTH_SECRET", "ADMIN_USERNAME", "LOG_FORMAT",
		"BACKUP_DIR", "BACKUP_PREFIX", "BACKUP_KEY", "BACKUP_TIMEOUT", "BACKUP_INTERVAL", "BACKUP_VERIFY_SQLITE",
		"S3_ENDPOINT", "S3_REGION", "S3_BUCKET", "S3_ACCESS_KEY", "S3_SECRET_KEY",
		"BASE_URL", "ENABLE_HTTPS",
	} {
		t.Setenv(k, "")
		_ = os.Unsetenv(k)
	}
}

func TestNewConfig_DefaultsWhenEnvEmpty(t *testing.T) {
	clearEnv(t)
	resetFlagSet(t)
	cfg := NewConfig()

	assert.Equal(t, "dev-secret-key", cfg.AuthSecret)
	assert.Equal(t, "data/cards.db", cfg.DatabasePath)
	assert.Equal(t, "backups", cfg.BackupDir)
	assert.Equal(t, "cards", cfg.BackupPrefix)
	assert.Equal(t, 5*time.Minute, cfg.BackupTimeout)
	assert.Zero(t, cfg.BackupInterval)
	assert.True(t, cfg.BackupVerifySQLite)
	assert.Equal(t, "us-east-1", cfg.S3Region)
	assert.False(t, cfg.MirrorEnabled())
	assert.Equal(t, "localhost:8081", cfg.BaseURL)
	assert.Equal(t, "http://localhost:8081", cfg.ServerURL)

	// без ключа бэкапа процесс стартовать не должен
	assert.ErrorIs(t, cfg.Validate(), backup.ErrConfiguration)
}

func TestNewConfig_FromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("BASE_URL", "example.com:443")
	t.Setenv("ENABLE_HTTPS", "true")
	t.Setenv("AUTH_SECRET", "top")
	t.Setenv("BACKUP_KEY", "k")
	t.Setenv("BACKUP_PREFIX", "prod-eu")
	t.Setenv("BACKUP_TIMEOUT", "30s")
	t.Setenv("BACKUP_INTERVAL", "1h")
	t.Setenv("BACKUP_VERIFY_SQLITE", "false")
	t.Setenv("S3_BUCKET", "offsite")

	resetFlagSet(t)
	cfg := NewConfig()

	assert.Equal(t, "https://example.com:443", cfg.ServerURL)
	assert.Equal(t, "top", cfg.AuthSecret)
	assert.Equal(t, "prod-eu", cfg.BackupPrefix)
	assert.Equal(t, 30*time.Second, cfg.BackupTimeout)
	assert.Equal(t, time.Hour, cfg.BackupInterval)
	assert.False(t, cfg.BackupVerifySQLite)
	assert.True(t, cfg.MirrorEnabled())
	require.NoError(t, cfg.Validate())
}

func TestValidate_BadPrefix(t *testing.T) {
	cfg := &Config{BackupKey: "k", BackupPrefix: "../x"}
	assert.ErrorIs(t, cfg.Validate(), backup.ErrConfiguration)
}

func TestNewConfig_InvalidBaseURLFallback(t *testing.T) {
	clearEnv(t)
	// Невалидный BASE_URL (со схемой) должен откатиться на localhost:8081
	t.Setenv("BASE_URL", "http://bad:8080")
	t.Setenv("ENABLE_HTTPS", "false")

	resetFlagSet(t)
	cfg := NewConfig()

	if cfg.BaseURL != "localhost:8081" {
		t.Fatalf("invalid BASE_URL must fallback to 'localhost:8081', got %q", cfg.BaseURL)
	}
	if !strings.HasPrefix(cfg.ServerURL, "http://localhost:8081") {
		t.Fatalf("ServerURL must reflect fallback base, got %q", cfg.ServerURL)
	}
}
