package commands

import (
	"CardKeeper/internal/config"
	"CardKeeper/internal/service"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// withTempConfig готовит конфиг с живой БД и каталогом бэкапов во временном каталоге.
func withTempConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		DatabasePath:  filepath.Join(dir, "cards.db"),
		BackupDir:     filepath.Join(dir, "backups"),
		BackupPrefix:  "cards",
		BackupKey:     "cli-test-key",
		BackupTimeout: 0,
	}
	require.NoError(t, os.WriteFile(cfg.DatabasePath, []byte("B1"), 0o600))
	return cfg
}

// перехват stdout на время теста
func withStdoutCapture(t *testing.T, fn func()) string {
	t.Helper()
	old := Out
	var buf bytes.Buffer
	Out = &buf
	defer func() { Out = old }()
	fn()
	return buf.String()
}

// withInput подменяет stdin и признак терминала.
func withInput(t *testing.T, input string, tty bool) {
	t.Helper()
	oldIn, oldTTY := In, isTerminal
	In = strings.NewReader(input)
	isTerminal = func() bool { return tty }
	t.Cleanup(func() { In, isTerminal = oldIn, oldTTY })
}

// withService считает вызовы openService.
func withService(t *testing.T) *int {
	t.Helper()
	calls := 0
	old := openService
	openService = func(ctx context.Context, cfg *config.Config) (*service.BackupService, error) {
		calls++
		return old(ctx, cfg)
	}
	t.Cleanup(func() { openService = old })
	return &calls
}
