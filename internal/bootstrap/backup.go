package bootstrap

import (
	"CardKeeper/internal/backup"
	"CardKeeper/internal/config"
	"CardKeeper/internal/service"
	"context"
	"fmt"

	"go.uber.org/zap"
)

// NewBackupService собирает конвейер бэкапов из конфигурации.
// swapper — владелец эксклюзивной секции живой БД; nil означает, что
// процесс сам не держит БД открытой (CLI).
func NewBackupService(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger, swapper backup.Swapper) (*service.BackupService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cipher, err := backup.NewCipher(cfg.BackupKey)
	if err != nil {
		return nil, err
	}

	snap, err := backup.NewSnapshotter(cfg.DatabasePath, cfg.BackupDir, cfg.BackupPrefix, cipher)
	if err != nil {
		return nil, err
	}
	catalog := backup.NewCatalog(cfg.BackupDir)

	var ropts []backup.RestorerOption
	if swapper != nil {
		ropts = append(ropts, backup.WithSwapper(swapper))
	}
	if cfg.BackupVerifySQLite {
		ropts = append(ropts, backup.WithVerifier(backup.SQLiteVerifier))
	}
	restorer, err := backup.NewRestorer(catalog, cfg.DatabasePath, cipher, ropts...)
	if err != nil {
		return nil, err
	}

	var sopts []service.BackupServiceOption
	if cfg.MirrorEnabled() {
		mirror, err := backup.NewS3Mirror(ctx, backup.S3Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			KeyPrefix: cfg.BackupPrefix,
		})
		if err != nil {
			return nil, fmt.Errorf("init s3 mirror: %w", err)
		}
		sopts = append(sopts, service.WithMirror(mirror))
	}

	return service.NewBackupService(snap, catalog, restorer, logger, cfg.BackupTimeout, sopts...), nil
}
