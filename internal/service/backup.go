package service

import (
	"CardKeeper/internal/backup"
	"CardKeeper/internal/metrics"
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// Capturer снимает зашифрованный снимок живой БД.
type Capturer interface {
	Capture(ctx context.Context) (backup.Artifact, error)
}

type Lister interface {
	List(page, pageSize int) (backup.Page, error)
}

// RestoreRunner восстанавливает и проверяет артефакты.
type RestoreRunner interface {
	Restore(ctx context.Context, name string) (backup.RestoreResult, error)
	Verify(ctx context.Context, name string) (backup.Artifact, error)
}

// BackupService обслуживает конвейер бэкапов для HTTP и CLI:
// таймауты, логирование, метрики, зеркалирование.
// Проверка прав выполняется снаружи, до вызова сервиса.
type BackupService struct {
	snap     Capturer
	catalog  Lister
	restorer RestoreRunner
	mirror   backup.Mirror
	logger   *zap.SugaredLogger
	timeout  time.Duration
}

// BackupServiceOption настраивает BackupService.
type BackupServiceOption func(*BackupService)

// WithMirror включает копирование новых артефактов во внешнее хранилище.
func WithMirror(m backup.Mirror) BackupServiceOption {
	return func(s *BackupService) { s.mirror = m }
}

func NewBackupService(snap Capturer, catalog Lister, restorer RestoreRunner, logger *zap.SugaredLogger, timeout time.Duration, opts ...BackupServiceOption) *BackupService {
	s := &BackupService{
		snap:     snap,
		catalog:  catalog,
		restorer: restorer,
		logger:   logger,
		timeout:  timeout,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *BackupService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Capture создаёт новый артефакт. Ошибка зеркала не отменяет локальный
// артефакт: она логируется и учитывается в метриках.
func (s *BackupService) Capture(ctx context.Context) (backup.Artifact, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	a, err := s.snap.Capture(ctx)
	metrics.ObserveOp("capture", start, err)
	if err != nil {
		s.logger.Errorw("backup capture failed", "error", err)
		return backup.Artifact{}, err
	}
	metrics.LastArtifactBytes.Set(float64(a.Size))
	s.logger.Infow("backup captured", "artifact", a.Name, "size", a.Size)

	if s.mirror != nil {
		mStart := time.Now()
		merr := s.mirror.Upload(ctx, a)
		metrics.ObserveOp("mirror", mStart, merr)
		if merr != nil {
			s.logger.Errorw("backup mirror upload failed", "artifact", a.Name, "error", merr)
		}
	}
	return a, nil
}

// List возвращает страницу каталога.
func (s *BackupService) List(page, pageSize int) (backup.Page, error) {
	p, err := s.catalog.List(page, pageSize)
	if err != nil {
		s.logger.Errorw("backup catalog listing failed", "error", err)
	}
	return p, err
}

// Restore подменяет живую БД содержимым артефакта. Это перезапись, а не слияние.
func (s *BackupService) Restore(ctx context.Context, name string) (backup.RestoreResult, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	res, err := s.restorer.Restore(ctx, name)
	metrics.ObserveOp("restore", start, err)
	if errors.Is(err, backup.ErrSwapCommitted) {
		s.logger.Errorw("live store replaced but not reopened, restart required", "artifact", name, "bytes", res.Bytes, "error", err)
		return res, err
	}
	if err != nil {
		if errors.Is(err, backup.ErrCorruptArtifact) {
			s.logger.Errorw("restore rejected corrupt artifact, artifact kept for inspection", "artifact", name, "error", err)
		} else {
			s.logger.Warnw("restore failed, live store untouched", "artifact", name, "error", err)
		}
		return backup.RestoreResult{}, err
	}
	s.logger.Infow("live store restored", "artifact", name, "bytes", res.Bytes)
	return res, nil
}

// Verify проверяет артефакт без изменения живой БД.
func (s *BackupService) Verify(ctx context.Context, name string) (backup.Artifact, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	a, err := s.restorer.Verify(ctx, name)
	metrics.ObserveOp("verify", start, err)
	if err != nil {
		s.logger.Warnw("artifact verification failed", "artifact", name, "error", err)
	}
	return a, err
}

// RunPeriodic снимает бэкап каждые interval до отмены ctx.
// Ошибки отдельных запусков логируются, цикл продолжается.
func (s *BackupService) RunPeriodic(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}
	s.logger.Infow("periodic backup enabled", "interval", interval.String())
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			_, _ = s.Capture(ctx)
		}
	}
}
