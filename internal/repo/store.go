package repo

import (
	"CardKeeper/internal/backup"
	"CardKeeper/internal/model"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

var ErrStoreClosed = errors.New("store is closed")

// InitDB открывает файл SQLite (modernc.org/sqlite) и применяет миграции.
func InitDB(path string) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := gorm.Open(gormsqlite.Dialector{DriverName: "sqlite", DSN: dsn}, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&model.User{}); err != nil {
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	return db, nil
}

// Store владеет соединением с живой БД. Обычные операции выполняются
// под разделяемой блокировкой, подмена файла БД под эксклюзивной.
type Store struct {
	path string
	open func(path string) (*gorm.DB, error)

	mu sync.RWMutex
	db *gorm.DB
}

// OpenStore открывает живую БД по пути path.
func OpenStore(path string) (*Store, error) {
	db, err := InitDB(path)
	if err != nil {
		return nil, err
	}
	return &Store{path: path, open: InitDB, db: db}, nil
}

// NewStore оборачивает уже открытую БД; open используется для переоткрытия после Swap.
func NewStore(path string, db *gorm.DB, open func(path string) (*gorm.DB, error)) *Store {
	return &Store{path: path, open: open, db: db}
}

// Path возвращает путь к файлу живой БД.
func (s *Store) Path() string { return s.path }

// With выполняет fn с текущим соединением. Пока fn работает, Swap ждёт.
func (s *Store) With(ctx context.Context, fn func(db *gorm.DB) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return ErrStoreClosed
	}
	return fn(s.db.WithContext(ctx))
}

// Swap закрывает пул соединений, вызывает replace (подмена файла)
// и переоткрывает БД. Выполняется эксклюзивно.
// Если replace вернул ошибку, БД переоткрывается на прежнем файле.
// Если replace прошёл, а переоткрыть не удалось, ошибка оборачивает
// backup.ErrSwapCommitted и хранилище остаётся закрытым.
func (s *Store) Swap(ctx context.Context, replace func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.closeLocked(); err != nil {
		return fmt.Errorf("close store before swap: %w", err)
	}

	replaceErr := replace()

	if s.open == nil {
		if replaceErr == nil {
			return fmt.Errorf("%w: %w", backup.ErrSwapCommitted, ErrStoreClosed)
		}
		return errors.Join(replaceErr, ErrStoreClosed)
	}
	db, err := s.open(s.path)
	if err != nil {
		if replaceErr == nil {
			return fmt.Errorf("reopen store: %w: %w", backup.ErrSwapCommitted, err)
		}
		return errors.Join(replaceErr, fmt.Errorf("reopen store: %w", err))
	}
	s.db = db
	return replaceErr
}

// Close закрывает соединение с БД.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *Store) closeLocked() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	s.db = nil
	return sqlDB.Close()
}
