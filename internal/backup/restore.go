package backup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Swapper выполняет замену файла живой БД в эксклюзивной секции записи.
// replace вызывается ровно один раз, пока никто другой не пишет в хранилище.
// Если replace прошёл, а последующие шаги нет, ошибка оборачивает ErrSwapCommitted.
type Swapper interface {
	Swap(ctx context.Context, replace func() error) error
}

// LockSwapper не держит соединений, только взаимное исключение.
// Используется CLI, когда процесс сам не держит БД открытой.
type LockSwapper struct {
	mu sync.Mutex
}

func (l *LockSwapper) Swap(ctx context.Context, replace func() error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return replace()
}

// Verifier проверяет расшифрованный файл перед подменой.
type Verifier func(ctx context.Context, path string) error

type RestoreResult struct {
	Artifact   string    `json:"artifact"`
	Bytes      int64     `json:"bytes"`
	RestoredAt time.Time `json:"restored_at"`
}

// Restorer заменяет живую БД содержимым выбранного артефакта.
// Операция перезаписывает данные, появившиеся после снятия артефакта.
type Restorer struct {
	catalog *Catalog
	live    string
	cipher  *Cipher
	swapper Swapper
	verify  Verifier
	now     func() time.Time
}

// RestorerOption настраивает Restorer.
type RestorerOption func(*Restorer)

// WithSwapper задаёт владельца эксклюзивной секции (обычно repo.Store).
func WithSwapper(s Swapper) RestorerOption {
	return func(r *Restorer) { r.swapper = s }
}

// WithVerifier включает проверку расшифрованного файла до подмены.
func WithVerifier(v Verifier) RestorerOption {
	return func(r *Restorer) { r.verify = v }
}

func NewRestorer(catalog *Catalog, live string, c *Cipher, opts ...RestorerOption) (*Restorer, error) {
	if c == nil {
		return nil, fmt.Errorf("cipher is not configured: %w", ErrConfiguration)
	}
	r := &Restorer{catalog: catalog, live: live, cipher: c, swapper: &LockSwapper{}, now: time.Now}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// Restore расшифровывает артефакт name и атомарно подменяет им живую БД:
// запись во временный файл рядом с живым, fsync, rename поверх.
// При любой ошибке до rename живая БД остаётся нетронутой, артефакт не удаляется.
func (r *Restorer) Restore(ctx context.Context, name string) (RestoreResult, error) {
	plain, err := r.open(name)
	if err != nil {
		return RestoreResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return RestoreResult{}, err
	}

	liveDir := filepath.Dir(r.live)
	if err := os.MkdirAll(liveDir, 0o700); err != nil {
		return RestoreResult{}, fmt.Errorf("create store dir: %w", err)
	}
	tmp := filepath.Join(liveDir, ".restore-"+uuid.NewString()+".tmp")
	defer os.Remove(tmp)

	if err := writeFileSync(tmp, plain, 0o600); err != nil {
		return RestoreResult{}, fmt.Errorf("stage restored store: %w", err)
	}
	if r.verify != nil {
		if err := r.verify(ctx, tmp); err != nil {
			return RestoreResult{}, fmt.Errorf("%s: %w: %w", name, ErrCorruptArtifact, err)
		}
	}
	if err := ctx.Err(); err != nil {
		return RestoreResult{}, err
	}

	err = r.swapper.Swap(ctx, func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := os.Rename(tmp, r.live); err != nil {
			return fmt.Errorf("swap live store: %w", err)
		}
		// журналы старой БД не должны применяться к новой
		for _, ext := range []string{"-wal", "-shm", "-journal"} {
			_ = os.Remove(r.live + ext)
		}
		syncDir(liveDir)
		return nil
	})
	res := RestoreResult{Artifact: name, Bytes: int64(len(plain)), RestoredAt: r.now().UTC()}
	if err != nil {
		if errors.Is(err, ErrSwapCommitted) {
			return res, err
		}
		return RestoreResult{}, err
	}
	return res, nil
}

// Verify проверяет, что артефакт читается и расшифровывается текущим ключом,
// не трогая живую БД.
func (r *Restorer) Verify(ctx context.Context, name string) (Artifact, error) {
	a, err := r.catalog.Stat(name)
	if err != nil {
		return Artifact{}, err
	}
	plain, err := r.open(name)
	if err != nil {
		return Artifact{}, err
	}
	if r.verify == nil {
		return a, nil
	}

	tmp := filepath.Join(r.catalog.Dir(), ".verify-"+uuid.NewString()+".tmp")
	defer os.Remove(tmp)
	if err := writeFileSync(tmp, plain, 0o600); err != nil {
		return Artifact{}, fmt.Errorf("stage verification copy: %w", err)
	}
	if err := r.verify(ctx, tmp); err != nil {
		return Artifact{}, fmt.Errorf("%s: %w: %w", name, ErrCorruptArtifact, err)
	}
	return a, nil
}

// open проверяет имя, читает и расшифровывает артефакт.
func (r *Restorer) open(name string) ([]byte, error) {
	path, err := resolve(r.catalog.Dir(), name)
	if err != nil {
		return nil, err
	}
	// Lstat: ссылка может вести за пределы каталога
	info, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", name, ErrArtifactNotFound)
		}
		return nil, fmt.Errorf("stat artifact: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s is not a regular file: %w", name, ErrInvalidArtifact)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	plain, err := r.cipher.Decrypt(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", name, ErrCorruptArtifact, err)
	}
	return plain, nil
}
