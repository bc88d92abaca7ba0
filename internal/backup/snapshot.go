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

// Snapshotter снимает полную копию файла живой БД и превращает её
// в зашифрованный артефакт каталога.
//
// Снимок не согласован с параллельными писателями: копируется то,
// что лежит на диске в момент вызова.
type Snapshotter struct {
	source string
	dir    string
	prefix string
	cipher *Cipher
	now    func() time.Time

	mu   sync.Mutex
	last time.Time
}

// SnapshotterOption настраивает Snapshotter.
type SnapshotterOption func(*Snapshotter)

// WithClock подменяет источник времени (для тестов и планировщика).
func WithClock(now func() time.Time) SnapshotterOption {
	return func(s *Snapshotter) { s.now = now }
}

// NewSnapshotter создаёт Snapshotter. Без Cipher работа невозможна.
func NewSnapshotter(source, dir, prefix string, c *Cipher, opts ...SnapshotterOption) (*Snapshotter, error) {
	if c == nil {
		return nil, fmt.Errorf("cipher is not configured: %w", ErrConfiguration)
	}
	if !ValidPrefix(prefix) {
		return nil, fmt.Errorf("invalid prefix %q: %w", prefix, ErrConfiguration)
	}
	s := &Snapshotter{source: source, dir: dir, prefix: prefix, cipher: c, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Capture копирует живую БД во временный файл, шифрует копию и публикует
// артефакт. Промежуточные файлы удаляются на любом пути выхода.
// Существующий артефакт с тем же именем никогда не перезаписывается.
func (s *Snapshotter) Capture(ctx context.Context) (Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.source); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Artifact{}, fmt.Errorf("%s: %w", s.source, ErrSourceNotFound)
		}
		return Artifact{}, fmt.Errorf("stat source: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return Artifact{}, fmt.Errorf("create backup dir %s: %w", s.dir, err)
	}

	stamp := s.now().Truncate(time.Minute)
	if stamp.Before(s.last) {
		stamp = s.last
	}
	name := ArtifactName(s.prefix, stamp)
	final := filepath.Join(s.dir, name)
	if _, err := os.Lstat(final); err == nil {
		return Artifact{}, fmt.Errorf("%s: %w", name, ErrArtifactExists)
	}

	id := uuid.NewString()
	staging := filepath.Join(s.dir, ".staging-"+id+".db")
	defer os.Remove(staging)

	if err := copyFile(ctx, s.source, staging); err != nil {
		return Artifact{}, fmt.Errorf("stage snapshot: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}

	plain, err := os.ReadFile(staging)
	if err != nil {
		return Artifact{}, fmt.Errorf("read staged snapshot: %w", err)
	}
	sealed, err := s.cipher.Encrypt(plain)
	if err != nil {
		return Artifact{}, fmt.Errorf("encrypt snapshot: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}

	tmp := filepath.Join(s.dir, ".tmp-"+id+".enc")
	defer os.Remove(tmp)
	if err := writeFileSync(tmp, sealed, 0o600); err != nil {
		return Artifact{}, fmt.Errorf("write artifact: %w", err)
	}

	// link не заменяет существующий файл: при гонке двух процессов
	// на одном имени второй получает ErrArtifactExists.
	if err := os.Link(tmp, final); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return Artifact{}, fmt.Errorf("%s: %w", name, ErrArtifactExists)
		}
		return Artifact{}, fmt.Errorf("publish artifact: %w", err)
	}
	syncDir(s.dir)
	s.last = stamp

	return Artifact{Name: name, Path: final, Size: int64(len(sealed)), CreatedAt: stamp}, nil
}
