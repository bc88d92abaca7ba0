package backup

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const (
	// всё без этого суффикса каталог игнорирует
	Suffix = ".db.enc"
	// YYYYMMDD_HHMM
	TimestampLayout = "20060102_1504"
)

var prefixRe = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

// Artifact описывает неизменяемый зашифрованный снимок живой БД.
type Artifact struct {
	Name      string    `json:"name"`
	Path      string    `json:"-"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}

// ValidPrefix проверяет префикс имени артефакта.
func ValidPrefix(prefix string) bool {
	return prefixRe.MatchString(prefix)
}

// ArtifactName собирает имя <prefix>_<YYYYMMDD_HHMM>.db.enc.
func ArtifactName(prefix string, at time.Time) string {
	return fmt.Sprintf("%s_%s%s", prefix, at.Format(TimestampLayout), Suffix)
}

// ParseTimestamp извлекает время из имени артефакта.
func ParseTimestamp(name string) (time.Time, error) {
	base := strings.TrimSuffix(name, Suffix)
	if base == name || len(base) < len(TimestampLayout)+2 {
		return time.Time{}, fmt.Errorf("%q: %w", name, ErrInvalidArtifact)
	}
	ts := base[len(base)-len(TimestampLayout):]
	if base[len(base)-len(TimestampLayout)-1] != '_' {
		return time.Time{}, fmt.Errorf("%q: %w", name, ErrInvalidArtifact)
	}
	t, err := time.ParseInLocation(TimestampLayout, ts, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q: %w", name, ErrInvalidArtifact)
	}
	return t, nil
}

// ValidateName отвергает имена, которые могут выйти за пределы каталога
// или не являются артефактами. Вызывается до любого I/O.
func ValidateName(name string) error {
	switch {
	case name == "", name == ".", name == "..":
		return fmt.Errorf("empty or relative name: %w", ErrInvalidArtifact)
	case strings.ContainsAny(name, `/\`), strings.ContainsRune(name, 0):
		return fmt.Errorf("%q contains path separators: %w", name, ErrInvalidArtifact)
	case filepath.Base(name) != name:
		return fmt.Errorf("%q is not a plain file name: %w", name, ErrInvalidArtifact)
	case !strings.HasSuffix(name, Suffix) || len(name) == len(Suffix):
		return fmt.Errorf("%q has no %s suffix: %w", name, Suffix, ErrInvalidArtifact)
	}
	return nil
}

// resolve возвращает абсолютный путь артефакта внутри dir.
func resolve(dir, name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving backup dir: %w", err)
	}
	p := filepath.Join(absDir, name)
	rel, err := filepath.Rel(absDir, p)
	if err != nil || rel != name {
		return "", fmt.Errorf("%q escapes backup dir: %w", name, ErrInvalidArtifact)
	}
	return p, nil
}
