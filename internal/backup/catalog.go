package backup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

type Page struct {
	Items    []string `json:"items"`
	Page     int      `json:"page"`
	PageSize int      `json:"page_size"`
	Total    int      `json:"total"`
}

// Catalog читает артефакты прямо из каталога бэкапов. Порядок совпадает с порядком имён,
// что для одного префикса означает хронологический порядок.
type Catalog struct {
	dir string
}

func NewCatalog(dir string) *Catalog {
	return &Catalog{dir: dir}
}

// Dir возвращает каталог артефактов.
func (c *Catalog) Dir() string { return c.dir }

// Names возвращает все имена артефактов. Отсутствующий каталог не ошибка.
func (c *Catalog) Names() ([]string, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("read backup dir %s: %w", c.dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if ValidateName(e.Name()) != nil {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// List возвращает страницу page (с 1) размером pageSize.
// Страница за пределами списка пустая.
func (c *Catalog) List(page, pageSize int) (Page, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	names, err := c.Names()
	if err != nil {
		return Page{}, err
	}

	res := Page{Items: []string{}, Page: page, PageSize: pageSize, Total: len(names)}
	start := (page - 1) * pageSize
	if start >= len(names) {
		return res, nil
	}
	end := start + pageSize
	if end > len(names) {
		end = len(names)
	}
	res.Items = append(res.Items, names[start:end]...)
	return res, nil
}

// Stat возвращает сведения об артефакте по имени.
func (c *Catalog) Stat(name string) (Artifact, error) {
	p, err := resolve(c.dir, name)
	if err != nil {
		return Artifact{}, err
	}
	info, err := os.Lstat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Artifact{}, fmt.Errorf("%s: %w", name, ErrArtifactNotFound)
		}
		return Artifact{}, err
	}
	if !info.Mode().IsRegular() {
		return Artifact{}, fmt.Errorf("%s is not a regular file: %w", name, ErrInvalidArtifact)
	}
	ts, _ := ParseTimestamp(name)
	return Artifact{Name: name, Path: filepath.Clean(p), Size: info.Size(), CreatedAt: ts}, nil
}
