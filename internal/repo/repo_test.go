package repo

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestStore открывает файловую SQLite (modernc.org/sqlite) во временном каталоге.
// Store.Swap работает с файлом, поэтому :memory: здесь не подходит.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore(filepath.Join(t.TempDir(), "cards.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}
