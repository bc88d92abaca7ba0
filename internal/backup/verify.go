package backup

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

var sqliteHeader = []byte("SQLite format 3\x00")

// SQLiteVerifier проверяет целостность файла БД SQLite:
// сигнатура заголовка и PRAGMA integrity_check == "ok".
func SQLiteVerifier(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	head := make([]byte, len(sqliteHeader))
	_, err = io.ReadFull(f, head)
	_ = f.Close()
	if err != nil || !bytes.Equal(head, sqliteHeader) {
		return fmt.Errorf("not a SQLite database")
	}

	dial := gormsqlite.Dialector{DriverName: "sqlite", DSN: "file:" + path + "?mode=ro"}
	db, err := gorm.Open(dial, &gorm.Config{Logger: logger.Discard})
	if err != nil {
		return fmt.Errorf("open for integrity check: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	var result string
	if err := db.WithContext(ctx).Raw("PRAGMA integrity_check").Scan(&result).Error; err != nil {
		return fmt.Errorf("integrity check query: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}
