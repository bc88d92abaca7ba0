package backup

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration фатальна при старте: нет ключа или неверные параметры.
	ErrConfiguration = errors.New("backup configuration error")

	ErrSourceNotFound   = errors.New("source store not found")
	ErrArtifactNotFound = errors.New("backup artifact not found")
	// ErrInvalidArtifact возвращается до любого обращения к диску.
	ErrInvalidArtifact = errors.New("invalid backup artifact name")
	ErrCorruptArtifact = errors.New("corrupt backup artifact")
	// ErrArtifactExists: два снимка в одну минуту.
	ErrArtifactExists = errors.New("backup artifact already exists")
	// ErrSwapCommitted: файл живой БД уже заменён, но хранилище не удалось
	// открыть заново. Восстановление состоялось, откатывать нечего.
	ErrSwapCommitted = errors.New("live store replaced but could not be reopened")

	ErrIntegrity = errors.New("ciphertext integrity check failed")
	// ErrKeyMismatch является частным случаем ErrIntegrity.
	ErrKeyMismatch = fmt.Errorf("ciphertext was produced with a different key: %w", ErrIntegrity)
)
