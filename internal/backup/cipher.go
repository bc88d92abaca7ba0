package backup

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const (
	keyLen   = 32 // AES-256
	keyIDLen = 8
	nonceLen = 12
)

var (
	magic    = []byte("CKB1")
	hkdfSalt = []byte("cardkeeper-backup")
	hkdfInfo = []byte("artifact-v1")
)

// headerLen — magic | keyID | nonce.
var headerLen = len(magic) + keyIDLen + nonceLen

// Cipher шифрует и расшифровывает содержимое бэкапов AES-256-GCM.
// Ключ выводится из секрета процесса через HKDF-SHA256, поэтому один и тот же
// секрет даёт один и тот же ключ между перезапусками.
// После создания Cipher неизменяем и безопасен для конкурентного использования.
type Cipher struct {
	aead  cipher.AEAD
	keyID []byte
}

// NewCipher создаёт Cipher из секрета. Секрет может быть ключом в формате
// urlsafe-base64 (32 байта) или произвольной строкой.
func NewCipher(secret string) (*Cipher, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, fmt.Errorf("empty backup key: %w", ErrConfiguration)
	}
	ikm := []byte(secret)
	if raw, err := base64.URLEncoding.DecodeString(secret); err == nil && len(raw) == keyLen {
		ikm = raw
	}

	key := make([]byte, keyLen)
	if _, err := io.ReadFull(hkdf.New(sha256.New, ikm, hkdfSalt, hkdfInfo), key); err != nil {
		return nil, fmt.Errorf("deriving backup key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}

	sum := sha256.Sum256(key)
	return &Cipher{aead: aead, keyID: sum[:keyIDLen]}, nil
}

// Encrypt возвращает magic | keyID | nonce | ciphertext+tag.
// Заголовок аутентифицируется как additional data.
func (c *Cipher) Encrypt(plaintext []byte) ([]byte, error) {
	out := make([]byte, headerLen, headerLen+len(plaintext)+c.aead.Overhead())
	copy(out, magic)
	copy(out[len(magic):], c.keyID)
	nonce := out[len(magic)+keyIDLen : headerLen]
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}
	return c.aead.Seal(out, nonce, plaintext, out[:headerLen]), nil
}

// Decrypt расшифровывает данные, полученные Encrypt.
// Повреждённый или обрезанный шифртекст даёт ErrIntegrity,
// шифртекст под другим ключом даёт ErrKeyMismatch.
func (c *Cipher) Decrypt(data []byte) ([]byte, error) {
	if len(data) < headerLen+c.aead.Overhead() {
		return nil, fmt.Errorf("ciphertext too short: %w", ErrIntegrity)
	}
	if !bytes.Equal(data[:len(magic)], magic) {
		return nil, fmt.Errorf("unknown artifact format: %w", ErrIntegrity)
	}
	header := data[:headerLen]
	if !bytes.Equal(header[len(magic):len(magic)+keyIDLen], c.keyID) {
		return nil, ErrKeyMismatch
	}
	plain, err := c.aead.Open(nil, header[len(magic)+keyIDLen:], data[headerLen:], header)
	if err != nil {
		return nil, ErrIntegrity
	}
	return plain, nil
}
