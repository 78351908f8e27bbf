package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

// SealedPrefix marks a configuration value that holds AES-GCM ciphertext
// encoded as standard base64.
const SealedPrefix = "enc:"

var ErrKeyMissing = errors.New("encryption key not configured")

type Sealer struct {
	key []byte
}

func New(key string) (*Sealer, error) {
	if key == "" {
		return &Sealer{}, nil
	}
	decoded := decodeKey(key)
	if len(decoded) != 32 {
		return nil, fmt.Errorf("DATA_ENCRYPTION_KEY must be 32 bytes after decoding")
	}
	return &Sealer{key: decoded}, nil
}

func (s *Sealer) Configured() bool {
	return len(s.key) == 32
}

// Seal encrypts value and returns it in the SealedPrefix form accepted by Resolve.
func (s *Sealer) Seal(value string) (string, error) {
	if !s.Configured() {
		return "", ErrKeyMissing
	}
	gcm, err := s.aead()
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := gcm.Seal(nonce, nonce, []byte(value), nil)
	return SealedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Resolve returns value unchanged unless it carries SealedPrefix, in which
// case the ciphertext is decrypted.
func (s *Sealer) Resolve(value string) (string, error) {
	encoded, ok := strings.CutPrefix(value, SealedPrefix)
	if !ok {
		return value, nil
	}
	if !s.Configured() {
		return "", ErrKeyMissing
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode sealed value: %w", err)
	}
	gcm, err := s.aead()
	if err != nil {
		return "", err
	}
	if len(raw) < gcm.NonceSize() {
		return "", errors.New("ciphertext too short")
	}
	plain, err := gcm.Open(nil, raw[:gcm.NonceSize()], raw[gcm.NonceSize():], nil)
	if err != nil {
		return "", fmt.Errorf("open sealed value: %w", err)
	}
	return string(plain), nil
}

func (s *Sealer) aead() (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func decodeKey(raw string) []byte {
	if len(raw) == 64 {
		if decoded, err := hex.DecodeString(raw); err == nil {
			return decoded
		}
	}
	if decoded, err := base64.StdEncoding.DecodeString(raw); err == nil {
		return decoded
	}
	if decoded, err := base64.RawStdEncoding.DecodeString(raw); err == nil {
		return decoded
	}
	return []byte(raw)
}
