package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
)

// Purposes used across the panel. Each one derives its own key.
const (
	PurposeTOTPSecret    = "two-factor-secret"
	PurposeRecoveryCodes = "two-factor-recovery-codes"
)

// Cipher encrypts and decrypts short strings for storage at rest.
type Cipher interface {
	EncryptString(plaintext string) (string, error)
	DecryptString(ciphertext string) (string, error)
}

// AESCipher is an AES-256-GCM Cipher bound to a single purpose.
type AESCipher struct {
	aead cipher.AEAD
}

// NewCipher derives a purpose key from masterKey and prepares AES-GCM.
func NewCipher(masterKey []byte, purpose string) (*AESCipher, error) {
	if err := ValidateKey(masterKey); err != nil {
		return nil, err
	}

	key, err := deriveKey(masterKey, purpose)
	if err != nil {
		return nil, err
	}
	defer clear(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Join(ErrEncryptionFailed, err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Join(ErrEncryptionFailed, err)
	}

	return &AESCipher{aead: aead}, nil
}

// EncryptString returns base64(nonce + ciphertext + tag).
func (c *AESCipher) EncryptString(plaintext string) (string, error) {
	ciphertext, err := c.EncryptBytes([]byte(plaintext))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// DecryptString reverses EncryptString.
func (c *AESCipher) DecryptString(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", errors.Join(ErrInvalidCiphertext, err)
	}

	plaintext, err := c.DecryptBytes(raw)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}

// EncryptBytes seals data with a fresh random nonce prepended.
func (c *AESCipher) EncryptBytes(data []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, errors.Join(ErrEncryptionFailed, err)
	}
	return c.aead.Seal(nonce, nonce, data, nil), nil
}

// DecryptBytes expects the nonce + encrypted data + tag layout.
func (c *AESCipher) DecryptBytes(ciphertext []byte) ([]byte, error) {
	nonceSize := c.aead.NonceSize()
	if len(ciphertext) < nonceSize+c.aead.Overhead() {
		return nil, ErrInvalidCiphertext
	}

	nonce, sealed := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, errors.Join(ErrDecryptionFailed, err)
	}
	return plaintext, nil
}
