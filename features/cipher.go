package features

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/aluiziolira/books-scrape-api/models"
)

// ErrInvalidToken is returned when a token was not produced by this key or
// has been tampered with.
var ErrInvalidToken = errors.New("features: invalid token")

var tokenEncoding = base64.URLEncoding

// Cipher holds the process-lifetime key used by the security feature.
// Build one at startup and pass it to whoever needs it; values encrypted by
// a previous process cannot be decrypted after a restart.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher generates a fresh random key.
func NewCipher() (*Cipher, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return NewCipherFromKey(key)
}

// NewCipherFromKey wraps an existing 32-byte key.
func NewCipherFromKey(key []byte) (*Cipher, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// Encrypt seals plaintext under a random nonce and returns a URL-safe
// base64 token. Encrypting the same text twice gives different tokens.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plaintext)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return tokenEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt.
func (c *Cipher) Decrypt(token string) (string, error) {
	raw, err := tokenEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if len(raw) < c.aead.NonceSize()+c.aead.Overhead() {
		return "", ErrInvalidToken
	}
	nonce, sealed := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	plain, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return string(plain), nil
}

// EncryptBook replaces title and price with independent tokens.
func (c *Cipher) EncryptBook(b *models.Book) error {
	title, err := c.Encrypt(b.Title)
	if err != nil {
		return fmt.Errorf("encrypt title: %w", err)
	}
	price, err := c.Encrypt(b.Price)
	if err != nil {
		return fmt.Errorf("encrypt price: %w", err)
	}
	b.Title = title
	b.Price = price
	return nil
}
