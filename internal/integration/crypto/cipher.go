// Package crypto seals integration tokens at rest.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const (
	payloadVersion = 1
	hkdfInfo       = "runway/integration-tokens/v1"
)

var (
	ErrKeyMissing       = errors.New("encryption_key_missing")
	ErrMalformedPayload = errors.New("malformed_encrypted_payload")
)

type encryptedPayload struct {
	Version    int    `json:"version"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

// Cipher encrypts token strings with AES-256-GCM.
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher derives the AES key from secret. An empty secret yields a Cipher that refuses to seal.
func NewCipher(secret string) (*Cipher, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return &Cipher{}, nil
	}

	key := make([]byte, 32)
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte(hkdfInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Cipher{aead: gcm}, nil
}

func (c *Cipher) Enabled() bool {
	return c != nil && c.aead != nil
}

// Seal returns the JSON envelope for plaintext. Empty input stays empty.
func (c *Cipher) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}
	if !c.Enabled() {
		return "", ErrKeyMissing
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	ciphertext := c.aead.Seal(nil, nonce, []byte(plaintext), nil)
	out, err := json.Marshal(encryptedPayload{
		Version:    payloadVersion,
		Nonce:      base64.RawStdEncoding.EncodeToString(nonce),
		Ciphertext: base64.RawStdEncoding.EncodeToString(ciphertext),
	})
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (c *Cipher) Open(sealed string) (string, error) {
	if sealed == "" {
		return "", nil
	}
	if !c.Enabled() {
		return "", ErrKeyMissing
	}

	var payload encryptedPayload
	if err := json.Unmarshal([]byte(sealed), &payload); err != nil {
		return "", ErrMalformedPayload
	}
	if payload.Version != payloadVersion {
		return "", ErrMalformedPayload
	}

	nonce, err := base64.RawStdEncoding.DecodeString(payload.Nonce)
	if err != nil || len(nonce) != c.aead.NonceSize() {
		return "", ErrMalformedPayload
	}
	ciphertext, err := base64.RawStdEncoding.DecodeString(payload.Ciphertext)
	if err != nil {
		return "", ErrMalformedPayload
	}

	plaintext, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
