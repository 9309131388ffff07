// Package crypto provides the encrypt/decrypt primitives §9 treats as
// external: access and refresh tokens, and per-profile OAuth client
// secrets, are never stored or returned in plaintext.
package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"io"

	"golang.org/x/crypto/nacl/secretbox"

	"github.com/f0rbit/timeline/apierr"
)

// KeySize is the secretbox key size in bytes.
const KeySize = 32

// Box encrypts and decrypts with a fixed symmetric key using
// golang.org/x/crypto/nacl/secretbox (XSalsa20-Poly1305).
type Box struct {
	key [KeySize]byte
}

// NewBox builds a Box from a hex-encoded 32-byte key.
func NewBox(hexKey string) (*Box, error) {
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, &apierr.Error{Kind: apierr.KindEncryption, Label: apierr.LabelInternal, Status: 500, Message: "invalid encryption key encoding", Cause: err}
	}
	if len(raw) != KeySize {
		return nil, &apierr.Error{Kind: apierr.KindEncryption, Label: apierr.LabelInternal, Status: 500, Message: "encryption key must be 32 bytes"}
	}
	var b Box
	copy(b.key[:], raw)
	return &b, nil
}

// Encrypt seals plaintext under a fresh random nonce, which is prepended
// to the returned ciphertext.
func (b *Box) Encrypt(plaintext []byte) ([]byte, error) {
	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, &apierr.Error{Kind: apierr.KindEncryption, Label: apierr.LabelInternal, Status: 500, Message: "encryption failed", Cause: err}
	}
	out := secretbox.Seal(nonce[:], plaintext, &nonce, &b.key)
	return out, nil
}

// Decrypt opens ciphertext produced by Encrypt.
func (b *Box) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < 24 {
		return nil, &apierr.Error{Kind: apierr.KindDecryption, Label: apierr.LabelInternal, Status: 500, Message: "ciphertext too short"}
	}
	var nonce [24]byte
	copy(nonce[:], ciphertext[:24])
	plain, ok := secretbox.Open(nil, ciphertext[24:], &nonce, &b.key)
	if !ok {
		return nil, &apierr.Error{Kind: apierr.KindDecryption, Label: apierr.LabelInternal, Status: 500, Message: "decryption failed"}
	}
	return plain, nil
}

// EncryptString is a convenience wrapper returning hex-encoded ciphertext,
// suitable for a text database column.
func (b *Box) EncryptString(plaintext string) (string, error) {
	ct, err := b.Encrypt([]byte(plaintext))
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(ct), nil
}

// DecryptString is the inverse of EncryptString.
func (b *Box) DecryptString(hexCiphertext string) (string, error) {
	raw, err := hex.DecodeString(hexCiphertext)
	if err != nil {
		return "", &apierr.Error{Kind: apierr.KindDecryption, Label: apierr.LabelInternal, Status: 500, Message: "invalid ciphertext encoding", Cause: err}
	}
	pt, err := b.Decrypt(raw)
	if err != nil {
		return "", err
	}
	return string(pt), nil
}

// ErrInvalidKey names the malformed-key condition. NewBox does not return
// it: it reports malformed key material as an *apierr.Error of kind
// encryption_failed.
var ErrInvalidKey = errors.New("crypto: invalid key")
