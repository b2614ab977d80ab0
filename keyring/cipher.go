package keyring

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// Algorithm names the AEAD construction used for all envelopes.
const Algorithm = "chacha20poly1305"

// AEAD parameters: 256-bit key, 96-bit nonce, 128-bit tag.
const (
	KeySize   = chacha20poly1305.KeySize
	NonceSize = chacha20poly1305.NonceSize
	Overhead  = chacha20poly1305.Overhead
)

// ErrAuthenticationFailed indicates an AEAD tag mismatch: the
// ciphertext was tampered with or the wrong key was supplied. No
// partial plaintext is ever returned alongside it.
var ErrAuthenticationFailed = errors.New("envelope authentication failed")

// Envelope is the sealed form of an artifact: which key sealed it, the
// per-call nonce, and the ciphertext with the authentication tag
// appended.
type Envelope struct {
	KeyID      string
	Nonce      []byte
	Ciphertext []byte
}

// Seal encrypts plaintext under the given key with a fresh random
// nonce. Nonces are never reused under a key; every call draws new
// randomness.
func Seal(plaintext []byte, rec KeyRecord) (Envelope, error) {
	aead, err := chacha20poly1305.New(rec.Material)
	if err != nil {
		return Envelope{}, fmt.Errorf("init cipher: %w", err)
	}

	nonce := make([]byte, NonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return Envelope{}, fmt.Errorf("generate nonce: %w", err)
	}

	return Envelope{
		KeyID:      rec.KeyID,
		Nonce:      nonce,
		Ciphertext: aead.Seal(nil, nonce, plaintext, nil),
	}, nil
}

// OpenEnvelope decrypts an envelope with the given key record. A tag
// mismatch returns ErrAuthenticationFailed and no plaintext.
func OpenEnvelope(env Envelope, rec KeyRecord) ([]byte, error) {
	if env.KeyID != rec.KeyID {
		return nil, fmt.Errorf("envelope sealed under %s, key %s supplied", env.KeyID, rec.KeyID)
	}

	aead, err := chacha20poly1305.New(rec.Material)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}

	plaintext, err := aead.Open(nil, env.Nonce, env.Ciphertext, nil)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	return plaintext, nil
}

// Encode serializes the envelope body as nonce || ciphertext. The key
// ID travels in the artifact sidecar, not the payload.
func (e Envelope) Encode() []byte {
	out := make([]byte, 0, len(e.Nonce)+len(e.Ciphertext))
	out = append(out, e.Nonce...)
	out = append(out, e.Ciphertext...)
	return out
}

// DecodeEnvelope parses an encoded envelope body.
func DecodeEnvelope(keyID string, data []byte) (Envelope, error) {
	if len(data) < NonceSize+Overhead {
		return Envelope{}, fmt.Errorf("envelope too short: %d bytes", len(data))
	}
	return Envelope{
		KeyID:      keyID,
		Nonce:      data[:NonceSize],
		Ciphertext: data[NonceSize:],
	}, nil
}
