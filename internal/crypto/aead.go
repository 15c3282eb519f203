package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

// AEADKeySize and AEADNonceSize are AES-256-GCM's key and nonce sizes.
const (
	AEADKeySize   = 32
	AEADNonceSize = 12
)

// AEADSeal encrypts plaintext under mk (must be 32 bytes) with
// AES-256-GCM, authenticating ad as associated data. nonce must be
// exactly AEADNonceSize bytes; callers derive it from the message
// counter since each message key is used exactly once.
func AEADSeal(mk, nonce, ad, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(mk)
	if err != nil {
		return nil, fmt.Errorf("aead: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, AEADNonceSize)
	if err != nil {
		return nil, fmt.Errorf("aead: new gcm: %w", err)
	}
	return gcm.Seal(nil, nonce, plaintext, ad), nil
}

// AEADOpen decrypts ciphertext produced by AEADSeal.
func AEADOpen(mk, nonce, ad, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(mk)
	if err != nil {
		return nil, fmt.Errorf("aead: new cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, AEADNonceSize)
	if err != nil {
		return nil, fmt.Errorf("aead: new gcm: %w", err)
	}
	return gcm.Open(nil, nonce, ciphertext, ad)
}
