package codec

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"mizu/internal/crypto"
	"mizu/internal/domain"
)

var sealedBoxInfo = []byte("mizu-discovery-v1")

// Seal produces a sealed-box poke: an ephemeral X25519 key pair DH'd
// against the recipient's identity key, whose derived key AEAD-seals
// the sender's address. Only the recipient, holding the matching
// identity private key, can recover the address.
func Seal(recipientIdentityPub domain.X25519Public, senderAddress string) ([]byte, error) {
	ekPriv, ekPub, err := crypto.GenerateX25519()
	if err != nil {
		return nil, fmt.Errorf("codec: generate sealed-box ephemeral key: %w", err)
	}
	dh, err := crypto.DH(ekPriv, recipientIdentityPub)
	if err != nil {
		return nil, fmt.Errorf("codec: sealed-box dh: %w", err)
	}
	key, err := sealedBoxKey(dh, ekPub, recipientIdentityPub)
	crypto.Wipe(dh[:])
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, crypto.AEADNonceSize)
	ct, err := crypto.AEADSeal(key, nonce, nil, []byte(senderAddress))
	if err != nil {
		return nil, fmt.Errorf("codec: sealed-box seal: %w", err)
	}

	out := make([]byte, 0, 32+len(ct))
	out = append(out, ekPub[:]...)
	return append(out, ct...), nil
}

// Open recovers the sender's address from a sealed-box poke using the
// recipient's identity private key.
func Open(recipientIdentity domain.Identity, sealed []byte) (string, error) {
	if len(sealed) < 32 {
		return "", fmt.Errorf("codec: %w: short sealed box", domain.ErrCodec)
	}
	var ekPub domain.X25519Public
	copy(ekPub[:], sealed[:32])
	ct := sealed[32:]

	dh, err := crypto.DH(recipientIdentity.IdentityPriv, ekPub)
	if err != nil {
		return "", fmt.Errorf("codec: sealed-box dh: %w", err)
	}
	key, err := sealedBoxKey(dh, ekPub, recipientIdentity.IdentityPub)
	crypto.Wipe(dh[:])
	if err != nil {
		return "", err
	}

	nonce := make([]byte, crypto.AEADNonceSize)
	pt, err := crypto.AEADOpen(key, nonce, nil, ct)
	if err != nil {
		return "", fmt.Errorf("codec: %w", domain.ErrAuthFail)
	}
	return string(pt), nil
}

func sealedBoxKey(dh [32]byte, ekPub, recipientIdentityPub domain.X25519Public) ([]byte, error) {
	salt := make([]byte, 0, 64)
	salt = append(salt, ekPub[:]...)
	salt = append(salt, recipientIdentityPub[:]...)

	reader := hkdf.New(sha256.New, dh[:], salt, sealedBoxInfo)
	key := make([]byte, crypto.AEADKeySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("codec: sealed-box hkdf: %w", err)
	}
	return key, nil
}
