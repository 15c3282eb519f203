// Package x3dh derives the shared root key two peers use to bootstrap
// a Double Ratchet session, following X3DH but without one-time
// prekeys: only the stable identity key and the current (or
// immediately previous) signed prekey participate in the exchange.
package x3dh

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"mizu/internal/crypto"
	"mizu/internal/domain"
	"mizu/internal/util/memzero"
)

var hkdfInfo = []byte("mizu-x3dh-v1")

// Handshake is the outcome of running either half of X3DH: the
// derived 32-byte root key, handed off to the Double Ratchet engine.
type Handshake struct {
	RootKey [32]byte
}

// BeginAsInitiator runs the initiator's half of X3DH: it generates a
// fresh ephemeral key pair, performs the three Diffie-Hellman
// exchanges against the peer's identity key and current signed
// prekey, and derives the root key. The ephemeral key pair must be
// retained by the caller (it doubles as the first Double Ratchet
// sending key) and is returned via domain.X3DHHandshake.
func BeginAsInitiator(identity domain.Identity, contact domain.Contact) (domain.X3DHHandshake, [32]byte, error) {
	ekPriv, ekPub, err := crypto.GenerateX25519()
	if err != nil {
		return domain.X3DHHandshake{}, [32]byte{}, fmt.Errorf("x3dh: generate ephemeral key: %w", err)
	}

	dh1, err := crypto.DH(identity.IdentityPriv, contact.SignedPrekeyPub) // DH(IK_A, SPK_B)
	if err != nil {
		return domain.X3DHHandshake{}, [32]byte{}, fmt.Errorf("x3dh: dh1: %w", err)
	}
	dh2, err := crypto.DH(ekPriv, contact.IdentityPub) // DH(EK_A, IK_B)
	if err != nil {
		return domain.X3DHHandshake{}, [32]byte{}, fmt.Errorf("x3dh: dh2: %w", err)
	}
	dh3, err := crypto.DH(ekPriv, contact.SignedPrekeyPub) // DH(EK_A, SPK_B)
	if err != nil {
		return domain.X3DHHandshake{}, [32]byte{}, fmt.Errorf("x3dh: dh3: %w", err)
	}

	root, err := deriveRoot(dh1, dh2, dh3)
	if err != nil {
		return domain.X3DHHandshake{}, [32]byte{}, err
	}

	hs := domain.X3DHHandshake{
		EphemeralPriv: ekPriv,
		EphemeralPub:  ekPub,
		UsedPrekeyPub: contact.SignedPrekeyPub,
	}
	return hs, root, nil
}

// AcceptAsResponder runs the responder's half of X3DH against an
// incoming InitialMessage. recipientPrekeyPub must match either the
// identity's current or immediately-previous signed prekey, or
// domain.ErrUnknownPrekey is returned. It also returns the signed
// prekey private key that matched, since the Double Ratchet bootstrap
// step must reuse the same key pair the DH transcript was built on.
func AcceptAsResponder(
	identity domain.Identity,
	senderIdentityPub domain.X25519Public,
	ephemeralPub domain.X25519Public,
	recipientPrekeyPub domain.X25519Public,
) ([32]byte, domain.X25519Private, error) {
	spkPriv, ok := matchPrekey(identity, recipientPrekeyPub)
	if !ok {
		return [32]byte{}, domain.X25519Private{}, fmt.Errorf("x3dh: %w", domain.ErrUnknownPrekey)
	}

	dh1, err := crypto.DH(spkPriv, senderIdentityPub) // DH(SPK_B, IK_A) == DH(IK_A, SPK_B)
	if err != nil {
		return [32]byte{}, domain.X25519Private{}, fmt.Errorf("x3dh: dh1: %w", err)
	}
	dh2, err := crypto.DH(identity.IdentityPriv, ephemeralPub) // DH(IK_B, EK_A)
	if err != nil {
		return [32]byte{}, domain.X25519Private{}, fmt.Errorf("x3dh: dh2: %w", err)
	}
	dh3, err := crypto.DH(spkPriv, ephemeralPub) // DH(SPK_B, EK_A)
	if err != nil {
		return [32]byte{}, domain.X25519Private{}, fmt.Errorf("x3dh: dh3: %w", err)
	}

	root, err := deriveRoot(dh1, dh2, dh3)
	return root, spkPriv, err
}

func matchPrekey(identity domain.Identity, pub domain.X25519Public) (domain.X25519Private, bool) {
	if pub == identity.SignedPrekeyPub {
		return identity.SignedPrekeyPriv, true
	}
	if identity.HasPrevPrekey && pub == identity.PrevSignedPrekeyPub {
		return identity.PrevSignedPrekeyPriv, true
	}
	return domain.X25519Private{}, false
}

func deriveRoot(dh1, dh2, dh3 [32]byte) ([32]byte, error) {
	concat := make([]byte, 0, 96)
	concat = append(concat, dh1[:]...)
	concat = append(concat, dh2[:]...)
	concat = append(concat, dh3[:]...)
	defer memzero.Zero(concat)

	reader := hkdf.New(sha256.New, concat, nil, hkdfInfo)
	var root [32]byte
	if _, err := io.ReadFull(reader, root[:]); err != nil {
		return root, fmt.Errorf("x3dh: hkdf: %w", err)
	}
	return root, nil
}

// VerifySignedPrekey checks a signed prekey's signature against the
// address-binding key, and VerifyAddressBinding checks the identity
// key's binding to the address. Both use the same Ed25519 signing key.
func VerifySignedPrekey(addrSigningPub domain.Ed25519Public, prekeyPub domain.X25519Public, epoch uint32, sig []byte) bool {
	msg := append(append([]byte{}, prekeyPub[:]...), encodeEpoch(epoch)...)
	return crypto.VerifyEd25519(addrSigningPub, msg, sig)
}

func VerifyAddressBinding(addrSigningPub domain.Ed25519Public, identityPub domain.X25519Public, sig []byte) bool {
	return crypto.VerifyEd25519(addrSigningPub, identityPub[:], sig)
}

func encodeEpoch(epoch uint32) []byte {
	return []byte{byte(epoch >> 24), byte(epoch >> 16), byte(epoch >> 8), byte(epoch)}
}
