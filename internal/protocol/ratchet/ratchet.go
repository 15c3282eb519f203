// Package ratchet implements the Double Ratchet algorithm following
// Signal's design, seeded from an X3DH root key.
package ratchet

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"mizu/internal/crypto"
	"mizu/internal/domain"
)

// MaxSkippedKeys bounds how many message keys a single ratchet step
// will derive and cache while catching up on out-of-order delivery.
// Exceeding it means either genuine mass message loss or an attack;
// either way the session is quarantined rather than silently evicting
// older keys.
const MaxSkippedKeys = 1000

var errChainUninitialised = errors.New("ratchet: chain key uninitialised")

// InitAsInitiator seeds the ratchet for the side that ran
// x3dh.BeginAsInitiator. ekPriv/ekPub is the ephemeral key pair X3DH
// generated; it doubles as the first Double Ratchet sending key, so it
// is not regenerated here. peerSignedPrekeyPub anchors the first DH
// ratchet step until the peer sends back their own ratchet key.
func InitAsInitiator(
	root [32]byte,
	ekPriv domain.X25519Private,
	ekPub domain.X25519Public,
	peerSignedPrekeyPub domain.X25519Public,
) (domain.RatchetState, error) {
	dh, err := crypto.DH(ekPriv, peerSignedPrekeyPub)
	if err != nil {
		return domain.RatchetState{}, fmt.Errorf("ratchet: init initiator dh: %w", err)
	}
	newRoot, sendCK := kdfRK(root[:], dh[:])
	crypto.Wipe(dh[:])

	var rootArr [32]byte
	copy(rootArr[:], newRoot)
	return domain.RatchetState{
		RootKey:   rootArr,
		DHPriv:    ekPriv,
		DHPub:     ekPub,
		PeerDHPub: peerSignedPrekeyPub,
		SendCK:    sendCK,
		Skipped:   make(map[string][]byte),
	}, nil
}

// InitAsResponder seeds the ratchet for the side that ran
// x3dh.AcceptAsResponder. It derives only the receiving chain; the
// sending chain and its ratchet key pair are created lazily on the
// first call to Encrypt, matching how a responder has nothing to send
// until they reply.
func InitAsResponder(
	root [32]byte,
	signedPrekeyPriv domain.X25519Private,
	senderEphemeralPub domain.X25519Public,
) (domain.RatchetState, error) {
	dh, err := crypto.DH(signedPrekeyPriv, senderEphemeralPub)
	if err != nil {
		return domain.RatchetState{}, fmt.Errorf("ratchet: init responder dh: %w", err)
	}
	newRoot, recvCK := kdfRK(root[:], dh[:])
	crypto.Wipe(dh[:])

	var rootArr [32]byte
	copy(rootArr[:], newRoot)
	return domain.RatchetState{
		RootKey:   rootArr,
		PeerDHPub: senderEphemeralPub,
		RecvCK:    recvCK,
		Skipped:   make(map[string][]byte),
	}, nil
}

// Encrypt encrypts plaintext under the send chain, performing a lazy
// DH ratchet step on the first send when SendCK is nil.
func Encrypt(st *domain.RatchetState, ad, plaintext []byte) (domain.RatchetHeader, []byte, error) {
	if st == nil {
		return domain.RatchetHeader{}, nil, errors.New("ratchet: state uninitialised")
	}

	if st.SendCK == nil {
		if err := lazyRatchetStep(st); err != nil {
			return domain.RatchetHeader{}, nil, err
		}
	}

	mk, err := kdfCKSend(st)
	if err != nil {
		return domain.RatchetHeader{}, nil, err
	}
	defer crypto.Wipe(mk)

	header := domain.RatchetHeader{DHPub: st.DHPub, PN: st.PN, N: st.Ns}
	ct, err := crypto.AEADSeal(mk, headerNonce(header.N), append(ad, headerBytes(header)...), plaintext)
	if err != nil {
		return domain.RatchetHeader{}, nil, fmt.Errorf("ratchet: seal: %w", err)
	}

	st.Ns++
	return header, ct, nil
}

// Decrypt decrypts ciphertext against st. It operates on a private
// copy of st and only writes the result back on success, so a failed
// authentication or an error partway through a DH ratchet step never
// leaves st in an inconsistent state.
func Decrypt(st *domain.RatchetState, ad []byte, header domain.RatchetHeader, ciphertext []byte) ([]byte, error) {
	if st == nil {
		return nil, errors.New("ratchet: state uninitialised")
	}

	working := st.Clone()

	// Try skipped messages first; present ⇒ a reordered delivery, not
	// a replay, since skipped keys are deleted once used.
	keyID := skippedKeyID(header.DHPub, header.N)
	if mk, ok := working.Skipped[keyID]; ok {
		delete(working.Skipped, keyID)
		pt, err := crypto.AEADOpen(mk, headerNonce(header.N), append(ad, headerBytes(header)...), ciphertext)
		crypto.Wipe(mk)
		if err != nil {
			return nil, fmt.Errorf("ratchet: %w", domain.ErrAuthFail)
		}
		*st = working
		return pt, nil
	}
	if header.DHPub == working.PeerDHPub && header.N < working.Nr {
		// Same chain, an index already consumed and not cached: a replay.
		return nil, fmt.Errorf("ratchet: %w", domain.ErrProtocolReplay)
	}

	if header.DHPub != working.PeerDHPub {
		if err := skipUntil(&working, header.PN); err != nil {
			return nil, err
		}
		if err := dhRatchetStep(&working, header.DHPub); err != nil {
			return nil, err
		}
	}

	if err := skipUntil(&working, header.N); err != nil {
		return nil, err
	}

	mk, err := kdfCKRecv(&working)
	if err != nil {
		return nil, err
	}
	pt, err := crypto.AEADOpen(mk, headerNonce(header.N), append(ad, headerBytes(header)...), ciphertext)
	crypto.Wipe(mk)
	if err != nil {
		return nil, fmt.Errorf("ratchet: %w", domain.ErrAuthFail)
	}
	working.Nr = header.N + 1

	*st = working
	return pt, nil
}

// lazyRatchetStep generates a fresh ratchet key pair and derives a new
// sending chain, used for the responder's first send.
func lazyRatchetStep(st *domain.RatchetState) error {
	priv, pub, err := crypto.GenerateX25519()
	if err != nil {
		return fmt.Errorf("ratchet: generate ratchet key: %w", err)
	}
	dh, err := crypto.DH(priv, st.PeerDHPub)
	if err != nil {
		return fmt.Errorf("ratchet: lazy step dh: %w", err)
	}
	newRoot, sendCK := kdfRK(st.RootKey[:], dh[:])
	crypto.Wipe(dh[:])

	st.PN = st.Ns
	st.Ns, st.Nr = 0, 0
	copy(st.RootKey[:], newRoot)
	st.DHPriv, st.DHPub, st.SendCK = priv, pub, sendCK
	return nil
}

// dhRatchetStep advances both chains when the peer's header carries a
// new ratchet public key: it derives a new receiving chain from
// peerPub, then immediately derives a fresh sending chain so the next
// Encrypt call doesn't need another lazy step.
func dhRatchetStep(st *domain.RatchetState, peerPub domain.X25519Public) error {
	dh, err := crypto.DH(st.DHPriv, peerPub)
	if err != nil {
		return fmt.Errorf("ratchet: dh ratchet recv dh: %w", err)
	}
	newRoot, recvCK := kdfRK(st.RootKey[:], dh[:])
	crypto.Wipe(dh[:])

	priv, pub, err := crypto.GenerateX25519()
	if err != nil {
		return fmt.Errorf("ratchet: generate ratchet key: %w", err)
	}
	dh2, err := crypto.DH(priv, peerPub)
	if err != nil {
		return fmt.Errorf("ratchet: dh ratchet send dh: %w", err)
	}
	var newRootArr [32]byte
	copy(newRootArr[:], newRoot)
	rootAfterSend, sendCK := kdfRK(newRootArr[:], dh2[:])
	crypto.Wipe(dh2[:])

	st.PN = st.Ns
	st.Ns, st.Nr = 0, 0
	copy(st.RootKey[:], rootAfterSend)
	st.DHPriv, st.DHPub = priv, pub
	st.PeerDHPub = peerPub
	st.SendCK, st.RecvCK = sendCK, recvCK
	if st.Skipped == nil {
		st.Skipped = make(map[string][]byte)
	}
	return nil
}

// --- chain key derivation ---

func kdfRK(root, dh []byte) (newRoot, ck []byte) {
	hk := hkdf.New(sha256.New, dh, root, []byte("mizu-dr-rk"))
	newRoot = make([]byte, 32)
	ck = make([]byte, 32)
	io.ReadFull(hk, newRoot)
	io.ReadFull(hk, ck)
	return
}

func kdfCKSend(st *domain.RatchetState) ([]byte, error) {
	if st.SendCK == nil {
		return nil, errChainUninitialised
	}
	nextCK, mk := kdfCK(st.SendCK)
	st.SendCK = nextCK
	return mk, nil
}

func kdfCKRecv(st *domain.RatchetState) ([]byte, error) {
	if st.RecvCK == nil {
		return nil, errChainUninitialised
	}
	nextCK, mk := kdfCK(st.RecvCK)
	st.RecvCK = nextCK
	return mk, nil
}

func kdfCK(ck []byte) (nextCK, mk []byte) {
	hk := hkdf.New(sha256.New, ck, nil, []byte("mizu-dr-ck"))
	nextCK = make([]byte, 32)
	mk = make([]byte, 32)
	io.ReadFull(hk, nextCK)
	io.ReadFull(hk, mk)
	return
}

// skipUntil derives and caches receive-chain message keys up to (but
// not including) n, so a later out-of-order delivery can still be
// decrypted. It refuses rather than evicts once the cache would grow
// past MaxSkippedKeys.
func skipUntil(st *domain.RatchetState, n uint32) error {
	if st.RecvCK == nil {
		return nil
	}
	if n > st.Nr && int(n-st.Nr) > MaxSkippedKeys {
		return fmt.Errorf("ratchet: %w", domain.ErrTooManySkipped)
	}
	for st.Nr < n {
		if len(st.Skipped) >= MaxSkippedKeys {
			return fmt.Errorf("ratchet: %w", domain.ErrTooManySkipped)
		}
		mk, err := kdfCKRecv(st)
		if err != nil {
			return err
		}
		st.Skipped[skippedKeyID(st.PeerDHPub, st.Nr)] = mk
		st.Nr++
	}
	return nil
}

func skippedKeyID(pub domain.X25519Public, n uint32) string {
	var buf [36]byte
	copy(buf[:32], pub[:])
	binary.BigEndian.PutUint32(buf[32:], n)
	return string(buf[:])
}

// headerNonce derives the 12-byte AEAD nonce from a message index.
// Every message key is used exactly once, so a counter-derived nonce
// never repeats under the same key.
func headerNonce(n uint32) []byte {
	nonce := make([]byte, crypto.AEADNonceSize)
	binary.BigEndian.PutUint32(nonce[len(nonce)-4:], n)
	return nonce
}

// headerBytes serialises the ratchet header for use as associated data.
func headerBytes(h domain.RatchetHeader) []byte {
	out := make([]byte, 0, 32+8)
	out = append(out, h.DHPub[:]...)
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], h.PN)
	out = append(out, tmp[:]...)
	binary.BigEndian.PutUint32(tmp[:], h.N)
	return append(out, tmp[:]...)
}
