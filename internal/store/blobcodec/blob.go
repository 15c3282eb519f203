package blobcodec

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"mizu/internal/crypto"
	"mizu/internal/domain"
)

var blobMagic = [4]byte{'m', 'i', 'z', 'u'}

const currentVersion uint16 = 1

// Encode serializes s and encrypts it at rest under passphrase,
// returning magic || version || salt || nonce || ciphertext.
func Encode(s domain.Session, passphrase string) ([]byte, error) {
	payload, err := json.Marshal(toDTO(s))
	if err != nil {
		return nil, fmt.Errorf("blobcodec: marshal: %w", err)
	}

	salt := make([]byte, crypto.SaltBytes)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("blobcodec: salt: %w", err)
	}
	nonce, ciphertext, err := crypto.EncryptSecret(passphrase, payload, salt)
	if err != nil {
		return nil, fmt.Errorf("blobcodec: encrypt: %w", err)
	}

	out := make([]byte, 0, 4+2+len(salt)+len(nonce)+len(ciphertext))
	out = append(out, blobMagic[:]...)
	var verBuf [2]byte
	binary.BigEndian.PutUint16(verBuf[:], currentVersion)
	out = append(out, verBuf[:]...)
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, ciphertext...)
	return out, nil
}

// Decode reverses Encode. A version newer than currentVersion yields
// domain.ErrUnsupportedVersion; a short blob, a magic mismatch or a
// payload that does not parse yields domain.ErrCodec; a wrong
// passphrase yields domain.ErrAuthFail.
func Decode(blob []byte, passphrase string) (domain.Session, error) {
	if len(blob) < 4+2+crypto.SaltBytes+crypto.NonceBytes {
		return domain.Session{}, fmt.Errorf("blobcodec: %w: short blob", domain.ErrCodec)
	}
	if !bytes.Equal(blob[:4], blobMagic[:]) {
		return domain.Session{}, fmt.Errorf("blobcodec: %w: bad magic", domain.ErrCodec)
	}
	version := binary.BigEndian.Uint16(blob[4:6])
	if version > currentVersion {
		return domain.Session{}, fmt.Errorf("blobcodec: %w: version %d", domain.ErrUnsupportedVersion, version)
	}

	rest := blob[6:]
	salt := rest[:crypto.SaltBytes]
	nonce := rest[crypto.SaltBytes : crypto.SaltBytes+crypto.NonceBytes]
	ciphertext := rest[crypto.SaltBytes+crypto.NonceBytes:]

	payload, err := crypto.DecryptSecret(passphrase, salt, nonce, ciphertext)
	if err != nil {
		return domain.Session{}, fmt.Errorf("blobcodec: %w", domain.ErrAuthFail)
	}

	var dto sessionDTO
	if err := json.Unmarshal(payload, &dto); err != nil {
		return domain.Session{}, fmt.Errorf("blobcodec: %w: unmarshal: %v", domain.ErrCodec, err)
	}
	return dto.toDomain()
}

// sessionDTO mirrors domain.Session for JSON serialization. The
// ratchet's skipped-key map is keyed by an arbitrary 36-byte binary
// string (pub key || counter); encoding/json mangles non-UTF-8 map
// keys, so skipped entries are carried as a list with base64 keys
// instead of a map.
type sessionDTO struct {
	LocalAddress           string       `json:"local_address"`
	ContactAddress         string       `json:"contact_address"`
	State                  int          `json:"state"`
	Handshake              handshakeDTO `json:"handshake"`
	Ratchet                ratchetDTO   `json:"ratchet"`
	LatestMessageTimestamp int64        `json:"latest_message_timestamp"`
}

type handshakeDTO struct {
	EphemeralPriv []byte `json:"ephemeral_priv"`
	EphemeralPub  []byte `json:"ephemeral_pub"`
	UsedPrekeyPub []byte `json:"used_prekey_pub"`
}

type ratchetDTO struct {
	RootKey   []byte          `json:"root_key"`
	DHPriv    []byte          `json:"dh_priv"`
	DHPub     []byte          `json:"dh_pub"`
	PeerDHPub []byte          `json:"peer_dh_pub"`
	SendCK    []byte          `json:"send_ck"`
	RecvCK    []byte          `json:"recv_ck"`
	Ns        uint32          `json:"ns"`
	Nr        uint32          `json:"nr"`
	PN        uint32          `json:"pn"`
	Skipped   []skippedKeyDTO `json:"skipped"`
}

type skippedKeyDTO struct {
	KeyB64 string `json:"key"`
	MK     []byte `json:"mk"`
}

func toDTO(s domain.Session) sessionDTO {
	skipped := make([]skippedKeyDTO, 0, len(s.Ratchet.Skipped))
	for k, v := range s.Ratchet.Skipped {
		skipped = append(skipped, skippedKeyDTO{
			KeyB64: base64.StdEncoding.EncodeToString([]byte(k)),
			MK:     v,
		})
	}
	return sessionDTO{
		LocalAddress:   s.LocalAddress,
		ContactAddress: s.ContactAddress,
		State:          int(s.State),
		Handshake: handshakeDTO{
			EphemeralPriv: s.Handshake.EphemeralPriv.Slice(),
			EphemeralPub:  s.Handshake.EphemeralPub.Slice(),
			UsedPrekeyPub: s.Handshake.UsedPrekeyPub.Slice(),
		},
		Ratchet: ratchetDTO{
			RootKey:   s.Ratchet.RootKey[:],
			DHPriv:    s.Ratchet.DHPriv.Slice(),
			DHPub:     s.Ratchet.DHPub.Slice(),
			PeerDHPub: s.Ratchet.PeerDHPub.Slice(),
			SendCK:    s.Ratchet.SendCK,
			RecvCK:    s.Ratchet.RecvCK,
			Ns:        s.Ratchet.Ns,
			Nr:        s.Ratchet.Nr,
			PN:        s.Ratchet.PN,
			Skipped:   skipped,
		},
		LatestMessageTimestamp: s.LatestMessageTimestamp,
	}
}

func (d sessionDTO) toDomain() (domain.Session, error) {
	if len(d.Ratchet.RootKey) != 32 {
		return domain.Session{}, fmt.Errorf("blobcodec: %w: bad root key size", domain.ErrCodec)
	}
	skipped := make(map[string][]byte, len(d.Ratchet.Skipped))
	for _, e := range d.Ratchet.Skipped {
		key, err := base64.StdEncoding.DecodeString(e.KeyB64)
		if err != nil {
			return domain.Session{}, fmt.Errorf("blobcodec: %w: bad skipped key encoding", domain.ErrCodec)
		}
		skipped[string(key)] = e.MK
	}

	s := domain.Session{
		LocalAddress:   d.LocalAddress,
		ContactAddress: d.ContactAddress,
		State:          domain.SessionState(d.State),
		Handshake: domain.X3DHHandshake{
			EphemeralPriv: domain.MustX25519Private(d.Handshake.EphemeralPriv),
			EphemeralPub:  domain.MustX25519Public(d.Handshake.EphemeralPub),
			UsedPrekeyPub: domain.MustX25519Public(d.Handshake.UsedPrekeyPub),
		},
		Ratchet: domain.RatchetState{
			DHPriv:    domain.MustX25519Private(d.Ratchet.DHPriv),
			DHPub:     domain.MustX25519Public(d.Ratchet.DHPub),
			PeerDHPub: domain.MustX25519Public(d.Ratchet.PeerDHPub),
			SendCK:    d.Ratchet.SendCK,
			RecvCK:    d.Ratchet.RecvCK,
			Ns:        d.Ratchet.Ns,
			Nr:        d.Ratchet.Nr,
			PN:        d.Ratchet.PN,
			Skipped:   skipped,
		},
		LatestMessageTimestamp: d.LatestMessageTimestamp,
	}
	copy(s.Ratchet.RootKey[:], d.Ratchet.RootKey)
	return s, nil
}
