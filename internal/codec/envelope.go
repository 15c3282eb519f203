package codec

import (
	"encoding/binary"
	"fmt"

	"mizu/internal/domain"
)

// Initial carries the X3DH handshake fields that accompany the first
// Double Ratchet payload of a new session.
type Initial struct {
	SenderIdentityPub  domain.X25519Public
	EphemeralPub       domain.X25519Public
	RecipientPrekeyPub domain.X25519Public
}

const (
	ratchetHeaderLen = 32 + 4 + 4 // DHPub || u32(PN) || u32(N)
	initialFieldsLen = 32 + 32 + 32
)

// EncodeInitial lays out an Initial envelope: tag || sender_IK_pub ||
// EK_pub || recipient_prekey_pub || ratchet_header || ciphertext.
func EncodeInitial(initial Initial, header domain.RatchetHeader, ciphertext []byte) []byte {
	out := make([]byte, 0, 1+initialFieldsLen+ratchetHeaderLen+len(ciphertext))
	out = append(out, byte(domain.EnvelopeInitial))
	out = append(out, initial.SenderIdentityPub[:]...)
	out = append(out, initial.EphemeralPub[:]...)
	out = append(out, initial.RecipientPrekeyPub[:]...)
	out = append(out, encodeHeader(header)...)
	out = append(out, ciphertext...)
	return out
}

// EncodeRatchet lays out a Ratchet envelope: tag || ratchet_header ||
// ciphertext.
func EncodeRatchet(header domain.RatchetHeader, ciphertext []byte) []byte {
	out := make([]byte, 0, 1+ratchetHeaderLen+len(ciphertext))
	out = append(out, byte(domain.EnvelopeRatchet))
	out = append(out, encodeHeader(header)...)
	out = append(out, ciphertext...)
	return out
}

// EncodeDiscovery lays out a Discovery envelope: tag || sealed body.
// The sealed body is produced by Seal.
func EncodeDiscovery(sealed []byte) []byte {
	out := make([]byte, 0, 1+len(sealed))
	out = append(out, byte(domain.EnvelopeDiscovery))
	return append(out, sealed...)
}

// Decoded is the result of parsing one postal-box entry's bytes.
// Initial is non-nil only when Kind is domain.EnvelopeInitial.
type Decoded struct {
	Kind       domain.EnvelopeKind
	Initial    *Initial
	Header     domain.RatchetHeader
	Ciphertext []byte
}

// Decode parses raw postal-box entry content into its tag and body.
func Decode(raw []byte) (Decoded, error) {
	if len(raw) < 1 {
		return Decoded{}, fmt.Errorf("codec: %w: empty envelope", domain.ErrCodec)
	}
	kind := domain.EnvelopeKind(raw[0])
	body := raw[1:]

	switch kind {
	case domain.EnvelopeInitial:
		if len(body) < initialFieldsLen+ratchetHeaderLen {
			return Decoded{}, fmt.Errorf("codec: %w: short initial envelope", domain.ErrCodec)
		}
		var initial Initial
		off := 0
		copy(initial.SenderIdentityPub[:], body[off:off+32])
		off += 32
		copy(initial.EphemeralPub[:], body[off:off+32])
		off += 32
		copy(initial.RecipientPrekeyPub[:], body[off:off+32])
		off += 32
		header, n, err := decodeHeader(body[off:])
		if err != nil {
			return Decoded{}, err
		}
		off += n
		return Decoded{Kind: kind, Initial: &initial, Header: header, Ciphertext: body[off:]}, nil

	case domain.EnvelopeRatchet:
		header, n, err := decodeHeader(body)
		if err != nil {
			return Decoded{}, err
		}
		return Decoded{Kind: kind, Header: header, Ciphertext: body[n:]}, nil

	case domain.EnvelopeDiscovery:
		return Decoded{Kind: kind, Ciphertext: body}, nil

	default:
		return Decoded{}, fmt.Errorf("codec: %w: unknown envelope tag 0x%02x", domain.ErrCodec, raw[0])
	}
}

func encodeHeader(h domain.RatchetHeader) []byte {
	out := make([]byte, 0, ratchetHeaderLen)
	out = append(out, h.DHPub[:]...)
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], h.PN)
	out = append(out, tmp[:]...)
	binary.BigEndian.PutUint32(tmp[:], h.N)
	return append(out, tmp[:]...)
}

func decodeHeader(body []byte) (domain.RatchetHeader, int, error) {
	if len(body) < ratchetHeaderLen {
		return domain.RatchetHeader{}, 0, fmt.Errorf("codec: %w: short ratchet header", domain.ErrCodec)
	}
	var h domain.RatchetHeader
	copy(h.DHPub[:], body[:32])
	h.PN = binary.BigEndian.Uint32(body[32:36])
	h.N = binary.BigEndian.Uint32(body[36:40])
	return h, ratchetHeaderLen, nil
}
