package peersession

import (
	"bytes"
	"fmt"

	"mizu/internal/domain"
	"mizu/internal/protocol/ratchet"
	"mizu/internal/protocol/x3dh"
)

// associatedData binds every ratchet message to the pair of identity
// keys that started the session. It must come out identical on both
// ends regardless of which side is encrypting or decrypting, so the
// two keys are ordered by byte value rather than by local/peer role,
// which flips between Send and Receive.
func associatedData(localIdentityPub, peerIdentityPub domain.X25519Public) []byte {
	ad := make([]byte, 0, 64)
	if bytes.Compare(localIdentityPub[:], peerIdentityPub[:]) <= 0 {
		ad = append(ad, localIdentityPub[:]...)
		ad = append(ad, peerIdentityPub[:]...)
	} else {
		ad = append(ad, peerIdentityPub[:]...)
		ad = append(ad, localIdentityPub[:]...)
	}
	return ad
}

// OutgoingEnvelope is what Send returns: the envelope kind
// (EnvelopeInitial or EnvelopeRatchet), the ratchet header, the
// ciphertext, and — for the first message of a handshake — the
// InitialMessage fields the caller must also put on the wire.
type OutgoingEnvelope struct {
	Kind       domain.EnvelopeKind
	Initial    *InitialFields
	Header     domain.RatchetHeader
	Ciphertext []byte
}

// InitialFields carries the X3DH handshake material that accompanies
// the first Double Ratchet payload of a new session.
type InitialFields struct {
	SenderIdentityPub  domain.X25519Public
	EphemeralPub       domain.X25519Public
	RecipientPrekeyPub domain.X25519Public
}

// Send advances sess (in place) and returns the envelope to post to
// the contact's postal box.
func Send(identity domain.Identity, contact domain.Contact, sess *domain.Session, payload []byte) (OutgoingEnvelope, error) {
	switch sess.State {
	case domain.SessionQuarantined:
		return OutgoingEnvelope{}, fmt.Errorf("peersession: %w", domain.ErrNoSession)

	case domain.SessionNone:
		hs, root, err := x3dh.BeginAsInitiator(identity, contact)
		if err != nil {
			return OutgoingEnvelope{}, fmt.Errorf("peersession: begin x3dh: %w", err)
		}
		rst, err := ratchet.InitAsInitiator(root, hs.EphemeralPriv, hs.EphemeralPub, contact.SignedPrekeyPub)
		if err != nil {
			return OutgoingEnvelope{}, fmt.Errorf("peersession: init ratchet: %w", err)
		}
		sess.Handshake = hs
		sess.Ratchet = rst
		sess.State = domain.SessionAwaitingResponse

		header, ct, err := ratchet.Encrypt(&sess.Ratchet, associatedData(identity.IdentityPub, contact.IdentityPub), payload)
		if err != nil {
			return OutgoingEnvelope{}, fmt.Errorf("peersession: encrypt initial: %w", err)
		}
		return OutgoingEnvelope{
			Kind: domain.EnvelopeInitial,
			Initial: &InitialFields{
				SenderIdentityPub:  identity.IdentityPub,
				EphemeralPub:       hs.EphemeralPub,
				RecipientPrekeyPub: contact.SignedPrekeyPub,
			},
			Header:     header,
			Ciphertext: ct,
		}, nil

	default: // AwaitingResponse, Established, PeerInitiated
		header, ct, err := ratchet.Encrypt(&sess.Ratchet, associatedData(identity.IdentityPub, contact.IdentityPub), payload)
		if err != nil {
			return OutgoingEnvelope{}, fmt.Errorf("peersession: encrypt: %w", err)
		}
		return OutgoingEnvelope{Kind: domain.EnvelopeRatchet, Header: header, Ciphertext: ct}, nil
	}
}

// Receive processes one incoming envelope against sess, which is
// mutated in place only on outcomes the session model treats as
// progress: a full success, or a benign skip that only advances the
// high-water mark. A too_many_skipped failure quarantines the
// session instead. sess.LatestMessageTimestamp is always left
// pointing at entryTimestamp once Receive returns, except when the
// session is quarantined.
func Receive(
	identity domain.Identity,
	contact domain.Contact,
	sess *domain.Session,
	kind domain.EnvelopeKind,
	initial *InitialFields,
	header domain.RatchetHeader,
	ciphertext []byte,
	entryTimestamp int64,
) ([]byte, error) {
	if sess.State == domain.SessionQuarantined {
		return nil, fmt.Errorf("peersession: %w", domain.ErrNoSession)
	}

	if kind == domain.EnvelopeInitial {
		pt, err := receiveInitial(identity, contact, sess, initial, header, ciphertext)
		return finish(sess, entryTimestamp, pt, err)
	}

	if sess.State != domain.SessionEstablished && sess.State != domain.SessionPeerInitiated && sess.State != domain.SessionAwaitingResponse {
		return finish(sess, entryTimestamp, nil, fmt.Errorf("peersession: %w", domain.ErrNoSession))
	}

	ad := associatedData(identity.IdentityPub, contact.IdentityPub)
	pt, err := ratchet.Decrypt(&sess.Ratchet, ad, header, ciphertext)
	if err == nil && sess.State != domain.SessionEstablished {
		sess.State = domain.SessionEstablished
	}
	return finish(sess, entryTimestamp, pt, err)
}

// finish applies the high-water mark policy: quarantine on
// too_many_skipped leaves the timestamp untouched (the session must
// be reset before it processes anything further); every other
// outcome, success or benign skip, advances it.
func finish(sess *domain.Session, entryTimestamp int64, pt []byte, err error) ([]byte, error) {
	if domain.Kind(err) == "too_many_skipped" {
		sess.State = domain.SessionQuarantined
		return nil, err
	}
	sess.LatestMessageTimestamp = entryTimestamp
	return pt, err
}

// receiveInitial handles an incoming InitialMessage, including the
// simultaneous-initiation tie-break when we were already awaiting a
// response to our own.
func receiveInitial(
	identity domain.Identity,
	contact domain.Contact,
	sess *domain.Session,
	initial *InitialFields,
	header domain.RatchetHeader,
	ciphertext []byte,
) ([]byte, error) {
	if initial == nil {
		return nil, fmt.Errorf("peersession: %w", domain.ErrCodec)
	}

	switch sess.State {
	case domain.SessionEstablished, domain.SessionPeerInitiated:
		// Once a session is past the handshake, a second InitialMessage
		// is either a stale retransmit or an anomaly; either way there's
		// nothing new to install, so it's discarded as a replay.
		return nil, fmt.Errorf("peersession: %w", domain.ErrProtocolReplay)

	case domain.SessionAwaitingResponse:
		oursSmaller := tieBreakOursSmaller(identity.IdentityPub, sess.Handshake.EphemeralPub, initial.SenderIdentityPub, initial.EphemeralPub)
		if !oursSmaller {
			// Our InitialMessage survives; absorb the peer's losing one
			// only to account for its timestamp, without installing it.
			if _, _, err := x3dh.AcceptAsResponder(identity, initial.SenderIdentityPub, initial.EphemeralPub, initial.RecipientPrekeyPub); err != nil {
				return nil, fmt.Errorf("peersession: %w", domain.ErrProtocolReplay)
			}
			return nil, fmt.Errorf("peersession: %w", domain.ErrProtocolReplay)
		}
		// The peer's InitialMessage wins: discard our half-finished
		// handshake and accept theirs instead.
		return acceptInitial(identity, sess, initial, header, ciphertext)

	default: // SessionNone
		return acceptInitial(identity, sess, initial, header, ciphertext)
	}
}

func acceptInitial(
	identity domain.Identity,
	sess *domain.Session,
	initial *InitialFields,
	header domain.RatchetHeader,
	ciphertext []byte,
) ([]byte, error) {
	root, spkPriv, err := x3dh.AcceptAsResponder(identity, initial.SenderIdentityPub, initial.EphemeralPub, initial.RecipientPrekeyPub)
	if err != nil {
		return nil, fmt.Errorf("peersession: %w", domain.ErrX3DHAuth)
	}
	rst, err := ratchet.InitAsResponder(root, spkPriv, initial.EphemeralPub)
	if err != nil {
		return nil, fmt.Errorf("peersession: init ratchet: %w", err)
	}

	ad := associatedData(identity.IdentityPub, initial.SenderIdentityPub)
	pt, err := ratchet.Decrypt(&rst, ad, header, ciphertext)
	if err != nil {
		return nil, err
	}
	sess.Ratchet = rst
	sess.State = domain.SessionEstablished
	return pt, nil
}

// tieBreakOursSmaller reports whether our (IK, EK) pair is strictly
// smaller than the peer's, comparing IK first then EK. The smaller
// pair is discarded; ties (vanishingly unlikely given random EKs)
// favour keeping our own.
func tieBreakOursSmaller(ourIK, ourEK, peerIK, peerEK domain.X25519Public) bool {
	if c := bytes.Compare(ourIK[:], peerIK[:]); c != 0 {
		return c < 0
	}
	return bytes.Compare(ourEK[:], peerEK[:]) < 0
}
