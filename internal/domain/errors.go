package domain

import "errors"

// Sentinel errors for the taxonomy the sync driver and CLI classify
// against. Wrap these with fmt.Errorf("...: %w", ErrX) at call sites;
// Kind unwraps to find which one, if any, applies.
var (
	// ErrTransport covers network/transport failures talking to the
	// postal box contract. Retryable.
	ErrTransport = errors.New("mizu: transport error")
	// ErrAuthFail means an AEAD tag failed to verify. The envelope is
	// discarded; the session is left untouched.
	ErrAuthFail = errors.New("mizu: authentication failed")
	// ErrProtocolReplay means a message counter or handshake value was
	// already seen and is being replayed. The envelope is discarded.
	ErrProtocolReplay = errors.New("mizu: protocol replay detected")
	// ErrTooManySkipped means the ratchet would have to skip more
	// message keys than its bound allows. The session is quarantined.
	ErrTooManySkipped = errors.New("mizu: too many skipped message keys")
	// ErrX3DHAuth means the X3DH handshake's signature or DH checks
	// failed.
	ErrX3DHAuth = errors.New("mizu: x3dh authentication failed")
	// ErrUnknownPrekey means an InitialMessage named a signed prekey we
	// don't recognise (neither current nor immediately previous).
	ErrUnknownPrekey = errors.New("mizu: unknown prekey")
	// ErrUnsupportedVersion means a persisted blob or wire envelope
	// carries a version newer than this build understands.
	ErrUnsupportedVersion = errors.New("mizu: unsupported version")
	// ErrCodec means an envelope or blob failed to parse structurally.
	ErrCodec = errors.New("mizu: codec error")
	// ErrStore means the local store failed for reasons unrelated to
	// the data it holds (disk, permissions, corruption).
	ErrStore = errors.New("mizu: store error")
	// ErrNoSession means an operation needs an established session
	// and none exists yet.
	ErrNoSession = errors.New("mizu: no session")
)

// Kind returns a short machine-readable label for err, matching the
// sentinel it wraps, or "" if err doesn't match any of them.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, ErrAuthFail):
		return "auth_fail"
	case errors.Is(err, ErrProtocolReplay):
		return "protocol_replay"
	case errors.Is(err, ErrTooManySkipped):
		return "too_many_skipped"
	case errors.Is(err, ErrX3DHAuth):
		return "x3dh_auth"
	case errors.Is(err, ErrUnknownPrekey):
		return "unknown_prekey"
	case errors.Is(err, ErrUnsupportedVersion):
		return "unsupported_version"
	case errors.Is(err, ErrCodec):
		return "codec"
	case errors.Is(err, ErrStore):
		return "store"
	case errors.Is(err, ErrNoSession):
		return "no_session"
	default:
		return ""
	}
}
