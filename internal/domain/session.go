package domain

// SessionState is one of the four protocol states a per-peer session
// can be in, or the implementation-only SessionQuarantined.
type SessionState int

const (
	// SessionNone means no handshake has been attempted yet.
	SessionNone SessionState = iota
	// SessionAwaitingResponse means we sent an InitialMessage and are
	// waiting for the peer's first ratchet reply.
	SessionAwaitingResponse
	// SessionEstablished means both sides have exchanged at least one
	// Double Ratchet message and either side may now send freely.
	SessionEstablished
	// SessionPeerInitiated means we accepted the peer's InitialMessage
	// and have set up our responder half but have not yet had reason
	// to count it as fully established.
	SessionPeerInitiated
	// SessionQuarantined means the ratchet reported too many skipped
	// message keys; the session is frozen until a human resets it.
	SessionQuarantined
)

func (s SessionState) String() string {
	switch s {
	case SessionNone:
		return "none"
	case SessionAwaitingResponse:
		return "awaiting_response"
	case SessionEstablished:
		return "established"
	case SessionPeerInitiated:
		return "peer_initiated"
	case SessionQuarantined:
		return "quarantined"
	default:
		return "unknown"
	}
}

// X3DHHandshake records the half-finished X3DH exchange while a
// session sits in SessionAwaitingResponse, so a simultaneous-initiation
// tie-break has the material it needs to compare against the peer's
// InitialMessage.
type X3DHHandshake struct {
	EphemeralPriv X25519Private
	EphemeralPub  X25519Public
	// UsedPrekeyPub is our snapshot of the peer's signed prekey at the
	// moment we sent the InitialMessage, kept so re-derivation after a
	// tie-break loss is unnecessary.
	UsedPrekeyPub X25519Public
}

// Session is the per-peer state mizu persists between an identity and
// one contact: which of the four states it is in, the in-flight X3DH
// handshake (if any), and the Double Ratchet state once established.
type Session struct {
	LocalAddress   string
	ContactAddress string

	State SessionState

	Handshake X3DHHandshake
	Ratchet   RatchetState

	// LatestMessageTimestamp is the high-water mark of the newest
	// postal box entry this session has consumed (successfully
	// decrypted or deliberately skipped), used to make fetch/replay
	// idempotent across restarts.
	LatestMessageTimestamp int64
}

// SessionStore persists per-peer session state.
type SessionStore interface {
	SaveSession(localAddress, contactAddress string, s Session) error
	LoadSession(localAddress, contactAddress string) (Session, bool, error)
	ListSessions(localAddress string) ([]Session, error)
}
