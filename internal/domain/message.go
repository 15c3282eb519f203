package domain

// EnvelopeKind tags the body of a postal box entry.
type EnvelopeKind byte

const (
	EnvelopeInitial   EnvelopeKind = 0x01
	EnvelopeRatchet   EnvelopeKind = 0x02
	EnvelopeDiscovery EnvelopeKind = 0x03
)

// PostalBoxEntry is one entry as read back from a postal box: its
// position in the box (used as the replay high-water mark), the raw
// envelope bytes, and the timestamp the contract recorded it at.
type PostalBoxEntry struct {
	Index     uint64
	Content   []byte
	Timestamp int64
}

// DiscoveryRequest is a poke: a sealed hint that some address would
// like the recipient to publish a fresh prekey bundle / start talking.
// Content is the sealed-box ciphertext; only the intended recipient
// can open it to learn the sender's address.
type DiscoveryRequest struct {
	Content   []byte
	Timestamp int64
}

// MessageDirection distinguishes outgoing from incoming plaintext.
type MessageDirection int

const (
	DirectionOutgoing MessageDirection = iota
	DirectionIncoming
)

// PlaintextMessage is a decrypted (or about-to-be-encrypted) message
// kept in local history.
type PlaintextMessage struct {
	ContactAddress string
	Content        []byte
	Direction      MessageDirection
	Timestamp      int64
}
