package domain

// PrekeyBundle is the public material a node publishes to its postal
// box so peers can begin a handshake with it asynchronously: the
// stable identity key, the address-binding signing key and signature,
// and the current signed prekey with its own signature.
type PrekeyBundle struct {
	Address           string
	Name              string
	IdentityPub       X25519Public
	AddressSigningPub Ed25519Public
	AddressSig        []byte // sign(AddressSigningPriv, IdentityPub)

	SignedPrekeyPub X25519Public
	PrekeyEpoch     uint32
	PrekeySig       []byte // sign(AddressSigningPriv, SignedPrekeyPub||epoch)
}
