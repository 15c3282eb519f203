package domain

// Identity is a node's long-term key material: a stable X25519
// identity key pair, the currently-published signed prekey pair (and,
// while it's still within its grace window, the immediately-previous
// one), an Ed25519 key used to bind the identity key to the chain
// address, and the address itself.
type Identity struct {
	IdentityPriv X25519Private
	IdentityPub  X25519Public

	SignedPrekeyPriv X25519Private
	SignedPrekeyPub  X25519Public
	PrekeyEpoch      uint32

	// PrevSignedPrekeyPriv/Pub hold the previous signed prekey during
	// the rotation grace window, so AcceptAsResponder can still honour
	// an InitialMessage built against it. PrekeyEpoch is the epoch the
	// *current* prekey was minted at; zero value means there is no
	// previous prekey yet.
	PrevSignedPrekeyPriv X25519Private
	PrevSignedPrekeyPub  X25519Public
	HasPrevPrekey        bool

	// AddressSigningPriv/Pub bind IdentityPub to Address: the node
	// signs IdentityPub with AddressSigningPriv so a peer who already
	// trusts Address can verify the identity key actually belongs to
	// it.
	AddressSigningPriv Ed25519Private
	AddressSigningPub  Ed25519Public

	Address string
	Name    string
}

// IdentityService generates and unlocks the local identity.
type IdentityService interface {
	Generate(passphrase, address, name string) (Identity, string /* fingerprint */, error)
	Load(passphrase string) (Identity, error)
	Fingerprint(passphrase string) (string, error)
	RotateSignedPrekey(passphrase string) (Identity, error)
}
