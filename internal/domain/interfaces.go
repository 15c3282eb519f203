package domain

import "context"

// IdentityStore persists the local identity encrypted at rest behind a
// passphrase-derived key.
type IdentityStore interface {
	Save(passphrase string, id Identity) error
	Load(passphrase string) (Identity, error)
	Exists() bool
}

// ContactStore persists known peers for a local identity.
type ContactStore interface {
	SaveContact(localAddress string, c Contact) error
	LoadContact(localAddress, contactAddress string) (Contact, bool, error)
	ListContacts(localAddress string) ([]Contact, error)
}

// MessageStore records plaintext messages once they're sent or
// successfully decrypted, for the CLI's local history.
type MessageStore interface {
	SaveMessage(localAddress string, m PlaintextMessage) error
	ListMessages(localAddress, contactAddress string, limit int) ([]PlaintextMessage, error)
}

// PostalBoxClient is the boundary to the chain's postal-box contract:
// register prekey material, post/poke/fetch from a recipient's box.
type PostalBoxClient interface {
	Register(ctx context.Context, address string, bundle PrekeyBundle) error
	FetchBundle(ctx context.Context, address string) (PrekeyBundle, error)
	Post(ctx context.Context, address string, content []byte) error
	Fetch(ctx context.Context, address string, sinceIndex uint64, limit int) ([]PostalBoxEntry, error)
	Poke(ctx context.Context, address string, sealed []byte) error
	FetchPokes(ctx context.Context, address string) ([]DiscoveryRequest, error)
}
