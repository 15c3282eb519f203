package identity

import (
	"fmt"

	"mizu/internal/crypto"
	"mizu/internal/domain"
)

// Service generates, unlocks and rotates the local identity.
type Service struct {
	store domain.IdentityStore
}

// New constructs an identity Service over store.
func New(store domain.IdentityStore) *Service {
	return &Service{store: store}
}

var _ domain.IdentityService = (*Service)(nil)

// Generate creates a fresh identity bound to address, persists it
// under passphrase, and returns it along with a fingerprint of its
// identity key suitable for out-of-band verification.
func (s *Service) Generate(passphrase, address, name string) (domain.Identity, string, error) {
	if s.store.Exists() {
		return domain.Identity{}, "", fmt.Errorf("identity: already exists at this location")
	}

	identityPriv, identityPub, err := crypto.GenerateX25519()
	if err != nil {
		return domain.Identity{}, "", fmt.Errorf("identity: generate identity key: %w", err)
	}
	spkPriv, spkPub, err := crypto.GenerateX25519()
	if err != nil {
		return domain.Identity{}, "", fmt.Errorf("identity: generate signed prekey: %w", err)
	}
	addrPriv, addrPub, err := crypto.GenerateEd25519()
	if err != nil {
		return domain.Identity{}, "", fmt.Errorf("identity: generate address-signing key: %w", err)
	}

	id := domain.Identity{
		IdentityPriv:       identityPriv,
		IdentityPub:        identityPub,
		SignedPrekeyPriv:   spkPriv,
		SignedPrekeyPub:    spkPub,
		PrekeyEpoch:        1,
		AddressSigningPriv: addrPriv,
		AddressSigningPub:  addrPub,
		Address:            address,
		Name:               name,
	}

	if err := s.store.Save(passphrase, id); err != nil {
		return domain.Identity{}, "", fmt.Errorf("identity: save: %w", err)
	}
	return id, crypto.Fingerprint(id.IdentityPub.Slice()), nil
}

// Load unlocks the persisted identity under passphrase.
func (s *Service) Load(passphrase string) (domain.Identity, error) {
	return s.store.Load(passphrase)
}

// Fingerprint returns a short hex fingerprint of the identity key, for
// the user to read aloud or compare out of band.
func (s *Service) Fingerprint(passphrase string) (string, error) {
	id, err := s.store.Load(passphrase)
	if err != nil {
		return "", err
	}
	return crypto.Fingerprint(id.IdentityPub.Slice()), nil
}

// RotateSignedPrekey replaces the current signed prekey with a fresh
// one, keeping the outgoing one as PrevSignedPrekeyPriv/Pub for the
// grace window so in-flight InitialMessages built against it still
// verify (x3dh.AcceptAsResponder checks both).
func (s *Service) RotateSignedPrekey(passphrase string) (domain.Identity, error) {
	id, err := s.store.Load(passphrase)
	if err != nil {
		return domain.Identity{}, err
	}

	newPriv, newPub, err := crypto.GenerateX25519()
	if err != nil {
		return domain.Identity{}, fmt.Errorf("identity: generate signed prekey: %w", err)
	}

	id.PrevSignedPrekeyPriv = id.SignedPrekeyPriv
	id.PrevSignedPrekeyPub = id.SignedPrekeyPub
	id.HasPrevPrekey = true
	id.SignedPrekeyPriv = newPriv
	id.SignedPrekeyPub = newPub
	id.PrekeyEpoch++

	if err := s.store.Save(passphrase, id); err != nil {
		return domain.Identity{}, fmt.Errorf("identity: save after rotation: %w", err)
	}
	return id, nil
}

// SignBundle builds the PrekeyBundle this identity publishes to its
// postal box: the address-binding signature over the identity key,
// and the prekey signature over (SignedPrekeyPub || epoch).
func SignBundle(id domain.Identity) domain.PrekeyBundle {
	addrSig := crypto.SignEd25519(id.AddressSigningPriv, id.IdentityPub[:])
	prekeyMsg := append(append([]byte{}, id.SignedPrekeyPub[:]...), encodeEpoch(id.PrekeyEpoch)...)
	prekeySig := crypto.SignEd25519(id.AddressSigningPriv, prekeyMsg)

	return domain.PrekeyBundle{
		Address:           id.Address,
		Name:              id.Name,
		IdentityPub:       id.IdentityPub,
		AddressSigningPub: id.AddressSigningPub,
		AddressSig:        addrSig,
		SignedPrekeyPub:   id.SignedPrekeyPub,
		PrekeyEpoch:       id.PrekeyEpoch,
		PrekeySig:         prekeySig,
	}
}

func encodeEpoch(epoch uint32) []byte {
	return []byte{byte(epoch >> 24), byte(epoch >> 16), byte(epoch >> 8), byte(epoch)}
}
