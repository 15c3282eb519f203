package contact

import (
	"context"
	"fmt"
	"time"

	"mizu/internal/codec"
	"mizu/internal/domain"
	"mizu/internal/protocol/x3dh"
	"mizu/internal/services/identity"
)

// Service publishes a node's own bundle and resolves peers into
// trusted domain.Contact records.
type Service struct {
	client domain.PostalBoxClient
	store  domain.ContactStore
}

// New constructs a contact Service over client and store.
func New(client domain.PostalBoxClient, store domain.ContactStore) *Service {
	return &Service{client: client, store: store}
}

// Publish signs and registers id's current bundle to its own postal
// box, so peers can find it.
func (s *Service) Publish(ctx context.Context, id domain.Identity) error {
	return s.client.Register(ctx, id.Address, identity.SignBundle(id))
}

// Add fetches peerAddress's bundle, verifies both its signatures
// against the address-binding key it carries, and persists it as a
// trusted contact under localAddress. A bundle that fails either
// signature check is rejected outright rather than stored.
func (s *Service) Add(ctx context.Context, localAddress, peerAddress string) (domain.Contact, error) {
	bundle, err := s.client.FetchBundle(ctx, peerAddress)
	if err != nil {
		return domain.Contact{}, fmt.Errorf("contact: fetch bundle: %w", err)
	}
	if bundle.Address != peerAddress {
		return domain.Contact{}, fmt.Errorf("contact: %w: bundle address mismatch", domain.ErrX3DHAuth)
	}
	if err := verifyBundle(bundle); err != nil {
		return domain.Contact{}, err
	}

	c := domain.Contact{
		Name:              bundle.Name,
		IdentityPub:       bundle.IdentityPub,
		SignedPrekeyPub:   bundle.SignedPrekeyPub,
		AddressSigningPub: bundle.AddressSigningPub,
		Address:           bundle.Address,
		LastFetchedAt:     time.Now().Unix(),
	}
	if err := s.store.SaveContact(localAddress, c); err != nil {
		return domain.Contact{}, fmt.Errorf("contact: save: %w", err)
	}
	return c, nil
}

// Get returns the locally saved contact for peerAddress, if one
// exists.
func (s *Service) Get(localAddress, peerAddress string) (domain.Contact, bool, error) {
	return s.store.LoadContact(localAddress, peerAddress)
}

// List returns every contact saved under localAddress.
func (s *Service) List(localAddress string) ([]domain.Contact, error) {
	return s.store.ListContacts(localAddress)
}

// Refresh re-fetches a known contact's bundle and updates its signed
// prekey if the peer has rotated since the last fetch. Call this
// opportunistically before initiating a new handshake, since a stale
// prekey makes BeginAsInitiator target a key the peer may have
// already dropped.
func (s *Service) Refresh(ctx context.Context, localAddress string, c domain.Contact) (domain.Contact, error) {
	bundle, err := s.client.FetchBundle(ctx, c.Address)
	if err != nil {
		return c, fmt.Errorf("contact: fetch bundle: %w", err)
	}
	if bundle.IdentityPub != c.IdentityPub {
		return c, fmt.Errorf("contact: %w: identity key changed for %s", domain.ErrX3DHAuth, c.Address)
	}
	if err := verifyBundle(bundle); err != nil {
		return c, err
	}

	c.SignedPrekeyPub = bundle.SignedPrekeyPub
	c.LastFetchedAt = time.Now().Unix()
	if err := s.store.SaveContact(localAddress, c); err != nil {
		return c, fmt.Errorf("contact: save refreshed: %w", err)
	}
	return c, nil
}

// Poke seals localAddress inside a discovery hint for c and leaves it
// in c's poke queue. c must already be a contact (the poke is sealed
// to its identity key); use this when no session with c exists yet,
// or to nudge a peer whose prekey bundle looks stale.
func (s *Service) Poke(ctx context.Context, c domain.Contact, localAddress string) error {
	sealed, err := codec.Seal(c.IdentityPub, localAddress)
	if err != nil {
		return fmt.Errorf("contact: seal poke: %w", err)
	}
	return s.client.Poke(ctx, c.Address, sealed)
}

// DrainPokes opens every pending poke in id's own poke queue and
// returns the sender addresses that asked to be noticed.
func (s *Service) DrainPokes(ctx context.Context, id domain.Identity) ([]string, error) {
	pokes, err := s.client.FetchPokes(ctx, id.Address)
	if err != nil {
		return nil, fmt.Errorf("contact: fetch pokes: %w", err)
	}
	out := make([]string, 0, len(pokes))
	for _, p := range pokes {
		addr, err := codec.Open(id, p.Content)
		if err != nil {
			continue // can't open: not meant for us, or corrupt. Skip it.
		}
		out = append(out, addr)
	}
	return out, nil
}

func verifyBundle(bundle domain.PrekeyBundle) error {
	if !x3dh.VerifyAddressBinding(bundle.AddressSigningPub, bundle.IdentityPub, bundle.AddressSig) {
		return fmt.Errorf("contact: %w: address binding signature invalid", domain.ErrX3DHAuth)
	}
	if !x3dh.VerifySignedPrekey(bundle.AddressSigningPub, bundle.SignedPrekeyPub, bundle.PrekeyEpoch, bundle.PrekeySig) {
		return fmt.Errorf("contact: %w: signed prekey signature invalid", domain.ErrX3DHAuth)
	}
	return nil
}
