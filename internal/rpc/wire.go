package rpc

import "mizu/internal/domain"

// bundleWire is the JSON form of a domain.PrekeyBundle: raw key bytes
// round-trip fine as []byte (encoding/json base64-encodes them), so
// this just mirrors the domain struct field for field.
type bundleWire struct {
	Address           string `json:"address"`
	Name              string `json:"name"`
	IdentityPub       []byte `json:"identity_pub"`
	AddressSigningPub []byte `json:"address_signing_pub"`
	AddressSig        []byte `json:"address_sig"`
	SignedPrekeyPub   []byte `json:"signed_prekey_pub"`
	PrekeyEpoch       uint32 `json:"prekey_epoch"`
	PrekeySig         []byte `json:"prekey_sig"`
}

func toBundleWire(b domain.PrekeyBundle) bundleWire {
	return bundleWire{
		Address:           b.Address,
		Name:              b.Name,
		IdentityPub:       b.IdentityPub.Slice(),
		AddressSigningPub: b.AddressSigningPub.Slice(),
		AddressSig:        b.AddressSig,
		SignedPrekeyPub:   b.SignedPrekeyPub.Slice(),
		PrekeyEpoch:       b.PrekeyEpoch,
		PrekeySig:         b.PrekeySig,
	}
}

func (w bundleWire) toDomain() (domain.PrekeyBundle, error) {
	if len(w.IdentityPub) != 32 || len(w.AddressSigningPub) != 32 || len(w.SignedPrekeyPub) != 32 {
		return domain.PrekeyBundle{}, errBadBundle
	}
	return domain.PrekeyBundle{
		Address:           w.Address,
		Name:              w.Name,
		IdentityPub:       domain.MustX25519Public(w.IdentityPub),
		AddressSigningPub: domain.MustEd25519Public(w.AddressSigningPub),
		AddressSig:        w.AddressSig,
		SignedPrekeyPub:   domain.MustX25519Public(w.SignedPrekeyPub),
		PrekeyEpoch:       w.PrekeyEpoch,
		PrekeySig:         w.PrekeySig,
	}, nil
}

// entryWire is the JSON form of a domain.PostalBoxEntry.
type entryWire struct {
	Index     uint64 `json:"index"`
	Content   []byte `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

func toEntryWire(e domain.PostalBoxEntry) entryWire {
	return entryWire{Index: e.Index, Content: e.Content, Timestamp: e.Timestamp}
}

func (w entryWire) toDomain() domain.PostalBoxEntry {
	return domain.PostalBoxEntry{Index: w.Index, Content: w.Content, Timestamp: w.Timestamp}
}

// pokeWire is the JSON form of a domain.DiscoveryRequest.
type pokeWire struct {
	Content   []byte `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

func toPokeWire(p domain.DiscoveryRequest) pokeWire {
	return pokeWire{Content: p.Content, Timestamp: p.Timestamp}
}

func (w pokeWire) toDomain() domain.DiscoveryRequest {
	return domain.DiscoveryRequest{Content: w.Content, Timestamp: w.Timestamp}
}

// postWire is the body of POST /box/{address}/post.
type postWire struct {
	Content []byte `json:"content"`
}

// pokeBodyWire is the body of POST /box/{address}/poke.
type pokeBodyWire struct {
	Sealed []byte `json:"sealed"`
}

var errBadBundle = &wireError{"bundle: malformed key field"}

type wireError struct{ msg string }

func (e *wireError) Error() string { return e.msg }
