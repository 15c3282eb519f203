package sqlstore

import (
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"fmt"

	"mizu/internal/crypto"
	"mizu/internal/domain"
)

// IdentityStore persists one local identity, encrypted at rest behind
// a passphrase-derived key, in the identities table's
// session_keys_blob column.
type IdentityStore struct {
	db      *DB
	address string
}

// NewIdentityStore returns a store scoped to a single local address,
// one identity per address.
func NewIdentityStore(db *DB, address string) *IdentityStore {
	return &IdentityStore{db: db, address: address}
}

var _ domain.IdentityStore = (*IdentityStore)(nil)

type identityDTO struct {
	IdentityPriv         []byte `json:"identity_priv"`
	IdentityPub          []byte `json:"identity_pub"`
	SignedPrekeyPriv     []byte `json:"signed_prekey_priv"`
	SignedPrekeyPub      []byte `json:"signed_prekey_pub"`
	PrekeyEpoch          uint32 `json:"prekey_epoch"`
	PrevSignedPrekeyPriv []byte `json:"prev_signed_prekey_priv,omitempty"`
	PrevSignedPrekeyPub  []byte `json:"prev_signed_prekey_pub,omitempty"`
	HasPrevPrekey        bool   `json:"has_prev_prekey"`
	AddressSigningPriv   []byte `json:"address_signing_priv"`
	AddressSigningPub    []byte `json:"address_signing_pub"`
	Address              string `json:"address"`
	Name                 string `json:"name"`
}

func (s *IdentityStore) Save(passphrase string, id domain.Identity) error {
	dto := identityDTO{
		IdentityPriv:       id.IdentityPriv.Slice(),
		IdentityPub:        id.IdentityPub.Slice(),
		SignedPrekeyPriv:   id.SignedPrekeyPriv.Slice(),
		SignedPrekeyPub:    id.SignedPrekeyPub.Slice(),
		PrekeyEpoch:        id.PrekeyEpoch,
		HasPrevPrekey:      id.HasPrevPrekey,
		AddressSigningPriv: id.AddressSigningPriv.Slice(),
		AddressSigningPub:  id.AddressSigningPub.Slice(),
		Address:            id.Address,
		Name:               id.Name,
	}
	if id.HasPrevPrekey {
		dto.PrevSignedPrekeyPriv = id.PrevSignedPrekeyPriv.Slice()
		dto.PrevSignedPrekeyPub = id.PrevSignedPrekeyPub.Slice()
	}

	payload, err := json.Marshal(dto)
	if err != nil {
		return fmt.Errorf("sqlstore: marshal identity: %w", err)
	}

	salt := make([]byte, crypto.SaltBytes)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("sqlstore: salt: %w", err)
	}
	nonce, ciphertext, err := crypto.EncryptSecret(passphrase, payload, salt)
	if err != nil {
		return fmt.Errorf("sqlstore: encrypt identity: %w", err)
	}

	blob := make([]byte, 0, len(salt)+len(nonce)+len(ciphertext))
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	blob = append(blob, ciphertext...)

	_, err = s.db.conn.Exec(
		`INSERT INTO identities (name, address, session_keys_blob) VALUES (?, ?, ?)
		 ON CONFLICT(address) DO UPDATE SET name = excluded.name, session_keys_blob = excluded.session_keys_blob`,
		id.Name, s.address, blob,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: %w: save identity: %v", domain.ErrStore, err)
	}
	return nil
}

func (s *IdentityStore) Load(passphrase string) (domain.Identity, error) {
	var blob []byte
	var name string
	err := s.db.conn.QueryRow(
		`SELECT name, session_keys_blob FROM identities WHERE address = ?`, s.address,
	).Scan(&name, &blob)
	if err == sql.ErrNoRows {
		return domain.Identity{}, fmt.Errorf("sqlstore: %w: no identity for %s", domain.ErrStore, s.address)
	}
	if err != nil {
		return domain.Identity{}, fmt.Errorf("sqlstore: %w: load identity: %v", domain.ErrStore, err)
	}

	if len(blob) < crypto.SaltBytes+crypto.NonceBytes {
		return domain.Identity{}, fmt.Errorf("sqlstore: %w: truncated identity blob", domain.ErrCodec)
	}
	salt := blob[:crypto.SaltBytes]
	nonce := blob[crypto.SaltBytes : crypto.SaltBytes+crypto.NonceBytes]
	ciphertext := blob[crypto.SaltBytes+crypto.NonceBytes:]

	payload, err := crypto.DecryptSecret(passphrase, salt, nonce, ciphertext)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("sqlstore: %w", domain.ErrAuthFail)
	}

	var dto identityDTO
	if err := json.Unmarshal(payload, &dto); err != nil {
		return domain.Identity{}, fmt.Errorf("sqlstore: unmarshal identity: %w", err)
	}

	id := domain.Identity{
		IdentityPriv:       domain.MustX25519Private(dto.IdentityPriv),
		IdentityPub:        domain.MustX25519Public(dto.IdentityPub),
		SignedPrekeyPriv:   domain.MustX25519Private(dto.SignedPrekeyPriv),
		SignedPrekeyPub:    domain.MustX25519Public(dto.SignedPrekeyPub),
		PrekeyEpoch:        dto.PrekeyEpoch,
		HasPrevPrekey:      dto.HasPrevPrekey,
		AddressSigningPriv: domain.MustEd25519Private(dto.AddressSigningPriv),
		AddressSigningPub:  domain.MustEd25519Public(dto.AddressSigningPub),
		Address:            dto.Address,
		Name:               name,
	}
	if dto.HasPrevPrekey {
		id.PrevSignedPrekeyPriv = domain.MustX25519Private(dto.PrevSignedPrekeyPriv)
		id.PrevSignedPrekeyPub = domain.MustX25519Public(dto.PrevSignedPrekeyPub)
	}
	return id, nil
}

func (s *IdentityStore) Exists() bool {
	var count int
	if err := s.db.conn.QueryRow(`SELECT COUNT(1) FROM identities WHERE address = ?`, s.address).Scan(&count); err != nil {
		return false
	}
	return count > 0
}
