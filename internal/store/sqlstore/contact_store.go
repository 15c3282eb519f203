package sqlstore

import (
	"database/sql"
	"fmt"

	"mizu/internal/domain"
)

// ContactStore persists known peers for a local identity in the
// contacts table.
type ContactStore struct {
	db *DB
}

// NewContactStore returns a ContactStore over db.
func NewContactStore(db *DB) *ContactStore {
	return &ContactStore{db: db}
}

var _ domain.ContactStore = (*ContactStore)(nil)

func (s *ContactStore) SaveContact(localAddress string, c domain.Contact) error {
	_, err := s.db.conn.Exec(
		`INSERT INTO contacts (local_address, public_key, name, signed_prekey_pub, address_signing_pub, address, last_fetched_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(local_address, address) DO UPDATE SET
			public_key = excluded.public_key,
			name = excluded.name,
			signed_prekey_pub = excluded.signed_prekey_pub,
			address_signing_pub = excluded.address_signing_pub,
			last_fetched_at = excluded.last_fetched_at`,
		localAddress, c.IdentityPub.Slice(), c.Name, c.SignedPrekeyPub.Slice(), c.AddressSigningPub.Slice(), c.Address, c.LastFetchedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: %w: save contact: %v", domain.ErrStore, err)
	}
	return nil
}

func (s *ContactStore) LoadContact(localAddress, contactAddress string) (domain.Contact, bool, error) {
	var c domain.Contact
	var identityPub, signedPrekeyPub, addrSigningPub []byte
	err := s.db.conn.QueryRow(
		`SELECT public_key, name, signed_prekey_pub, address_signing_pub, address, last_fetched_at
		 FROM contacts WHERE local_address = ? AND address = ?`,
		localAddress, contactAddress,
	).Scan(&identityPub, &c.Name, &signedPrekeyPub, &addrSigningPub, &c.Address, &c.LastFetchedAt)
	if err == sql.ErrNoRows {
		return domain.Contact{}, false, nil
	}
	if err != nil {
		return domain.Contact{}, false, fmt.Errorf("sqlstore: %w: load contact: %v", domain.ErrStore, err)
	}
	c.IdentityPub = domain.MustX25519Public(identityPub)
	c.SignedPrekeyPub = domain.MustX25519Public(signedPrekeyPub)
	c.AddressSigningPub = domain.MustEd25519Public(addrSigningPub)
	return c, true, nil
}

func (s *ContactStore) ListContacts(localAddress string) ([]domain.Contact, error) {
	rows, err := s.db.conn.Query(
		`SELECT public_key, name, signed_prekey_pub, address_signing_pub, address, last_fetched_at
		 FROM contacts WHERE local_address = ? ORDER BY name`,
		localAddress,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: %w: list contacts: %v", domain.ErrStore, err)
	}
	defer rows.Close()

	var out []domain.Contact
	for rows.Next() {
		var c domain.Contact
		var identityPub, signedPrekeyPub, addrSigningPub []byte
		if err := rows.Scan(&identityPub, &c.Name, &signedPrekeyPub, &addrSigningPub, &c.Address, &c.LastFetchedAt); err != nil {
			return nil, fmt.Errorf("sqlstore: %w: scan contact: %v", domain.ErrStore, err)
		}
		c.IdentityPub = domain.MustX25519Public(identityPub)
		c.SignedPrekeyPub = domain.MustX25519Public(signedPrekeyPub)
		c.AddressSigningPub = domain.MustEd25519Public(addrSigningPub)
		out = append(out, c)
	}
	return out, rows.Err()
}
