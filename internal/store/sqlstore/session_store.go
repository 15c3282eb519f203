package sqlstore

import (
	"database/sql"
	"fmt"

	"mizu/internal/domain"
	"mizu/internal/store/blobcodec"
)

// SessionStore persists per-peer session state in the clients table,
// encrypted at rest via blobcodec under the identity's passphrase.
// Like the identity itself, a session can't be touched without the
// passphrase that unlocked it, so the store is constructed with one
// already in hand rather than threading it through every call.
type SessionStore struct {
	db         *DB
	passphrase string
}

// NewSessionStore returns a SessionStore that encrypts/decrypts
// session blobs under passphrase.
func NewSessionStore(db *DB, passphrase string) *SessionStore {
	return &SessionStore{db: db, passphrase: passphrase}
}

var _ domain.SessionStore = (*SessionStore)(nil)

func (s *SessionStore) SaveSession(localAddress, contactAddress string, sess domain.Session) error {
	identityID, err := s.identityID(localAddress)
	if err != nil {
		return err
	}
	contactID, err := s.contactID(localAddress, contactAddress)
	if err != nil {
		return err
	}

	blob, err := blobcodec.Encode(sess, s.passphrase)
	if err != nil {
		return fmt.Errorf("sqlstore: encode session blob: %w", err)
	}

	_, err = s.db.conn.Exec(
		`INSERT INTO clients (identity_id, contact_id, session_blob, latest_message_timestamp)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(identity_id, contact_id) DO UPDATE SET
			session_blob = excluded.session_blob,
			latest_message_timestamp = excluded.latest_message_timestamp`,
		identityID, contactID, blob, sess.LatestMessageTimestamp,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: %w: save session: %v", domain.ErrStore, err)
	}
	return nil
}

func (s *SessionStore) LoadSession(localAddress, contactAddress string) (domain.Session, bool, error) {
	identityID, err := s.identityID(localAddress)
	if err != nil {
		return domain.Session{}, false, err
	}
	contactID, err := s.contactID(localAddress, contactAddress)
	if err != nil {
		return domain.Session{}, false, err
	}

	var blob []byte
	err = s.db.conn.QueryRow(
		`SELECT session_blob FROM clients WHERE identity_id = ? AND contact_id = ?`,
		identityID, contactID,
	).Scan(&blob)
	if err == sql.ErrNoRows {
		return domain.Session{}, false, nil
	}
	if err != nil {
		return domain.Session{}, false, fmt.Errorf("sqlstore: %w: load session: %v", domain.ErrStore, err)
	}

	sess, err := blobcodec.Decode(blob, s.passphrase)
	if err != nil {
		return domain.Session{}, false, err
	}
	sess.LocalAddress = localAddress
	sess.ContactAddress = contactAddress
	return sess, true, nil
}

func (s *SessionStore) ListSessions(localAddress string) ([]domain.Session, error) {
	identityID, err := s.identityID(localAddress)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.conn.Query(
		`SELECT contacts.address, clients.session_blob
		 FROM clients JOIN contacts ON clients.contact_id = contacts.id
		 WHERE clients.identity_id = ?`,
		identityID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: %w: list sessions: %v", domain.ErrStore, err)
	}
	defer rows.Close()

	var out []domain.Session
	for rows.Next() {
		var contactAddress string
		var blob []byte
		if err := rows.Scan(&contactAddress, &blob); err != nil {
			return nil, fmt.Errorf("sqlstore: %w: scan session: %v", domain.ErrStore, err)
		}
		sess, err := blobcodec.Decode(blob, s.passphrase)
		if err != nil {
			return nil, err
		}
		sess.LocalAddress = localAddress
		sess.ContactAddress = contactAddress
		out = append(out, sess)
	}
	return out, rows.Err()
}

func (s *SessionStore) identityID(address string) (int64, error) {
	var id int64
	err := s.db.conn.QueryRow(`SELECT id FROM identities WHERE address = ?`, address).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("sqlstore: %w: no identity for %s", domain.ErrStore, address)
	}
	if err != nil {
		return 0, fmt.Errorf("sqlstore: %w: identity lookup: %v", domain.ErrStore, err)
	}
	return id, nil
}

func (s *SessionStore) contactID(localAddress, contactAddress string) (int64, error) {
	var id int64
	err := s.db.conn.QueryRow(
		`SELECT id FROM contacts WHERE local_address = ? AND address = ?`,
		localAddress, contactAddress,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("sqlstore: %w: no contact %s for %s", domain.ErrStore, contactAddress, localAddress)
	}
	if err != nil {
		return 0, fmt.Errorf("sqlstore: %w: contact lookup: %v", domain.ErrStore, err)
	}
	return id, nil
}
