package sqlstore

import (
	"fmt"

	"mizu/internal/domain"
)

// MessageStore records plaintext messages in the messages table for
// local history.
type MessageStore struct {
	db *DB
}

// NewMessageStore returns a MessageStore over db.
func NewMessageStore(db *DB) *MessageStore {
	return &MessageStore{db: db}
}

var _ domain.MessageStore = (*MessageStore)(nil)

func (s *MessageStore) SaveMessage(localAddress string, m domain.PlaintextMessage) error {
	identityID, err := s.identityID(localAddress)
	if err != nil {
		return err
	}
	contactID, err := s.contactID(localAddress, m.ContactAddress)
	if err != nil {
		return err
	}

	outbound := 0
	if m.Direction == domain.DirectionOutgoing {
		outbound = 1
	}

	_, err = s.db.conn.Exec(
		`INSERT INTO messages (identity_id, contact_id, content, outbound_flag, timestamp) VALUES (?, ?, ?, ?, ?)`,
		identityID, contactID, m.Content, outbound, m.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("sqlstore: %w: save message: %v", domain.ErrStore, err)
	}
	return nil
}

func (s *MessageStore) ListMessages(localAddress, contactAddress string, limit int) ([]domain.PlaintextMessage, error) {
	identityID, err := s.identityID(localAddress)
	if err != nil {
		return nil, err
	}
	contactID, err := s.contactID(localAddress, contactAddress)
	if err != nil {
		return nil, err
	}

	query := `SELECT content, outbound_flag, timestamp FROM messages
	          WHERE identity_id = ? AND contact_id = ? ORDER BY timestamp ASC`
	args := []any{identityID, contactID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: %w: list messages: %v", domain.ErrStore, err)
	}
	defer rows.Close()

	var out []domain.PlaintextMessage
	for rows.Next() {
		m := domain.PlaintextMessage{ContactAddress: contactAddress}
		var outbound int
		if err := rows.Scan(&m.Content, &outbound, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("sqlstore: %w: scan message: %v", domain.ErrStore, err)
		}
		if outbound == 1 {
			m.Direction = domain.DirectionOutgoing
		} else {
			m.Direction = domain.DirectionIncoming
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *MessageStore) identityID(address string) (int64, error) {
	var id int64
	err := s.db.conn.QueryRow(`SELECT id FROM identities WHERE address = ?`, address).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("sqlstore: %w: identity lookup: %v", domain.ErrStore, err)
	}
	return id, nil
}

func (s *MessageStore) contactID(localAddress, contactAddress string) (int64, error) {
	var id int64
	err := s.db.conn.QueryRow(
		`SELECT id FROM contacts WHERE local_address = ? AND address = ?`,
		localAddress, contactAddress,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("sqlstore: %w: contact lookup: %v", domain.ErrStore, err)
	}
	return id, nil
}
