package conversation

import (
	"context"
	"fmt"
	"time"

	"mizu/internal/codec"
	"mizu/internal/domain"
	"mizu/internal/peersession"
)

// fetchBatch bounds how many postal box entries a single Sync call
// pulls for one contact, so one very chatty peer can't starve the
// others in a round-robin sync loop.
const fetchBatch = 200

// Service sends and receives messages with a contact, threading
// peersession state through the local stores and the postal-box RPC
// client.
type Service struct {
	client   domain.PostalBoxClient
	sessions domain.SessionStore
	messages domain.MessageStore
}

// New constructs a conversation Service.
func New(client domain.PostalBoxClient, sessions domain.SessionStore, messages domain.MessageStore) *Service {
	return &Service{client: client, sessions: sessions, messages: messages}
}

// mailbox derives the shared postal box address a and b both post
// into and fetch from for their conversation: a deterministic,
// order-independent combination of the two addresses, so either side
// computes the same string without a round trip to agree on one. This
// keeps each (identity, contact) pair's entries in a stream of their
// own rather than mixed into one shared per-recipient inbox, which
// would otherwise need sender demultiplexing that Ratchet-kind
// envelopes don't carry enough information to do.
func mailbox(a, b string) string {
	if a < b {
		return a + "|" + b
	}
	return b + "|" + a
}

func (s *Service) loadOrNewSession(localAddress, contactAddress string) (domain.Session, error) {
	sess, found, err := s.sessions.LoadSession(localAddress, contactAddress)
	if err != nil {
		return domain.Session{}, err
	}
	if !found {
		sess = domain.Session{LocalAddress: localAddress, ContactAddress: contactAddress, State: domain.SessionNone}
	}
	return sess, nil
}

// Send encrypts plaintext for contact, starting a handshake if this
// is the first message, posts it to the pair's shared postal box (see
// mailbox), and records it in local history.
func (s *Service) Send(ctx context.Context, id domain.Identity, c domain.Contact, plaintext []byte) error {
	sess, err := s.loadOrNewSession(id.Address, c.Address)
	if err != nil {
		return fmt.Errorf("conversation: load session: %w", err)
	}

	out, err := peersession.Send(id, c, &sess, plaintext)
	if err != nil {
		return fmt.Errorf("conversation: %w", err)
	}

	var raw []byte
	switch out.Kind {
	case domain.EnvelopeInitial:
		raw = codec.EncodeInitial(codec.Initial{
			SenderIdentityPub:  out.Initial.SenderIdentityPub,
			EphemeralPub:       out.Initial.EphemeralPub,
			RecipientPrekeyPub: out.Initial.RecipientPrekeyPub,
		}, out.Header, out.Ciphertext)
	default:
		raw = codec.EncodeRatchet(out.Header, out.Ciphertext)
	}

	if err := s.client.Post(ctx, mailbox(id.Address, c.Address), raw); err != nil {
		return fmt.Errorf("conversation: post: %w", err)
	}
	if err := s.sessions.SaveSession(id.Address, c.Address, sess); err != nil {
		return fmt.Errorf("conversation: save session: %w", err)
	}

	return s.messages.SaveMessage(id.Address, domain.PlaintextMessage{
		ContactAddress: c.Address,
		Content:        plaintext,
		Direction:      domain.DirectionOutgoing,
		Timestamp:      time.Now().Unix(),
	})
}

// Sync fetches any postal box entries from c posted after this
// session's resume cursor, decrypts what it can, appends decrypted
// messages to local history, and persists the advanced session state.
// It returns the plaintexts it decrypted, in order.
//
// The resume cursor is domain.Session.LatestMessageTimestamp: despite
// the name, Sync stores the postal box entry's Index there (not wall
// clock time), since that's what Fetch's sinceIndex parameter needs to
// avoid reprocessing the same entries after a restart.
func (s *Service) Sync(ctx context.Context, id domain.Identity, c domain.Contact) ([][]byte, error) {
	sess, err := s.loadOrNewSession(id.Address, c.Address)
	if err != nil {
		return nil, fmt.Errorf("conversation: load session: %w", err)
	}
	if sess.State == domain.SessionQuarantined {
		return nil, fmt.Errorf("conversation: %w: session with %s is quarantined", domain.ErrNoSession, c.Address)
	}

	entries, err := s.client.Fetch(ctx, mailbox(id.Address, c.Address), uint64(sess.LatestMessageTimestamp), fetchBatch)
	if err != nil {
		return nil, fmt.Errorf("conversation: fetch: %w", err)
	}

	var out [][]byte
	for _, entry := range entries {
		decoded, err := codec.Decode(entry.Content)
		if err != nil {
			// Malformed entry: skip it but still advance the cursor so
			// it isn't retried forever.
			sess.LatestMessageTimestamp = int64(entry.Index)
			continue
		}

		var initial *peersession.InitialFields
		if decoded.Initial != nil {
			initial = &peersession.InitialFields{
				SenderIdentityPub:  decoded.Initial.SenderIdentityPub,
				EphemeralPub:       decoded.Initial.EphemeralPub,
				RecipientPrekeyPub: decoded.Initial.RecipientPrekeyPub,
			}
		}

		pt, err := peersession.Receive(id, c, &sess, decoded.Kind, initial, decoded.Header, decoded.Ciphertext, int64(entry.Index))
		if err != nil {
			if domain.Kind(err) == "too_many_skipped" {
				break // session is now quarantined; stop processing this contact
			}
			continue // discarded: replay, auth failure, etc. Cursor already advanced by finish().
		}
		if pt == nil {
			continue // benign skip (tie-break loser, etc.)
		}

		out = append(out, pt)
		if err := s.messages.SaveMessage(id.Address, domain.PlaintextMessage{
			ContactAddress: c.Address,
			Content:        pt,
			Direction:      domain.DirectionIncoming,
			Timestamp:      time.Now().Unix(),
		}); err != nil {
			return out, fmt.Errorf("conversation: save message: %w", err)
		}
	}

	if err := s.sessions.SaveSession(id.Address, c.Address, sess); err != nil {
		return out, fmt.Errorf("conversation: save session: %w", err)
	}
	return out, nil
}
