package sqlstore_test

import (
	"path/filepath"
	"testing"

	"mizu/internal/crypto"
	"mizu/internal/domain"
	"mizu/internal/store/sqlstore"
)

func openTestDB(t *testing.T) *sqlstore.DB {
	t.Helper()
	db, err := sqlstore.Open(filepath.Join(t.TempDir(), "mizu.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func makeIdentity(t *testing.T, address string) domain.Identity {
	t.Helper()
	xPriv, xPub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	spkPriv, spkPub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519 (spk): %v", err)
	}
	edPriv, edPub, err := crypto.GenerateEd25519()
	if err != nil {
		t.Fatalf("GenerateEd25519: %v", err)
	}
	return domain.Identity{
		IdentityPriv:       xPriv,
		IdentityPub:        xPub,
		SignedPrekeyPriv:   spkPriv,
		SignedPrekeyPub:    spkPub,
		AddressSigningPriv: edPriv,
		AddressSigningPub:  edPub,
		Address:            address,
		Name:               "alice",
	}
}

func TestIdentityStoreSaveLoad(t *testing.T) {
	db := openTestDB(t)
	identity := makeIdentity(t, "alice.chain")

	store := sqlstore.NewIdentityStore(db, identity.Address)
	if store.Exists() {
		t.Fatal("expected no identity before Save")
	}
	if err := store.Save("pw", identity); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !store.Exists() {
		t.Fatal("expected identity to exist after Save")
	}

	got, err := store.Load("pw")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.IdentityPub != identity.IdentityPub || got.Address != identity.Address {
		t.Fatalf("mismatch after load: %+v", got)
	}

	if _, err := store.Load("wrong"); err == nil {
		t.Fatal("expected error with wrong passphrase")
	}
}

func TestContactStoreSaveLoadList(t *testing.T) {
	db := openTestDB(t)
	contacts := sqlstore.NewContactStore(db)

	c := domain.Contact{Name: "bob", Address: "bob.chain", LastFetchedAt: 42}
	c.IdentityPub[0] = 1
	c.SignedPrekeyPub[0] = 2
	c.AddressSigningPub[0] = 3

	if err := contacts.SaveContact("alice.chain", c); err != nil {
		t.Fatalf("SaveContact: %v", err)
	}

	got, ok, err := contacts.LoadContact("alice.chain", "bob.chain")
	if err != nil {
		t.Fatalf("LoadContact: %v", err)
	}
	if !ok {
		t.Fatal("expected contact to be found")
	}
	if got.Name != "bob" || got.IdentityPub != c.IdentityPub {
		t.Fatalf("mismatch: %+v", got)
	}

	list, err := contacts.ListContacts("alice.chain")
	if err != nil {
		t.Fatalf("ListContacts: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 contact, got %d", len(list))
	}
}

func TestSessionStoreSaveLoad(t *testing.T) {
	db := openTestDB(t)
	identity := makeIdentity(t, "alice.chain")
	if err := sqlstore.NewIdentityStore(db, identity.Address).Save("pw", identity); err != nil {
		t.Fatalf("save identity: %v", err)
	}
	contact := domain.Contact{Name: "bob", Address: "bob.chain"}
	if err := sqlstore.NewContactStore(db).SaveContact(identity.Address, contact); err != nil {
		t.Fatalf("save contact: %v", err)
	}

	sessions := sqlstore.NewSessionStore(db, "pw")
	sess := domain.Session{State: domain.SessionEstablished, LatestMessageTimestamp: 99}
	sess.Ratchet.RootKey = [32]byte{7}
	sess.Ratchet.Skipped = map[string][]byte{}

	if err := sessions.SaveSession(identity.Address, contact.Address, sess); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	got, ok, err := sessions.LoadSession(identity.Address, contact.Address)
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if !ok {
		t.Fatal("expected session to be found")
	}
	if got.State != sess.State || got.LatestMessageTimestamp != sess.LatestMessageTimestamp {
		t.Fatalf("mismatch: %+v", got)
	}

	all, err := sessions.ListSessions(identity.Address)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 session, got %d", len(all))
	}
}

func TestMessageStoreSaveList(t *testing.T) {
	db := openTestDB(t)
	identity := makeIdentity(t, "alice.chain")
	if err := sqlstore.NewIdentityStore(db, identity.Address).Save("pw", identity); err != nil {
		t.Fatalf("save identity: %v", err)
	}
	contact := domain.Contact{Name: "bob", Address: "bob.chain"}
	if err := sqlstore.NewContactStore(db).SaveContact(identity.Address, contact); err != nil {
		t.Fatalf("save contact: %v", err)
	}

	messages := sqlstore.NewMessageStore(db)
	m := domain.PlaintextMessage{ContactAddress: contact.Address, Content: []byte("hi"), Direction: domain.DirectionOutgoing, Timestamp: 1}
	if err := messages.SaveMessage(identity.Address, m); err != nil {
		t.Fatalf("SaveMessage: %v", err)
	}

	got, err := messages.ListMessages(identity.Address, contact.Address, 0)
	if err != nil {
		t.Fatalf("ListMessages: %v", err)
	}
	if len(got) != 1 || string(got[0].Content) != "hi" || got[0].Direction != domain.DirectionOutgoing {
		t.Fatalf("mismatch: %+v", got)
	}
}
