package conversation_test

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"mizu/internal/domain"
	"mizu/internal/rpc"
	"mizu/internal/services/contact"
	"mizu/internal/services/conversation"
	"mizu/internal/services/identity"
	"mizu/internal/store/sqlstore"
)

type node struct {
	id       domain.Identity
	identity *identity.Service
	contact  *contact.Service
	conv     *conversation.Service
	db       *sqlstore.DB
}

func newNode(t *testing.T, client domain.PostalBoxClient, address, passphrase string) *node {
	t.Helper()
	db, err := sqlstore.Open(filepath.Join(t.TempDir(), "mizu.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	idSvc := identity.New(sqlstore.NewIdentityStore(db, address))
	id, _, err := idSvc.Generate(passphrase, address, address)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	contactSvc := contact.New(client, sqlstore.NewContactStore(db))
	if err := contactSvc.Publish(context.Background(), id); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	convSvc := conversation.New(client, sqlstore.NewSessionStore(db, passphrase), sqlstore.NewMessageStore(db))
	return &node{id: id, identity: idSvc, contact: contactSvc, conv: convSvc, db: db}
}

func TestSendSyncRoundTrip(t *testing.T) {
	ctx := context.Background()
	srv := httptest.NewServer(rpc.NewServer(false).Handler())
	t.Cleanup(srv.Close)
	client := rpc.NewClient(srv.URL, nil)

	alice := newNode(t, client, "alice.chain", "alice-pw")
	bob := newNode(t, client, "bob.chain", "bob-pw")

	aliceOnBob, err := alice.contact.Add(ctx, "alice.chain", "bob.chain")
	if err != nil {
		t.Fatalf("alice add bob: %v", err)
	}
	bobOnAlice, err := bob.contact.Add(ctx, "bob.chain", "alice.chain")
	if err != nil {
		t.Fatalf("bob add alice: %v", err)
	}

	if err := alice.conv.Send(ctx, alice.id, aliceOnBob, []byte("hello bob")); err != nil {
		t.Fatalf("alice send: %v", err)
	}

	got, err := bob.conv.Sync(ctx, bob.id, bobOnAlice)
	if err != nil {
		t.Fatalf("bob sync: %v", err)
	}
	if len(got) != 1 || !bytes.Equal(got[0], []byte("hello bob")) {
		t.Fatalf("unexpected sync result: %+v", got)
	}

	// A second sync with nothing new posted should be a no-op, not an error.
	again, err := bob.conv.Sync(ctx, bob.id, bobOnAlice)
	if err != nil {
		t.Fatalf("bob second sync: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("expected no new messages, got %+v", again)
	}

	if err := bob.conv.Send(ctx, bob.id, bobOnAlice, []byte("hi alice")); err != nil {
		t.Fatalf("bob reply: %v", err)
	}
	gotReply, err := alice.conv.Sync(ctx, alice.id, aliceOnBob)
	if err != nil {
		t.Fatalf("alice sync reply: %v", err)
	}
	if len(gotReply) != 1 || !bytes.Equal(gotReply[0], []byte("hi alice")) {
		t.Fatalf("unexpected reply: %+v", gotReply)
	}
}

func TestPokeAndDrain(t *testing.T) {
	ctx := context.Background()
	srv := httptest.NewServer(rpc.NewServer(false).Handler())
	t.Cleanup(srv.Close)
	client := rpc.NewClient(srv.URL, nil)

	alice := newNode(t, client, "alice.chain", "alice-pw")
	bob := newNode(t, client, "bob.chain", "bob-pw")

	bobAsContact, err := alice.contact.Add(ctx, "alice.chain", "bob.chain")
	if err != nil {
		t.Fatalf("alice add bob: %v", err)
	}

	if err := alice.contact.Poke(ctx, bobAsContact, "alice.chain"); err != nil {
		t.Fatalf("Poke: %v", err)
	}

	senders, err := bob.contact.DrainPokes(ctx, bob.id)
	if err != nil {
		t.Fatalf("DrainPokes: %v", err)
	}
	if len(senders) != 1 || senders[0] != "alice.chain" {
		t.Fatalf("unexpected pokes: %+v", senders)
	}
}
