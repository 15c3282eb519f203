package contact_test

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"mizu/internal/crypto"
	"mizu/internal/domain"
	"mizu/internal/rpc"
	"mizu/internal/services/contact"
	"mizu/internal/services/identity"
	"mizu/internal/store/sqlstore"
)

func newIdentitySvc(t *testing.T, address string) *identity.Service {
	t.Helper()
	db, err := sqlstore.Open(filepath.Join(t.TempDir(), "mizu.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return identity.New(sqlstore.NewIdentityStore(db, address))
}

func newContactStore(t *testing.T) domain.ContactStore {
	t.Helper()
	db, err := sqlstore.Open(filepath.Join(t.TempDir(), "mizu.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return sqlstore.NewContactStore(db)
}

func newClient(t *testing.T) domain.PostalBoxClient {
	t.Helper()
	srv := httptest.NewServer(rpc.NewServer(false).Handler())
	t.Cleanup(srv.Close)
	return rpc.NewClient(srv.URL, nil)
}

func TestPublishAndAdd(t *testing.T) {
	ctx := context.Background()
	client := newClient(t)

	aliceIDSvc := newIdentitySvc(t, "alice.chain")
	alice, _, err := aliceIDSvc.Generate("pw", "alice.chain", "alice")
	if err != nil {
		t.Fatalf("Generate alice: %v", err)
	}

	aliceContacts := contact.New(client, newContactStore(t))
	if err := aliceContacts.Publish(ctx, alice); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	bobContacts := contact.New(client, newContactStore(t))
	got, err := bobContacts.Add(ctx, "bob.chain", "alice.chain")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got.IdentityPub != alice.IdentityPub || got.Name != "alice" {
		t.Fatalf("mismatch: %+v", got)
	}
}

func TestAddRejectsBadSignature(t *testing.T) {
	ctx := context.Background()
	client := newClient(t)

	_, edPub, err := crypto.GenerateEd25519()
	if err != nil {
		t.Fatalf("GenerateEd25519: %v", err)
	}
	_, xPub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}

	bad := domain.PrekeyBundle{
		Address:           "mallory.chain",
		Name:              "mallory",
		IdentityPub:       xPub,
		AddressSigningPub: edPub,
		AddressSig:        []byte("not-a-real-signature-------------------------------------------"),
		SignedPrekeyPub:   xPub,
		PrekeyEpoch:       1,
		PrekeySig:         []byte("also-not-real--------------------------------------------------"),
	}
	if err := client.Register(ctx, "mallory.chain", bad); err != nil {
		t.Fatalf("Register: %v", err)
	}

	svc := contact.New(client, newContactStore(t))
	if _, err := svc.Add(ctx, "bob.chain", "mallory.chain"); err == nil {
		t.Fatal("expected signature verification to fail")
	}
}
