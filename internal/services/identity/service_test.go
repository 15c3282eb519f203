package identity_test

import (
	"path/filepath"
	"testing"

	"mizu/internal/protocol/x3dh"
	"mizu/internal/services/identity"
	"mizu/internal/store/sqlstore"
)

func newStore(t *testing.T, address string) *sqlstore.IdentityStore {
	t.Helper()
	db, err := sqlstore.Open(filepath.Join(t.TempDir(), "mizu.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return sqlstore.NewIdentityStore(db, address)
}

func TestGenerateLoadFingerprint(t *testing.T) {
	svc := identity.New(newStore(t, "alice.chain"))

	id, fp, err := svc.Generate("hunter2", "alice.chain", "alice")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if fp == "" {
		t.Fatal("expected non-empty fingerprint")
	}

	if _, _, err := svc.Generate("hunter2", "alice.chain", "alice"); err == nil {
		t.Fatal("expected error generating a second identity over an existing one")
	}

	got, err := svc.Load("hunter2")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Address != id.Address || got.IdentityPub != id.IdentityPub {
		t.Fatalf("mismatch after load: %+v", got)
	}

	again, err := svc.Fingerprint("hunter2")
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if again != fp {
		t.Fatalf("fingerprint changed: %s vs %s", again, fp)
	}
}

func TestRotateSignedPrekeyKeepsGraceWindow(t *testing.T) {
	svc := identity.New(newStore(t, "bob.chain"))
	orig, _, err := svc.Generate("pw", "bob.chain", "bob")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	rotated, err := svc.RotateSignedPrekey("pw")
	if err != nil {
		t.Fatalf("RotateSignedPrekey: %v", err)
	}
	if rotated.SignedPrekeyPub == orig.SignedPrekeyPub {
		t.Fatal("expected a fresh signed prekey after rotation")
	}
	if !rotated.HasPrevPrekey || rotated.PrevSignedPrekeyPub != orig.SignedPrekeyPub {
		t.Fatalf("expected previous prekey preserved for the grace window: %+v", rotated)
	}
	if rotated.PrekeyEpoch != orig.PrekeyEpoch+1 {
		t.Fatalf("expected epoch to advance, got %d -> %d", orig.PrekeyEpoch, rotated.PrekeyEpoch)
	}
}

func TestSignBundleVerifies(t *testing.T) {
	svc := identity.New(newStore(t, "carol.chain"))
	id, _, err := svc.Generate("pw", "carol.chain", "carol")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	bundle := identity.SignBundle(id)
	if !x3dh.VerifyAddressBinding(bundle.AddressSigningPub, bundle.IdentityPub, bundle.AddressSig) {
		t.Fatal("address binding signature does not verify")
	}
	if !x3dh.VerifySignedPrekey(bundle.AddressSigningPub, bundle.SignedPrekeyPub, bundle.PrekeyEpoch, bundle.PrekeySig) {
		t.Fatal("signed prekey signature does not verify")
	}
}
