package x3dh_test

import (
	"testing"

	"mizu/internal/crypto"
	"mizu/internal/domain"
	"mizu/internal/protocol/x3dh"
)

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
	}
}

func contactOf(id domain.Identity) domain.Contact {
	return domain.Contact{
		IdentityPub:       id.IdentityPub,
		SignedPrekeyPub:   id.SignedPrekeyPub,
		AddressSigningPub: id.AddressSigningPub,
		Address:           id.Address,
	}
}

func TestBeginAndAcceptAgreeOnRoot(t *testing.T) {
	alice := makeIdentity(t, "alice.chain")
	bob := makeIdentity(t, "bob.chain")

	hs, rootA, err := x3dh.BeginAsInitiator(alice, contactOf(bob))
	if err != nil {
		t.Fatalf("BeginAsInitiator: %v", err)
	}

	rootB, spkPriv, err := x3dh.AcceptAsResponder(bob, alice.IdentityPub, hs.EphemeralPub, hs.UsedPrekeyPub)
	if err != nil {
		t.Fatalf("AcceptAsResponder: %v", err)
	}
	if spkPriv != bob.SignedPrekeyPriv {
		t.Fatal("expected the current signed prekey to match")
	}

	if rootA != rootB {
		t.Fatal("initiator and responder derived different root keys")
	}
}

func TestAcceptAsResponderHonoursPreviousPrekey(t *testing.T) {
	alice := makeIdentity(t, "alice.chain")
	bob := makeIdentity(t, "bob.chain")

	// Alice begins against Bob's current prekey.
	contact := contactOf(bob)
	hs, rootA, err := x3dh.BeginAsInitiator(alice, contact)
	if err != nil {
		t.Fatalf("BeginAsInitiator: %v", err)
	}

	// Bob rotates his signed prekey before fetching Alice's message.
	newPriv, newPub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	bob.PrevSignedPrekeyPriv = bob.SignedPrekeyPriv
	bob.PrevSignedPrekeyPub = bob.SignedPrekeyPub
	bob.HasPrevPrekey = true
	bob.SignedPrekeyPriv = newPriv
	bob.SignedPrekeyPub = newPub

	rootB, spkPriv, err := x3dh.AcceptAsResponder(bob, alice.IdentityPub, hs.EphemeralPub, hs.UsedPrekeyPub)
	if err != nil {
		t.Fatalf("AcceptAsResponder with rotated prekey: %v", err)
	}
	if spkPriv != bob.PrevSignedPrekeyPriv {
		t.Fatal("expected the previous signed prekey to match")
	}
	if rootA != rootB {
		t.Fatal("root keys differ when accepting against the previous prekey")
	}
}

func TestAcceptAsResponderRejectsUnknownPrekey(t *testing.T) {
	alice := makeIdentity(t, "alice.chain")
	bob := makeIdentity(t, "bob.chain")

	hs, _, err := x3dh.BeginAsInitiator(alice, contactOf(bob))
	if err != nil {
		t.Fatalf("BeginAsInitiator: %v", err)
	}

	// Bob rotates twice, so the prekey Alice used is neither current
	// nor immediately previous.
	bob.PrevSignedPrekeyPriv = bob.SignedPrekeyPriv
	_, prevPub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	bob.PrevSignedPrekeyPub = prevPub // not the one Alice actually used
	bob.HasPrevPrekey = true
	newPriv2, newPub2, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	bob.SignedPrekeyPriv = newPriv2
	bob.SignedPrekeyPub = newPub2

	if _, _, err := x3dh.AcceptAsResponder(bob, alice.IdentityPub, hs.EphemeralPub, hs.UsedPrekeyPub); err == nil {
		t.Fatal("expected unknown prekey error")
	} else if domain.Kind(err) != "unknown_prekey" {
		t.Fatalf("expected unknown_prekey kind, got %q (%v)", domain.Kind(err), err)
	}
}
