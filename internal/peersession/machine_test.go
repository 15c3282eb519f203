package peersession_test

import (
	"testing"

	"mizu/internal/crypto"
	"mizu/internal/domain"
	"mizu/internal/peersession"
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

func TestSendReceiveRoundTrip(t *testing.T) {
	alice := makeIdentity(t, "alice.chain")
	bob := makeIdentity(t, "bob.chain")

	var aliceSess, bobSess domain.Session

	out, err := peersession.Send(alice, contactOf(bob), &aliceSess, []byte("hi bob"))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if out.Kind != domain.EnvelopeInitial {
		t.Fatalf("expected EnvelopeInitial, got %v", out.Kind)
	}
	if aliceSess.State != domain.SessionAwaitingResponse {
		t.Fatalf("expected AwaitingResponse, got %v", aliceSess.State)
	}

	pt, err := peersession.Receive(bob, contactOf(alice), &bobSess, out.Kind, out.Initial, out.Header, out.Ciphertext, 1)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if string(pt) != "hi bob" {
		t.Fatalf("got plaintext %q", pt)
	}
	if bobSess.State != domain.SessionEstablished {
		t.Fatalf("expected Established, got %v", bobSess.State)
	}
	if bobSess.LatestMessageTimestamp != 1 {
		t.Fatalf("expected high-water mark 1, got %d", bobSess.LatestMessageTimestamp)
	}

	// Bob replies; Alice's session is still AwaitingResponse until she
	// processes a ratchet envelope back.
	out2, err := peersession.Send(bob, contactOf(alice), &bobSess, []byte("hi alice"))
	if err != nil {
		t.Fatalf("Send (reply): %v", err)
	}
	if out2.Kind != domain.EnvelopeRatchet {
		t.Fatalf("expected EnvelopeRatchet for an established session, got %v", out2.Kind)
	}

	pt2, err := peersession.Receive(alice, contactOf(bob), &aliceSess, out2.Kind, out2.Initial, out2.Header, out2.Ciphertext, 2)
	if err != nil {
		t.Fatalf("Receive (reply): %v", err)
	}
	if string(pt2) != "hi alice" {
		t.Fatalf("got plaintext %q", pt2)
	}
	if aliceSess.State != domain.SessionEstablished {
		t.Fatalf("expected Established, got %v", aliceSess.State)
	}
}

func TestQuarantineLeavesHighWaterMarkUntouched(t *testing.T) {
	alice := makeIdentity(t, "alice.chain")
	bob := makeIdentity(t, "bob.chain")

	var aliceSess, bobSess domain.Session

	// Establish a real session in both directions so Alice has a
	// receiving chain pinned to Bob's ratchet key.
	out, err := peersession.Send(alice, contactOf(bob), &aliceSess, []byte("first"))
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if _, err := peersession.Receive(bob, contactOf(alice), &bobSess, out.Kind, out.Initial, out.Header, out.Ciphertext, 5); err != nil {
		t.Fatalf("Receive: %v", err)
	}
	reply, err := peersession.Send(bob, contactOf(alice), &bobSess, []byte("second"))
	if err != nil {
		t.Fatalf("bob Send: %v", err)
	}
	if _, err := peersession.Receive(alice, contactOf(bob), &aliceSess, reply.Kind, reply.Initial, reply.Header, reply.Ciphertext, 6); err != nil {
		t.Fatalf("alice Receive: %v", err)
	}

	// Forge a ratchet envelope on Bob's same chain claiming an index
	// far beyond anything cached, forcing the skipped-key window past
	// its bound.
	badHeader := reply.Header
	badHeader.N += 100000

	before := aliceSess.LatestMessageTimestamp
	_, err = peersession.Receive(alice, contactOf(bob), &aliceSess, domain.EnvelopeRatchet, nil, badHeader, reply.Ciphertext, 99)
	if domain.Kind(err) != "too_many_skipped" {
		t.Fatalf("expected too_many_skipped, got %v", err)
	}
	if aliceSess.State != domain.SessionQuarantined {
		t.Fatalf("expected Quarantined, got %v", aliceSess.State)
	}
	if aliceSess.LatestMessageTimestamp != before {
		t.Fatalf("expected high-water mark untouched at %d, got %d", before, aliceSess.LatestMessageTimestamp)
	}
}

func TestSimultaneousInitiationTieBreak(t *testing.T) {
	alice := makeIdentity(t, "alice.chain")
	bob := makeIdentity(t, "bob.chain")

	var aliceSess, bobSess domain.Session

	aliceOut, err := peersession.Send(alice, contactOf(bob), &aliceSess, []byte("alice hello"))
	if err != nil {
		t.Fatalf("alice Send: %v", err)
	}
	bobOut, err := peersession.Send(bob, contactOf(alice), &bobSess, []byte("bob hello"))
	if err != nil {
		t.Fatalf("bob Send: %v", err)
	}

	// Each side now receives the other's InitialMessage while still
	// AwaitingResponse. Exactly one side's handshake should survive.
	alicePt, aliceErr := peersession.Receive(alice, contactOf(bob), &aliceSess, bobOut.Kind, bobOut.Initial, bobOut.Header, bobOut.Ciphertext, 10)
	bobPt, bobErr := peersession.Receive(bob, contactOf(alice), &bobSess, aliceOut.Kind, aliceOut.Initial, aliceOut.Header, aliceOut.Ciphertext, 11)

	aliceWon := aliceErr == nil && alicePt != nil
	bobWon := bobErr == nil && bobPt != nil
	if aliceWon == bobWon {
		t.Fatalf("expected exactly one side to win the tie-break, aliceWon=%v bobWon=%v (aliceErr=%v bobErr=%v)", aliceWon, bobWon, aliceErr, bobErr)
	}
}
