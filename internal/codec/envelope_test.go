package codec_test

import (
	"bytes"
	"testing"

	"mizu/internal/codec"
	"mizu/internal/domain"
)

func TestEncodeDecodeRatchet(t *testing.T) {
	header := domain.RatchetHeader{PN: 3, N: 7}
	header.DHPub[0] = 0xAB
	ciphertext := []byte("hello")

	raw := codec.EncodeRatchet(header, ciphertext)
	decoded, err := codec.Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.Kind != domain.EnvelopeRatchet {
		t.Fatalf("got kind %v", decoded.Kind)
	}
	if decoded.Header != header {
		t.Fatalf("header mismatch: got %+v want %+v", decoded.Header, header)
	}
	if !bytes.Equal(decoded.Ciphertext, ciphertext) {
		t.Fatalf("ciphertext mismatch: got %q", decoded.Ciphertext)
	}
}

func TestEncodeDecodeInitial(t *testing.T) {
	initial := codec.Initial{}
	initial.SenderIdentityPub[0] = 1
	initial.EphemeralPub[0] = 2
	initial.RecipientPrekeyPub[0] = 3
	header := domain.RatchetHeader{PN: 0, N: 0}
	ciphertext := []byte("first message")

	raw := codec.EncodeInitial(initial, header, ciphertext)
	decoded, err := codec.Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.Kind != domain.EnvelopeInitial {
		t.Fatalf("got kind %v", decoded.Kind)
	}
	if decoded.Initial == nil || *decoded.Initial != initial {
		t.Fatalf("initial fields mismatch: got %+v want %+v", decoded.Initial, initial)
	}
	if !bytes.Equal(decoded.Ciphertext, ciphertext) {
		t.Fatalf("ciphertext mismatch: got %q", decoded.Ciphertext)
	}
}

func TestDecodeRejectsUnknownTag(t *testing.T) {
	if _, err := codec.Decode([]byte{0xFF, 1, 2, 3}); err == nil {
		t.Fatal("expected error for unknown tag")
	} else if domain.Kind(err) != "codec" {
		t.Fatalf("expected codec error kind, got %q (%v)", domain.Kind(err), err)
	}
}

func TestDecodeRejectsShortEnvelope(t *testing.T) {
	if _, err := codec.Decode([]byte{}); err == nil {
		t.Fatal("expected error for empty envelope")
	}
	if _, err := codec.Decode([]byte{byte(domain.EnvelopeRatchet), 1, 2}); err == nil {
		t.Fatal("expected error for truncated ratchet header")
	}
}

func TestSealOpenRoundTrip(t *testing.T) {
	identity := makeTestIdentity(t)

	sealed, err := codec.Seal(identity.IdentityPub, "alice.chain")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	got, err := codec.Open(identity, sealed)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got != "alice.chain" {
		t.Fatalf("got address %q", got)
	}
}

func TestOpenRejectsWrongIdentity(t *testing.T) {
	recipient := makeTestIdentity(t)
	other := makeTestIdentity(t)

	sealed, err := codec.Seal(recipient.IdentityPub, "alice.chain")
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	if _, err := codec.Open(other, sealed); err == nil {
		t.Fatal("expected auth failure opening with the wrong identity")
	}
}
