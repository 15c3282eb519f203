package rpc_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"mizu/internal/crypto"
	"mizu/internal/domain"
	"mizu/internal/rpc"
)

func makeBundle(t *testing.T, address string) domain.PrekeyBundle {
	t.Helper()
	xPriv, xPub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	_ = xPriv
	spkPriv, spkPub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519 (spk): %v", err)
	}
	_ = spkPriv
	_, edPub, err := crypto.GenerateEd25519()
	if err != nil {
		t.Fatalf("GenerateEd25519: %v", err)
	}
	return domain.PrekeyBundle{
		Address:           address,
		Name:              "alice",
		IdentityPub:       xPub,
		AddressSigningPub: edPub,
		AddressSig:        []byte("sig"),
		SignedPrekeyPub:   spkPub,
		PrekeyEpoch:       1,
		PrekeySig:         []byte("sig2"),
	}
}

func newTestClient(t *testing.T) *rpc.Client {
	t.Helper()
	srv := httptest.NewServer(rpc.NewServer(false).Handler())
	t.Cleanup(srv.Close)
	return rpc.NewClient(srv.URL, nil)
}

func TestRegisterAndFetchBundle(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)
	bundle := makeBundle(t, "alice.chain")

	if err := c.Register(ctx, "alice.chain", bundle); err != nil {
		t.Fatalf("Register: %v", err)
	}

	got, err := c.FetchBundle(ctx, "alice.chain")
	if err != nil {
		t.Fatalf("FetchBundle: %v", err)
	}
	if got.Address != bundle.Address || got.IdentityPub != bundle.IdentityPub {
		t.Fatalf("mismatch: %+v", got)
	}
}

func TestFetchBundleMissing(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)
	if _, err := c.FetchBundle(ctx, "nobody.chain"); err == nil {
		t.Fatal("expected error for unregistered address")
	}
}

func TestPostAndFetchEntries(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	if err := c.Post(ctx, "bob.chain", []byte("env-1")); err != nil {
		t.Fatalf("Post: %v", err)
	}
	if err := c.Post(ctx, "bob.chain", []byte("env-2")); err != nil {
		t.Fatalf("Post: %v", err)
	}

	entries, err := c.Fetch(ctx, "bob.chain", 0, 0)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if string(entries[0].Content) != "env-1" || string(entries[1].Content) != "env-2" {
		t.Fatalf("unexpected content: %+v", entries)
	}

	since1, err := c.Fetch(ctx, "bob.chain", entries[0].Index, 0)
	if err != nil {
		t.Fatalf("Fetch since: %v", err)
	}
	if len(since1) != 1 || string(since1[0].Content) != "env-2" {
		t.Fatalf("expected only env-2 after since=%d, got %+v", entries[0].Index, since1)
	}
}

func TestPokeAndFetchPokesDrains(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	if err := c.Poke(ctx, "carol.chain", []byte("sealed-hint")); err != nil {
		t.Fatalf("Poke: %v", err)
	}

	pokes, err := c.FetchPokes(ctx, "carol.chain")
	if err != nil {
		t.Fatalf("FetchPokes: %v", err)
	}
	if len(pokes) != 1 || string(pokes[0].Content) != "sealed-hint" {
		t.Fatalf("unexpected pokes: %+v", pokes)
	}

	again, err := c.FetchPokes(ctx, "carol.chain")
	if err != nil {
		t.Fatalf("FetchPokes (drained): %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("expected poke queue drained, got %+v", again)
	}
}
