package codec_test

import (
	"testing"

	"mizu/internal/crypto"
	"mizu/internal/domain"
)

func makeTestIdentity(t *testing.T) domain.Identity {
	t.Helper()
	xPriv, xPub, err := crypto.GenerateX25519()
	if err != nil {
		t.Fatalf("GenerateX25519: %v", err)
	}
	return domain.Identity{IdentityPriv: xPriv, IdentityPub: xPub}
}
