// Package identity manages creation, encryption and loading of the
// local identity, and signed-prekey rotation.
//
// It enforces the X25519/Ed25519 key generation the rest of the
// system depends on and persists the result via a domain.IdentityStore.
package identity
