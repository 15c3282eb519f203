// Package contact publishes a node's own prekey bundle to its postal
// box and fetches/verifies a peer's bundle before it's trusted as a
// domain.Contact.
package contact
