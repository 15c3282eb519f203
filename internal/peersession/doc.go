// Package peersession drives the four-state session machine that sits
// above X3DH and the Double Ratchet: it decides, for a given
// (identity, contact) pair and an incoming or outgoing payload,
// whether to start a handshake, accept one, resolve a simultaneous
// initiation, or hand straight off to the ratchet. See machine.go.
package peersession
