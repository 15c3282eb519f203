// Package x3dh implements the key-agreement mizu uses to bootstrap a
// Double Ratchet session between two parties who may both be offline
// at the same time.
//
// # Overview
//
// X3DH lets an initiator derive a shared 32-byte root key with a
// responder who has published a prekey bundle to their postal box.
// The bundle contains:
//   - Identity key (X25519)
//   - Signed prekey (X25519) and its Ed25519 signature
//
// There are no one-time prekeys: the asynchronous channel already
// gives forward secrecy once the Double Ratchet takes over, and
// skipping OPK bookkeeping keeps the responder's accept path
// stateless against replayed InitialMessages.
//
// # Flows
//
// Initiator (BeginAsInitiator):
//  1. Generate an ephemeral X25519 key pair.
//  2. Compute DH values (IK_A·SPK_B, EK_A·IK_B, EK_A·SPK_B).
//  3. HKDF over the concatenated DH transcript to produce the root key.
//  4. Retain the ephemeral key pair; it becomes the first Double
//     Ratchet sending key.
//
// Responder (AcceptAsResponder):
//  1. Receive the InitialMessage (sender IK, EK, recipient prekey pub).
//  2. Confirm the recipient prekey pub is the current or
//     immediately-previous signed prekey.
//  3. Compute the symmetric DH set (SPK_B·IK_A, IK_B·EK_A, SPK_B·EK_A).
//  4. HKDF the same transcript to the identical root key.
//
// # Errors
//
// domain.ErrUnknownPrekey is returned when the InitialMessage names a
// prekey the responder no longer recognises.
package x3dh
