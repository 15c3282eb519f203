// Package rpc is the HTTP client/server pair standing in for the
// postal-box contract sidecar: register a prekey bundle, fetch a
// peer's, post an envelope, fetch a box's entries since an index, and
// poke/fetch-pokes for discovery. The wire format is JSON with
// base64-encoded key and ciphertext fields, since the fixed-width
// binary envelope codec (internal/codec) is what actually goes inside
// the opaque Content field here.
package rpc
