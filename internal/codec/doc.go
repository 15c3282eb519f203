// Package codec encodes and decodes the fixed binary postal-box
// envelope: a tag byte followed by a body whose layout depends on the
// tag. This wire format is a compact byte string suitable for posting
// to an append-only on-chain log, unlike a JSON-over-HTTP envelope.
package codec
