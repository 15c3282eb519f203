// Package blobcodec encodes a domain.Session as the opaque,
// versioned, passphrase-encrypted byte string mizu persists in the
// local store: magic(4) || version(u16) || payload. The payload is a
// JSON document encrypted at rest with crypto.EncryptSecret, the same
// Argon2id + ChaCha20-Poly1305 wrapper used for the on-disk identity
// file.
package blobcodec
