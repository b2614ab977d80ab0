// Package keyring manages the symmetric keys behind envelope
// encryption.
//
// The ring is an append-only JSON-lines log: every status change is a
// new record, and the effective state of a key ID is its most recent
// record. Rotation retires the current active key and appends a fresh
// one without ever deleting material, so artifacts sealed under
// retired keys remain decryptable indefinitely.
//
// The cipher half of the package seals and opens artifact payloads
// with ChaCha20-Poly1305 (256-bit key, 96-bit random nonce per call,
// 128-bit tag). A tag mismatch is a hard ErrAuthenticationFailed;
// partial plaintext is never returned.
package keyring
