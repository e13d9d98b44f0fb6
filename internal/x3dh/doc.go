// Package x3dh implements the sender and receiver halves of X3DH: SPK
// signature verification, the four (or three) Diffie-Hellman computations
// in their normative concatenation order, root-key derivation, associated-
// data binding, and the AEAD encrypt/decrypt of the initial message.
//
// Neither half touches the client key store or the directory directly;
// callers supply key material and get back an InitialMessage (sender) or
// plaintext plus session key (receiver). internal/clientstore and
// internal/directory own persistence and consumption bookkeeping.
package x3dh
