// Package bundle implements the concatenate-and-sign codec used to publish
// and verify prekeys: SignBundle/VerifyBundle sign and check a signature
// over the concatenation of public keys in listed order, and
// CreatePreKeyBundle generates a fresh batch of one-time X25519 keypairs
// ready to publish.
package bundle
