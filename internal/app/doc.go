// Package app wires the ciphera CLI's dependencies: the relay HTTP client
// and the on-disk home directory the local identity file lives under.
// cmd/ciphera/commands builds a Config from flags, calls NewWire once in
// its PersistentPreRunE, and reaches into the result from each
// subcommand.
package app
