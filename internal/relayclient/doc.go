// Package relayclient is the HTTP client counterpart of cmd/relay: it
// posts and fetches the same five JSON operations (Register,
// PublishOneTimeKeys, RequestPreKeys, SendMessage, RetrieveMessages)
// that the relay's ServeMux exposes, mapping non-2xx responses back to
// the domain sentinel errors by status code.
package relayclient
