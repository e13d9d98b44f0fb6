package relayclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"brongnal/internal/domain"
)

// Client is a thin HTTP client for the relay's Register /
// PublishOneTimeKeys / RequestPreKeys / SendMessage / RetrieveMessages
// operations.
type Client struct {
	base string
	http *http.Client
}

// New returns a Client against base (e.g. "http://127.0.0.1:8080"). If
// httpClient is nil, http.DefaultClient is used.
func New(base string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{base: base, http: httpClient}
}

// errResponse is the shape cmd/relay's writeErr produces.
type errResponse struct {
	Error string `json:"error"`
}

// statusErr maps an HTTP status from the relay back to a domain sentinel
// error, reversing cmd/relay's errStatus where it can: a 404 always maps to
// domain.ErrUnknownUser and a 400 to domain.ErrInvalidEncoding, so
// ErrUnknownOneTimeKey and ErrBundleVerifyFailed are not recovered.
func statusErr(status int, body []byte) error {
	var e errResponse
	_ = json.Unmarshal(body, &e)
	msg := e.Error
	if msg == "" {
		msg = http.StatusText(status)
	}
	switch status {
	case http.StatusNotFound:
		return fmt.Errorf("relayclient: %s: %w", msg, domain.ErrUnknownUser)
	case http.StatusBadRequest:
		return fmt.Errorf("relayclient: %s: %w", msg, domain.ErrInvalidEncoding)
	case http.StatusServiceUnavailable:
		return fmt.Errorf("relayclient: %s: %w", msg, domain.ErrDirectoryUnavailable)
	default:
		return fmt.Errorf("relayclient: unexpected status %d: %s", status, msg)
	}
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("relayclient: encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("relayclient: new request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("relayclient: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("relayclient: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusErr(resp.StatusCode, respBody)
	}
	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("relayclient: decode response: %w", err)
		}
	}
	return nil
}

// Register publishes identity, its identity key, and signed prekey.
func (c *Client) Register(ctx context.Context, req domain.RegisterRequest) error {
	return c.do(ctx, http.MethodPost, "/register", req, nil)
}

// PublishOneTimeKeys appends a signed batch of one-time prekeys.
func (c *Client) PublishOneTimeKeys(ctx context.Context, req domain.PublishOneTimeKeysRequest) error {
	return c.do(ctx, http.MethodPost, "/prekeys", req, nil)
}

// RequestPreKeys fetches identity's current prekey bundle, popping one
// one-time key from the pool if one is available.
func (c *Client) RequestPreKeys(ctx context.Context, identity string) (domain.PreKeyBundle, error) {
	var bundle domain.PreKeyBundle
	err := c.do(ctx, http.MethodGet, "/prekey/"+identity, nil, &bundle)
	return bundle, err
}

// SendMessage enqueues an initial message for req.Recipient.
func (c *Client) SendMessage(ctx context.Context, req domain.SendMessageRequest) error {
	return c.do(ctx, http.MethodPost, "/message/"+req.Recipient, req, nil)
}

// RetrieveMessages drains and returns every message queued for identity.
func (c *Client) RetrieveMessages(ctx context.Context, identity string) ([]domain.InitialMessage, error) {
	var resp domain.RetrieveMessagesResponse
	err := c.do(ctx, http.MethodGet, "/messages/"+identity, nil, &resp)
	return resp.Messages, err
}
