package app

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"brongnal/internal/relayclient"
)

// Config holds runtime wiring options for building a Wire.
type Config struct {
	HomeDir    string       // config directory, e.g. $HOME/.ciphera
	RelayURL   string       // relay base URL, e.g. http://127.0.0.1:8080
	HTTPClient *http.Client // optional; a pooled default is built if nil
}

// Wire bundles the dependencies every ciphera subcommand needs.
type Wire struct {
	HomeDir string
	Relay   *relayclient.Client
}

// NewWire resolves cfg.HomeDir's default, ensures it exists, and builds the
// relay client.
func NewWire(cfg Config) (*Wire, error) {
	homeDir := cfg.HomeDir
	if homeDir == "" {
		h, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("app: resolve home dir: %w", err)
		}
		homeDir = filepath.Join(h, ".ciphera")
	}
	if err := os.MkdirAll(homeDir, 0o700); err != nil {
		return nil, fmt.Errorf("app: create config dir: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = defaultHTTPClient()
	}

	return &Wire{
		HomeDir: homeDir,
		Relay:   relayclient.New(cfg.RelayURL, httpClient),
	}, nil
}

// defaultHTTPClient mirrors the reference CLI's pooled, timeout-bounded
// transport.
func defaultHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 15 * time.Second,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   5 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
			IdleConnTimeout:       90 * time.Second,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
		},
	}
}
