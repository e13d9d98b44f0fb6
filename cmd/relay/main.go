package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"brongnal/internal/directory"
	"brongnal/internal/domain"
	"brongnal/internal/metrics"
	"brongnal/internal/service"
)

// --- Flags ---

var (
	port          int    // listen port
	enableLogging bool   // logging toggle
	dbPath        string // sqlite database path
)

// --- Constants ---

// Networking and server limits.
const (
	defaultPort    = 8080
	minPort        = 0
	maxPort        = 65535
	readHeaderTO   = 5 * time.Second
	readTO         = 10 * time.Second
	writeTO        = 10 * time.Second
	idleTO         = 60 * time.Second
	maxRequestBody = 1 << 20 // 1 MiB cap for incoming JSON bodies
)

// Relay policy limits.
const (
	maxCipherBytes = 64 << 10 // 64 KiB max cipher payload
	maxOneTimeKeys = 500      // max one-time prekeys accepted per publish
)

// Context key for request ID.
type ctxKey string

const ctxKeyReqID ctxKey = "reqid"

// --- Types ---

// relay wires the HTTP surface to the C6 facade.
type relay struct {
	svc *service.Service
}

// loggingResponseWriter captures status code and byte count for access logs.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

// --- Middleware ---

// withRecover wraps a handler to convert panics into 500 responses.
func withRecover(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				writeErr(w, http.StatusInternalServerError, "internal error")
				if enableLogging {
					slog.Error("panic", "err", rec)
				}
			}
		}()
		h(w, r)
	}
}

// withReqID ensures each request has an ID for tracing.
func withReqID(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = genReqID()
		}
		w.Header().Set("X-Request-Id", id)
		ctx := context.WithValue(r.Context(), ctxKeyReqID, id)
		h(w, r.WithContext(ctx))
	}
}

// withLogging logs method, path, remote, status, bytes, duration and request ID,
// and records the Prometheus HTTP metrics for route.
func withLogging(route string) func(http.HandlerFunc) http.HandlerFunc {
	return func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w}
			h(lrw, r)
			dur := time.Since(start)

			metrics.HTTPRequestDuration.WithLabelValues(route).Observe(dur.Seconds())
			metrics.HTTPRequestsTotal.WithLabelValues(route, r.Method, fmt.Sprint(lrw.status)).Inc()

			if !enableLogging {
				return
			}
			slog.Info("access",
				"method", r.Method,
				"path", r.URL.Path,
				"remote", clientIP(r),
				"status", lrw.status,
				"bytes", lrw.bytes,
				"dur", dur,
				"reqid", requestIDFromCtx(r.Context()),
			)
		}
	}
}

// chain composes middlewares in order.
func chain(h http.HandlerFunc, mws ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// --- Utilities ---

// WriteHeader records the status code then forwards to the underlying writer.
func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

// Write records the bytes written and defaults status to 200 if unset.
func (lrw *loggingResponseWriter) Write(p []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(p)
	lrw.bytes += n
	return n, err
}

// writeJSON encodes v as JSON with no HTML escaping.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		http.Error(w, fmt.Sprintf("encode error: %v", err), http.StatusInternalServerError)
	}
}

// writeErr writes a JSON error object with a given status code.
func writeErr(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// errStatus maps a domain sentinel error to its HTTP status per the error
// handling design: unknown user/one-time-key and bundle-verify failures are
// client errors, decrypt failures never reach this layer (the relay holds
// no session keys), and storage unavailability is a 503.
func errStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnknownUser):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnknownOneTimeKey):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrBundleVerifyFailed):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidEncoding):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrDirectoryUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// clientIP extracts the client IP from headers or RemoteAddr.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := indexByte(xff, ','); i >= 0 {
			return trimSpace(xff[:i])
		}
		return trimSpace(xff)
	}
	if xr := r.Header.Get("X-Real-IP"); xr != "" {
		return xr
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// requestIDFromCtx returns the request ID if present.
func requestIDFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyReqID).(string); ok {
		return v
	}
	return ""
}

// genReqID creates a fresh request ID.
func genReqID() string {
	return uuid.New().String()
}

func indexByte(s string, c byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			return i
		}
	}
	return -1
}

func trimSpace(s string) string {
	for len(s) > 0 && (s[0] == ' ' || s[0] == '\t') {
		s = s[1:]
	}
	for len(s) > 0 && (s[len(s)-1] == ' ' || s[len(s)-1] == '\t') {
		s = s[:len(s)-1]
	}
	return s
}

// --- Handlers ---

// handleRegister registers an identity (POST /register).
func (rl *relay) handleRegister(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req domain.RegisterRequest
	if err := dec.Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "bad request")
		return
	}
	if req.Identity == "" {
		writeErr(w, http.StatusBadRequest, "identity required")
		return
	}

	if err := rl.svc.Register(req); err != nil {
		writeErr(w, errStatus(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handlePublishOneTimeKeys appends a signed one-time prekey batch
// (POST /prekeys).
func (rl *relay) handlePublishOneTimeKeys(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req domain.PublishOneTimeKeysRequest
	if err := dec.Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "bad request")
		return
	}
	if req.Identity == "" {
		writeErr(w, http.StatusBadRequest, "identity required")
		return
	}
	if len(req.OneTimeKeys.PreKeys) > maxOneTimeKeys {
		writeErr(w, http.StatusRequestEntityTooLarge, "too many one-time keys")
		return
	}

	if err := rl.svc.PublishOneTimeKeys(req); err != nil {
		writeErr(w, errStatus(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRequestPreKeys returns a prekey bundle, popping one one-time key
// (GET /prekey/{identity}).
func (rl *relay) handleRequestPreKeys(w http.ResponseWriter, r *http.Request) {
	identity := r.PathValue("identity")
	if identity == "" {
		writeErr(w, http.StatusBadRequest, "identity required")
		return
	}

	bundle, err := rl.svc.RequestPreKeys(identity)
	if err != nil {
		writeErr(w, errStatus(err), err.Error())
		return
	}
	writeJSON(w, bundle)
}

// handleSendMessage enqueues an initial message (POST /message/{identity}).
func (rl *relay) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	identity := r.PathValue("identity")

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var req domain.SendMessageRequest
	if err := dec.Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "bad request")
		return
	}
	if identity == "" || req.Recipient == "" || identity != req.Recipient {
		writeErr(w, http.StatusBadRequest, "recipient mismatch")
		return
	}
	if len(req.Message.Ciphertext) > maxCipherBytes {
		writeErr(w, http.StatusRequestEntityTooLarge, "cipher too large")
		return
	}

	if err := rl.svc.SendMessage(req); err != nil {
		writeErr(w, errStatus(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRetrieveMessages drains the queue for identity
// (GET /messages/{identity}).
func (rl *relay) handleRetrieveMessages(w http.ResponseWriter, r *http.Request) {
	identity := r.PathValue("identity")
	if identity == "" {
		writeErr(w, http.StatusBadRequest, "identity required")
		return
	}

	msgs, err := rl.svc.RetrieveMessages(identity)
	if err != nil {
		writeErr(w, errStatus(err), err.Error())
		return
	}
	writeJSON(w, domain.RetrieveMessagesResponse{Messages: msgs})
}

// --- Main ---

func main() {
	pflag.IntVarP(&port, "port", "p", defaultPort, "port to listen on")
	pflag.BoolVar(&enableLogging, "log", false, "enable access logging")
	pflag.StringVar(&dbPath, "db", "brongnal.sqlite3", "path to the sqlite directory database")
	pflag.Parse()

	if port <= minPort || port > maxPort {
		port = defaultPort
	}

	logger := slog.New(
		slog.NewTextHandler(log.Writer(), &slog.HandlerOptions{Level: slog.LevelInfo}),
	)
	slog.SetDefault(logger)

	dir, err := directory.New(dbPath)
	if err != nil {
		slog.Error("failed to open directory", "error", err)
		os.Exit(1)
	}
	defer dir.Close()

	rl := &relay{svc: service.New(dir)}
	mux := http.NewServeMux()

	mux.HandleFunc(
		"POST /register",
		chain(rl.handleRegister, withRecover, withReqID, withLogging("register")),
	)
	mux.HandleFunc(
		"POST /prekeys",
		chain(rl.handlePublishOneTimeKeys, withRecover, withReqID, withLogging("prekeys")),
	)
	mux.HandleFunc(
		"GET /prekey/{identity}",
		chain(rl.handleRequestPreKeys, withRecover, withReqID, withLogging("prekey")),
	)
	mux.HandleFunc(
		"POST /message/{identity}",
		chain(rl.handleSendMessage, withRecover, withReqID, withLogging("message")),
	)
	mux.HandleFunc(
		"GET /messages/{identity}",
		chain(rl.handleRetrieveMessages, withRecover, withReqID, withLogging("messages")),
	)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTO,
		ReadTimeout:       readTO,
		WriteTimeout:      writeTO,
		IdleTimeout:       idleTO,
	}

	go func() {
		slog.Info("Relay listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Relay failed", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	slog.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
	}
}
