package transport

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/netip"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/torwart-dev/torwart/pkg/credstore"
	"github.com/torwart-dev/torwart/pkg/engine"
	"github.com/torwart-dev/torwart/pkg/observability"
	"github.com/torwart-dev/torwart/pkg/persist"
)

// Header names consumed from and produced to the reverse proxy.
const (
	// HeaderClientIP is the primary trusted client address header.
	HeaderClientIP = "Http-Client-Ip"

	// HeaderForwardedFor is the fallback client address header, consulted
	// only when HeaderClientIP is absent.
	HeaderForwardedFor = "X-Forwarded-For"

	// HeaderBypassToken carries a bypass token.
	HeaderBypassToken = "X-Bypass-Token"

	// HeaderPreAuthenticated marks an allowed response.
	HeaderPreAuthenticated = "X-Pre-Authenticated"

	// HeaderAuthMethod names the check that allowed the request.
	HeaderAuthMethod = "X-Auth-Method"
)

// queryTokenParam is the query parameter carrying a bypass token.
const queryTokenParam = "token"

// maxBodySize bounds the admin request body.
const maxBodySize = 1 << 20 // 1 MB

// Config holds configuration for the HTTP adapter.
type Config struct {
	// RealmMessage is the operator-configured prompt in the
	// WWW-Authenticate challenge.
	RealmMessage string

	// MetricsEnabled exposes the Prometheus endpoint at MetricsPath.
	MetricsEnabled bool
	MetricsPath    string
}

// Adapter routes requests: a small admin surface on fixed paths, the
// authorization decision everywhere else.
type Adapter struct {
	engine *engine.Engine
	store  *credstore.Store
	pers   persist.Persister
	config Config
	logger *slog.Logger
	mux    *http.ServeMux
}

// NewAdapter creates an HTTP adapter around the decision engine. The store
// and persister serve the admin endpoints (/reload, POST /user), which
// mutate state directly and persist explicitly.
func NewAdapter(eng *engine.Engine, store *credstore.Store, pers persist.Persister, cfg Config, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}

	a := &Adapter{
		engine: eng,
		store:  store,
		pers:   pers,
		config: cfg,
		logger: logger,
		mux:    http.NewServeMux(),
	}

	a.mux.HandleFunc("GET /status", a.handleStatus)
	a.mux.HandleFunc("POST /reload", a.handleReload)
	a.mux.HandleFunc("POST /user", a.handleAddUser)
	if cfg.MetricsEnabled {
		a.mux.Handle("GET "+cfg.MetricsPath, promhttp.Handler())
	}
	a.mux.HandleFunc("/", a.handleAuth)

	return a
}

// Handler returns the http.Handler for this adapter with the default
// middleware chain (recovery, request ID, logging, metrics) applied.
func (a *Adapter) Handler() http.Handler {
	return Chain(
		Recovery(a.logger),
		RequestID(),
		Logging(a.logger),
		observability.MetricsMiddleware,
	)(a.mux)
}

func (a *Adapter) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}

// handleReload replaces the in-memory store wholesale with the persisted
// state. Nothing is merged; whatever the persister yields wins.
func (a *Adapter) handleReload(w http.ResponseWriter, r *http.Request) {
	creds, err := a.pers.Load(r.Context())
	if err != nil {
		a.logger.Error("reloading credential store", "error", err)
		http.Error(w, "reload failed", http.StatusInternalServerError)
		return
	}

	a.store.Replace(creds)
	observability.StoreReloadsTotal.Inc()
	a.logger.Info("credential store reloaded")
	w.WriteHeader(http.StatusOK)
}

// addUserRequest is the admin upsert body. Any combination of password,
// token and command may be supplied in one call.
type addUserRequest struct {
	Username string                 `json:"username"`
	Password string                 `json:"password,omitempty"`
	Token    string                 `json:"token,omitempty"`
	Command  *credstore.UserCommand `json:"command,omitempty"`
}

func (a *Adapter) handleAddUser(w http.ResponseWriter, r *http.Request) {
	var req addUserRequest
	body := http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	username := credstore.Username(strings.TrimSpace(req.Username))
	if username == "" {
		http.Error(w, "username is required", http.StatusBadRequest)
		return
	}

	password := strings.TrimSpace(req.Password)
	token := strings.TrimSpace(req.Token)

	snapshot := a.store.Update(func(c *credstore.Credentials) {
		if password != "" {
			c.AddPassword(username, password)
		}
		if token != "" {
			c.AddToken(token, username)
		}
		if req.Command != nil && req.Command.Command != "" {
			c.AddCommand(username, *req.Command)
		}
	})

	// The in-memory mutation stands even when the write fails; the
	// operator sees the failure and can retry or fix the path.
	if err := a.pers.Save(r.Context(), snapshot); err != nil {
		observability.PersistTotal.WithLabelValues("error").Inc()
		a.logger.Error("persisting credential store", "user", username.String(), "error", err)
		http.Error(w, "persisting store failed", http.StatusInternalServerError)
		return
	}
	observability.PersistTotal.WithLabelValues("ok").Inc()

	a.logger.Info("user updated", "user", username.String())
	w.WriteHeader(http.StatusCreated)
}

// handleAuth is the catch-all authorization decision.
func (a *Adapter) handleAuth(w http.ResponseWriter, r *http.Request) {
	sig := engine.Signals{
		ClientIP:        clientIP(r.Header),
		BasicAuthHeader: r.Header.Get("Authorization"),
		HeaderToken:     r.Header.Get(HeaderBypassToken),
		QueryToken:      r.URL.Query().Get(queryTokenParam),
		PathTail:        strings.TrimPrefix(r.URL.Path, "/"),
	}

	verdict := a.engine.Authorize(r.Context(), sig)

	if !verdict.Authenticated() {
		w.Header().Set("WWW-Authenticate", `Basic realm="`+a.config.RealmMessage+`"`)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	w.Header().Set(HeaderPreAuthenticated, "True")
	w.Header().Set(HeaderAuthMethod, verdict.Method.String())
	w.WriteHeader(http.StatusOK)
}

// clientIP extracts the caller's address from the trusted headers. The
// primary header wins when present, even if unparsable; a malformed value
// is treated as no address at all.
func clientIP(h http.Header) netip.Addr {
	var raw string
	if v := h.Get(HeaderClientIP); v != "" {
		raw = v
	} else if v := h.Get(HeaderForwardedFor); v != "" {
		raw = v
	}
	if raw == "" {
		return netip.Addr{}
	}

	addr, err := netip.ParseAddr(strings.TrimSpace(raw))
	if err != nil {
		return netip.Addr{}
	}
	return addr
}
