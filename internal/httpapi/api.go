// Package httpapi is the request-handling collaborator in front of the
// account service: JSON handlers, authentication middleware and the
// health/metrics plumbing.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"brewtrack.dev/internal/account"
	"brewtrack.dev/internal/obs"
)

const serviceName = "brewtrack-api"

// maxBodyBytes caps request bodies; credential payloads are tiny.
const maxBodyBytes = 1 << 20

// ReadyProbe reports whether the service can serve traffic (DB ping).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	accounts   *account.Service
	readyProbe ReadyProbe
	version    string
}

// New wires the routes. The account service carries all semantics; the
// handlers only translate HTTP to service calls and back.
func New(accounts *account.Service, rp ReadyProbe, version string) *API {
	a := &API{
		mux:        http.NewServeMux(),
		accounts:   accounts,
		readyProbe: rp,
		version:    version,
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// credential operations
	a.mux.HandleFunc("/v1/auth/register", a.handleRegister)
	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/auth/password", a.handleChangePassword)

	// the authenticated account
	a.mux.HandleFunc("/v1/accounts/me", a.handleMe)

	// administration
	a.mux.Handle("/v1/admin/accounts", RequireRole(account.RoleAdmin)(http.HandlerFunc(a.handleAdminAccounts)))
	a.mux.Handle("/v1/admin/accounts/", RequireRole(account.RoleAdmin)(http.HandlerFunc(a.handleAdminAccountResource)))

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped handler chain for the server.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = MaxBodyBytes(h, maxBodyBytes)
	h = obs.Instrument(h)
	h = Logging(h)
	h = RequestID(h)
	return h
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    serviceName,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}
