package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"brewtrack.dev/internal/account"
	"brewtrack.dev/internal/audit"
)

func (a *API) handleAdminAccounts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	profiles, err := a.accounts.List(r.Context())
	if err != nil {
		handleAccountError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"accounts": profiles})
}

// handleAdminAccountResource serves /v1/admin/accounts/{id}/activate and
// /v1/admin/accounts/{id}/deactivate.
func (a *API) handleAdminAccountResource(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/admin/accounts/"), "/")
	if rest == "" {
		a.handleAdminAccounts(w, r)
		return
	}
	parts := strings.Split(rest, "/")
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || id <= 0 {
		writeError(w, r, http.StatusBadRequest, "invalid account id")
		return
	}

	switch {
	case len(parts) == 1:
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		profile, err := a.accounts.Get(r.Context(), id)
		if err != nil {
			handleAccountError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	case len(parts) == 2 && parts[1] == "activate":
		a.setAccountActive(w, r, id, true)
	case len(parts) == 2 && parts[1] == "deactivate":
		a.setAccountActive(w, r, id, false)
	default:
		http.NotFound(w, r)
	}
}

func (a *API) setAccountActive(w http.ResponseWriter, r *http.Request, id int64, active bool) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var (
		profile account.Profile
		err     error
		event   string
	)
	if active {
		profile, err = a.accounts.Activate(r.Context(), id)
		event = "account.activated"
	} else {
		profile, err = a.accounts.Deactivate(r.Context(), id)
		event = "account.deactivated"
	}
	if err != nil {
		handleAccountError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), event, map[string]any{
		"account_id": profile.ID,
	})
	writeJSON(w, http.StatusOK, profile)
}
