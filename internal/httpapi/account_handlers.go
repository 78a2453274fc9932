package httpapi

import (
	"net/http"

	"brewtrack.dev/internal/account"
	"brewtrack.dev/internal/audit"
)

type updateProfileRequest struct {
	Username *string `json:"username,omitempty"`
	Email    *string `json:"email,omitempty"`
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.getMe(w, r)
	case http.MethodPatch:
		a.updateMe(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch)
	}
}

func (a *API) getMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := account.IdentityFromContext(r.Context())
	if !ok {
		unauthenticated(w, r, "authentication required")
		return
	}
	profile, err := a.accounts.Get(r.Context(), identity.AccountID)
	if err != nil {
		handleAccountError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (a *API) updateMe(w http.ResponseWriter, r *http.Request) {
	identity, ok := account.IdentityFromContext(r.Context())
	if !ok {
		unauthenticated(w, r, "authentication required")
		return
	}
	var req updateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	// Role changes go through the admin surface only.
	profile, err := a.accounts.UpdateProfile(r.Context(), identity.AccountID, account.ProfileUpdate{
		Username: req.Username,
		Email:    req.Email,
	})
	if err != nil {
		handleAccountError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "account.profile.updated", map[string]any{
		"account_id": profile.ID,
	})
	writeJSON(w, http.StatusOK, profile)
}
