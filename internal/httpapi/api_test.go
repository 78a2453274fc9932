package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"brewtrack.dev/internal/account"
)

// fakeStore is an in-memory account.Store for exercising the HTTP
// surface without a database.
type fakeStore struct {
	mu       sync.Mutex
	nextID   int64
	accounts map[int64]*account.Account
}

func newFakeStore() *fakeStore {
	return &fakeStore{nextID: 1, accounts: map[int64]*account.Account{}}
}

func (f *fakeStore) Insert(_ context.Context, acc *account.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.accounts {
		if existing.Username == acc.Username || existing.Email == acc.Email {
			return account.ErrConflict
		}
	}
	now := time.Now().UTC()
	acc.ID = f.nextID
	f.nextID++
	acc.CreatedAt = now
	acc.UpdatedAt = now
	clone := *acc
	f.accounts[acc.ID] = &clone
	return nil
}

func (f *fakeStore) FindByID(_ context.Context, id int64) (*account.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	acc, ok := f.accounts[id]
	if !ok {
		return nil, account.ErrNotFound
	}
	clone := *acc
	return &clone, nil
}

func (f *fakeStore) FindByLogin(_ context.Context, login string) (*account.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, acc := range f.accounts {
		if acc.Username == login || acc.Email == login {
			clone := *acc
			return &clone, nil
		}
	}
	return nil, account.ErrNotFound
}

func (f *fakeStore) ExistsByUsernameOrEmail(_ context.Context, username, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, acc := range f.accounts {
		if acc.Username == username || acc.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) Update(_ context.Context, id int64, upd account.AccountUpdate) (*account.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	acc, ok := f.accounts[id]
	if !ok {
		return nil, account.ErrNotFound
	}
	for otherID, other := range f.accounts {
		if otherID == id {
			continue
		}
		if upd.Username != nil && other.Username == *upd.Username {
			return nil, account.ErrConflict
		}
		if upd.Email != nil && other.Email == *upd.Email {
			return nil, account.ErrConflict
		}
	}
	if upd.Username != nil {
		acc.Username = *upd.Username
	}
	if upd.Email != nil {
		acc.Email = *upd.Email
	}
	if upd.Role != nil {
		acc.Role = *upd.Role
	}
	if upd.PasswordHash != nil {
		acc.PasswordHash = *upd.PasswordHash
	}
	if upd.Active != nil {
		acc.Active = *upd.Active
	}
	if upd.LastLoginAt != nil {
		acc.LastLoginAt = upd.LastLoginAt
	}
	acc.UpdatedAt = time.Now().UTC()
	clone := *acc
	return &clone, nil
}

func (f *fakeStore) List(_ context.Context) ([]*account.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*account.Account, 0, len(f.accounts))
	for _, acc := range f.accounts {
		clone := *acc
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// apiClient wraps an httptest server with JSON request helpers.
type apiClient struct {
	t     *testing.T
	base  string
	token string
}

func newTestAPI(t *testing.T) (*apiClient, *fakeStore) {
	t.Helper()
	store := newFakeStore()
	tokens, err := account.NewTokenManager("test-secret-please-rotate")
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}
	svc, err := account.NewService(store, account.NewHasher(bcrypt.MinCost), tokens)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	api := New(svc, ReadyProbe{}, "test")
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)
	return &apiClient{t: t, base: srv.URL}, store
}

func (c *apiClient) do(method, path string, body any) (int, map[string]any) {
	c.t.Helper()
	var payload *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
		payload = bytes.NewBuffer(data)
	} else {
		payload = bytes.NewBuffer(nil)
	}
	req, err := http.NewRequest(method, c.base+path, payload)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		c.t.Fatalf("decode %s %s response: %v", method, path, err)
	}
	return resp.StatusCode, decoded
}

func (c *apiClient) register(username, email, password string) map[string]any {
	c.t.Helper()
	status, body := c.do(http.MethodPost, "/v1/auth/register", map[string]any{
		"username": username,
		"email":    email,
		"password": password,
	})
	if status != http.StatusCreated {
		c.t.Fatalf("register %s: status %d, body %v", username, status, body)
	}
	return body
}

func sessionToken(t *testing.T, body map[string]any) string {
	t.Helper()
	token, ok := body["token"].(string)
	if !ok || token == "" {
		t.Fatalf("no token in session payload %v", body)
	}
	return token
}

func TestHealthAndInfo(t *testing.T) {
	client, _ := newTestAPI(t)

	status, body := client.do(http.MethodGet, "/healthz", nil)
	if status != http.StatusOK {
		t.Fatalf("healthz status %d", status)
	}
	if body["service"] != "brewtrack-api" {
		t.Fatalf("unexpected healthz body %v", body)
	}

	if status, _ := client.do(http.MethodGet, "/readyz", nil); status != http.StatusOK {
		t.Fatalf("readyz status %d", status)
	}
	if status, _ := client.do(http.MethodGet, "/v1/info", nil); status != http.StatusOK {
		t.Fatalf("info status %d", status)
	}
}

func TestRegisterEndpoint(t *testing.T) {
	client, _ := newTestAPI(t)

	body := client.register("mira", "mira@example.com", "Sunrise42")
	acc, ok := body["account"].(map[string]any)
	if !ok {
		t.Fatalf("no account in payload %v", body)
	}
	if acc["username"] != "mira" || acc["role"] != "user" {
		t.Fatalf("unexpected account %v", acc)
	}
	if _, leaked := acc["password_hash"]; leaked {
		t.Fatalf("password hash leaked in response")
	}
	sessionToken(t, body)

	status, errBody := client.do(http.MethodPost, "/v1/auth/register", map[string]any{
		"username": "other", "email": "mira@example.com", "password": "Sunrise42",
	})
	if status != http.StatusConflict {
		t.Fatalf("duplicate email: status %d, body %v", status, errBody)
	}

	status, _ = client.do(http.MethodPost, "/v1/auth/register", map[string]any{
		"username": "weak", "email": "weak@example.com", "password": "sunrise",
	})
	if status != http.StatusUnprocessableEntity {
		t.Fatalf("weak password: status %d", status)
	}

	status, _ = client.do(http.MethodGet, "/v1/auth/register", nil)
	if status != http.StatusMethodNotAllowed {
		t.Fatalf("GET register: status %d", status)
	}
}

func TestLoginEndpoint(t *testing.T) {
	client, _ := newTestAPI(t)
	client.register("mira", "mira@example.com", "Sunrise42")

	status, body := client.do(http.MethodPost, "/v1/auth/login", map[string]any{
		"login": "mira", "password": "Sunrise42",
	})
	if status != http.StatusOK {
		t.Fatalf("login: status %d, body %v", status, body)
	}
	sessionToken(t, body)

	for _, creds := range []map[string]any{
		{"login": "mira", "password": "wrong-Sunrise42"},
		{"login": "nobody", "password": "Sunrise42"},
	} {
		status, body := client.do(http.MethodPost, "/v1/auth/login", creds)
		if status != http.StatusUnauthorized {
			t.Fatalf("bad login %v: status %d", creds, status)
		}
		if body["error"] != "invalid credentials" {
			t.Fatalf("failure payloads must not distinguish causes, got %v", body)
		}
	}
}

func TestMeEndpoint(t *testing.T) {
	client, _ := newTestAPI(t)

	if status, _ := client.do(http.MethodGet, "/v1/accounts/me", nil); status != http.StatusUnauthorized {
		t.Fatalf("unauthenticated me: status %d", status)
	}

	session := client.register("mira", "mira@example.com", "Sunrise42")
	client.token = sessionToken(t, session)

	status, body := client.do(http.MethodGet, "/v1/accounts/me", nil)
	if status != http.StatusOK {
		t.Fatalf("me: status %d, body %v", status, body)
	}
	if body["username"] != "mira" {
		t.Fatalf("unexpected profile %v", body)
	}

	status, body = client.do(http.MethodPatch, "/v1/accounts/me", map[string]any{
		"username": "mira-r",
	})
	if status != http.StatusOK {
		t.Fatalf("patch me: status %d, body %v", status, body)
	}
	if body["username"] != "mira-r" {
		t.Fatalf("rename not applied: %v", body)
	}
}

func TestChangePasswordEndpoint(t *testing.T) {
	client, _ := newTestAPI(t)
	session := client.register("mira", "mira@example.com", "Sunrise42")
	client.token = sessionToken(t, session)

	status, _ := client.do(http.MethodPost, "/v1/auth/password", map[string]any{
		"current_password": "wrong", "new_password": "Moonset99",
	})
	if status != http.StatusUnauthorized {
		t.Fatalf("wrong current password: status %d", status)
	}

	status, _ = client.do(http.MethodPost, "/v1/auth/password", map[string]any{
		"current_password": "Sunrise42", "new_password": "Moonset99",
	})
	if status != http.StatusOK {
		t.Fatalf("change password: status %d", status)
	}

	status, _ = client.do(http.MethodPost, "/v1/auth/login", map[string]any{
		"login": "mira", "password": "Moonset99",
	})
	if status != http.StatusOK {
		t.Fatalf("login with new password: status %d", status)
	}
}

func TestAdminEndpoints(t *testing.T) {
	client, store := newTestAPI(t)

	userSession := client.register("mira", "mira@example.com", "Sunrise42")
	adminSession := client.register("noor", "noor@example.com", "Sunrise42")

	// Promote noor directly in the store; registration never grants admin
	// through the public surface in these tests.
	adminRole := account.RoleAdmin
	if _, err := store.Update(context.Background(), 2, account.AccountUpdate{Role: &adminRole}); err != nil {
		t.Fatalf("promote: %v", err)
	}

	client.token = sessionToken(t, userSession)
	if status, _ := client.do(http.MethodGet, "/v1/admin/accounts", nil); status != http.StatusForbidden {
		t.Fatalf("user listing accounts: status %d", status)
	}

	client.token = sessionToken(t, adminSession)
	status, body := client.do(http.MethodGet, "/v1/admin/accounts", nil)
	if status != http.StatusOK {
		t.Fatalf("admin listing: status %d, body %v", status, body)
	}
	accounts, ok := body["accounts"].([]any)
	if !ok || len(accounts) != 2 {
		t.Fatalf("unexpected listing %v", body)
	}

	status, body = client.do(http.MethodPost, "/v1/admin/accounts/1/deactivate", nil)
	if status != http.StatusOK {
		t.Fatalf("deactivate: status %d, body %v", status, body)
	}
	if body["active"] != false {
		t.Fatalf("account still active: %v", body)
	}

	// The deactivated account's token stops resolving.
	adminToken := client.token
	client.token = sessionToken(t, userSession)
	if status, _ := client.do(http.MethodGet, "/v1/accounts/me", nil); status != http.StatusUnauthorized {
		t.Fatalf("deactivated token: status %d", status)
	}

	client.token = adminToken
	status, body = client.do(http.MethodPost, "/v1/admin/accounts/1/activate", nil)
	if status != http.StatusOK {
		t.Fatalf("activate: status %d, body %v", status, body)
	}
	if body["active"] != true {
		t.Fatalf("account not reactivated: %v", body)
	}

	if status, _ := client.do(http.MethodGet, "/v1/admin/accounts/1", nil); status != http.StatusOK {
		t.Fatalf("admin get by id failed")
	}
	if status, _ := client.do(http.MethodPost, "/v1/admin/accounts/404/deactivate", nil); status != http.StatusNotFound {
		t.Fatalf("unknown id should 404")
	}
	if status, _ := client.do(http.MethodPost, "/v1/admin/accounts/abc/deactivate", nil); status != http.StatusBadRequest {
		t.Fatalf("garbage id should 400")
	}
}

func TestMalformedJSON(t *testing.T) {
	client, _ := newTestAPI(t)

	req, err := http.NewRequest(http.MethodPost, client.base+"/v1/auth/register", bytes.NewBufferString("{not json"))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("malformed body: status %d", resp.StatusCode)
	}
}

func TestUnknownRoute(t *testing.T) {
	client, _ := newTestAPI(t)
	req, err := http.NewRequest(http.MethodGet, client.base+"/v1/nope", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unknown private route without token: status %d", resp.StatusCode)
	}
}
