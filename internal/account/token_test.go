package account

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func testTokenManager(t *testing.T, opts ...TokenOption) *TokenManager {
	t.Helper()
	m, err := NewTokenManager("test-secret-please-rotate", opts...)
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}
	return m
}

func TestNewTokenManagerRequiresSecret(t *testing.T) {
	if _, err := NewTokenManager(""); err == nil {
		t.Fatalf("expected error for empty secret")
	}
	if _, err := NewTokenManager("   "); err == nil {
		t.Fatalf("expected error for blank secret")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	m := testTokenManager(t)
	want := Identity{AccountID: 7, Username: "mira", Role: RoleAdmin}

	token, expiresAt, err := m.Issue(want)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if token == "" {
		t.Fatalf("empty token")
	}
	if remaining := time.Until(expiresAt); remaining <= 0 || remaining > m.TTL() {
		t.Fatalf("unexpected expiry %v", expiresAt)
	}

	got, err := m.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if got != want {
		t.Fatalf("Verify = %+v, want %+v", got, want)
	}
}

func TestTokenExpiry(t *testing.T) {
	now := time.Now()
	issued := testTokenManager(t, WithTTL(time.Minute), WithTokenClock(func() time.Time { return now }))
	token, _, err := issued.Issue(Identity{AccountID: 1, Username: "mira", Role: RoleUser})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// Same secret, clock moved past the TTL.
	later := testTokenManager(t, WithTokenClock(func() time.Time { return now.Add(2 * time.Minute) }))
	if _, err := later.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired token: got %v, want ErrInvalidToken", err)
	}
}

func TestTokenWrongSecret(t *testing.T) {
	m := testTokenManager(t)
	token, _, err := m.Issue(Identity{AccountID: 1, Username: "mira", Role: RoleUser})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	other, err := NewTokenManager("a-different-secret")
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}
	if _, err := other.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("foreign signature: got %v, want ErrInvalidToken", err)
	}
}

func TestTokenTampered(t *testing.T) {
	m := testTokenManager(t)
	token, _, err := m.Issue(Identity{AccountID: 1, Username: "mira", Role: RoleUser})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token shape: %s", token)
	}
	// Flip a byte in the payload without re-signing.
	payload := []byte(parts[1])
	payload[len(payload)/2] ^= 0x01
	tampered := parts[0] + "." + string(payload) + "." + parts[2]

	if _, err := m.Verify(tampered); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("tampered token: got %v, want ErrInvalidToken", err)
	}
}

func TestTokenWrongIssuer(t *testing.T) {
	issued := testTokenManager(t, WithIssuer("someone-else"))
	token, _, err := issued.Issue(Identity{AccountID: 1, Username: "mira", Role: RoleUser})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	m := testTokenManager(t)
	if _, err := m.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("wrong issuer: got %v, want ErrInvalidToken", err)
	}
}

func TestTokenGarbage(t *testing.T) {
	m := testTokenManager(t)
	for _, token := range []string{"", "   ", "nonsense", "a.b.c"} {
		if _, err := m.Verify(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("Verify(%q): got %v, want ErrInvalidToken", token, err)
		}
	}
}

func TestIssueRequiresAccountID(t *testing.T) {
	m := testTokenManager(t)
	if _, _, err := m.Issue(Identity{Username: "mira", Role: RoleUser}); err == nil {
		t.Fatalf("expected error for missing account id")
	}
}
