package jwt

import (
	"testing"
	"time"
)

const testSecret = "unit-test-secret"

func TestTokenRoundTrip(t *testing.T) {
	expireAt := time.Now().Add(time.Hour)
	claims := BuildClaims(expireAt, 10001, 1, false, false)

	token, err := GenToken(claims, testSecret)
	if err != nil {
		t.Fatal(err)
	}

	parsed, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatal(err)
	}
	if parsed.UserId != 10001 {
		t.Fatalf("user id mismatch: %d", parsed.UserId)
	}
	if parsed.RoleId != 1 {
		t.Fatalf("role mismatch: %d", parsed.RoleId)
	}
	if parsed.Sub != "user" {
		t.Fatalf("sub mismatch: %s", parsed.Sub)
	}
	if parsed.IsAnonymousUser() {
		t.Fatal("should not be anonymous")
	}
	if parsed.IsAdministrator() {
		t.Fatal("should not be administrator")
	}
	t.Logf("✅ token round trip, user_id=%d", parsed.UserId)
}

func TestTokenWrongSecret(t *testing.T) {
	claims := BuildClaims(time.Now().Add(time.Hour), 7, 1, false, false)
	token, err := GenToken(claims, testSecret)
	if err != nil {
		t.Fatal(err)
	}
	if _, err = ParseToken(token, "other-secret"); err == nil {
		t.Fatal("expected parse failure with wrong secret")
	}
}

func TestTokenExpired(t *testing.T) {
	claims := BuildClaims(time.Now().Add(-time.Minute), 7, 1, false, false)
	token, err := GenToken(claims, testSecret)
	if err != nil {
		t.Fatal(err)
	}
	if _, err = ParseToken(token, testSecret); err == nil {
		t.Fatal("expected expired token to fail")
	}
}

func TestClaimsSubject(t *testing.T) {
	anon := BuildClaims(time.Now().Add(time.Hour), 1, 1, true, false)
	if !anon.IsAnonymousUser() {
		t.Fatal("anonymous flag lost")
	}
	admin := BuildClaims(time.Now().Add(time.Hour), 1, 1, false, true)
	if !admin.IsAdministrator() {
		t.Fatal("administrator flag lost")
	}
	anonAdmin := BuildClaims(time.Now().Add(time.Hour), 1, 1, true, true)
	if !anonAdmin.IsAnonymousUser() || !anonAdmin.IsAdministrator() {
		t.Fatal("combined subject flags lost")
	}
}
