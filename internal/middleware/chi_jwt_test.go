package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const secret = "test-secret"

func protected() http.Handler {
	return JWTMiddleware(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(Subject(r.Context())))
	}))
}

func call(t *testing.T, header string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	if header != "" {
		r.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	protected().ServeHTTP(w, r)
	return w
}

func mint(t *testing.T, key, subject string, ttl time.Duration) string {
	t.Helper()
	tok, err := MintToken(key, subject, ttl)
	if err != nil {
		t.Fatalf("MintToken() error = %v", err)
	}
	return tok
}

func sign(t *testing.T, claims jwt.RegisteredClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	return tok
}

func TestValidToken(t *testing.T) {
	w := call(t, "Bearer "+mint(t, secret, "ops", time.Hour))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := w.Body.String(); got != "ops" {
		t.Errorf("subject = %q, want ops", got)
	}
}

func TestRejectedTokens(t *testing.T) {
	foreign := sign(t, jwt.RegisteredClaims{
		Issuer:    "someone-else",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	noExpiry := sign(t, jwt.RegisteredClaims{Issuer: Issuer})

	for name, header := range map[string]string{
		"missing":   "",
		"scheme":    "Basic abc",
		"garbage":   "Bearer not.a.token",
		"expired":   "Bearer " + mint(t, secret, "ops", -time.Minute),
		"wrong key": "Bearer " + mint(t, "other", "ops", time.Hour),
		"issuer":    "Bearer " + foreign,
		"no expiry": "Bearer " + noExpiry,
	} {
		t.Run(name, func(t *testing.T) {
			if code := call(t, header).Code; code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", code)
			}
		})
	}
}

func TestMintRequiresSecret(t *testing.T) {
	if _, err := MintToken("", "ops", time.Hour); err == nil {
		t.Fatal("expected error for empty secret")
	}
}
