package middleware

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"fintrack/internal/models"
)

func TestTokenManagerRoundTrip(t *testing.T) {
	tm := newTestTokenManager()
	user := &models.User{Base: models.Base{ID: 42}, Email: "a@b.com", Role: models.RoleReadOnly}

	token, err := tm.Generate(user)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	claims, err := tm.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.UserID != 42 || claims.Email != "a@b.com" || claims.Role != models.RoleReadOnly {
		t.Errorf("unexpected claims: %+v", claims)
	}
	if claims.Issuer != TokenIssuer || claims.Subject != "42" {
		t.Errorf("unexpected registered claims: iss=%s sub=%s", claims.Issuer, claims.Subject)
	}
}

func TestTokenManagerRejects(t *testing.T) {
	tm := newTestTokenManager()
	user := &models.User{Base: models.Base{ID: 1}, Email: "a@b.com", Role: models.RoleUser}

	t.Run("expired", func(t *testing.T) {
		past := NewTokenManager(testSecret, time.Minute)
		past.now = func() time.Time { return time.Now().Add(-time.Hour) }
		token, err := past.Generate(user)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := tm.Verify(token); err == nil {
			t.Error("expected expired token to be rejected")
		}
	})

	t.Run("wrong_secret", func(t *testing.T) {
		token, err := NewTokenManager("other", time.Hour).Generate(user)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := tm.Verify(token); err == nil {
			t.Error("expected token signed with another secret to be rejected")
		}
	})

	t.Run("none_algorithm", func(t *testing.T) {
		claims := &JWTClaims{UserID: 1, Role: models.RoleAdmin, RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    TokenIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := tm.Verify(token); err == nil {
			t.Error("expected unsigned token to be rejected")
		}
	})

	t.Run("unknown_role", func(t *testing.T) {
		token, err := tm.Generate(&models.User{Base: models.Base{ID: 1}, Role: "root"})
		if err != nil {
			t.Fatal(err)
		}
		if _, err := tm.Verify(token); err == nil {
			t.Error("expected unknown role to be rejected")
		}
	})

	t.Run("wrong_issuer", func(t *testing.T) {
		claims := &JWTClaims{UserID: 1, Role: models.RoleUser, RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		if err != nil {
			t.Fatal(err)
		}
		if _, err := tm.Verify(token); err == nil {
			t.Error("expected foreign issuer to be rejected")
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := tm.Verify("not.a.token"); err == nil {
			t.Error("expected malformed token to be rejected")
		}
	})
}
