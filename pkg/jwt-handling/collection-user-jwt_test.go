package jwthandling

import (
	"testing"
	"time"
)

func TestCollectionUserToken(t *testing.T) {
	secret := "test-secret"

	t.Run("round trip", func(t *testing.T) {
		token, err := GenerateNewCollectionUserToken(time.Minute, "editor@example.com", "grants", true, secret)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		claims, ok, err := ValidateCollectionUserToken(token, secret)
		if err != nil || !ok {
			t.Fatalf("token should be valid: %v", err)
		}
		if claims.Subject != "editor@example.com" || claims.InstanceID != "grants" || !claims.CanEditCollections {
			t.Errorf("unexpected claims: %+v", claims)
		}
	})

	t.Run("wrong key", func(t *testing.T) {
		token, _ := GenerateNewCollectionUserToken(time.Minute, "editor@example.com", "grants", false, secret)
		if _, ok, _ := ValidateCollectionUserToken(token, "other-secret"); ok {
			t.Error("token signed with another key should be invalid")
		}
	})

	t.Run("expired", func(t *testing.T) {
		token, _ := GenerateNewCollectionUserToken(-time.Minute, "editor@example.com", "grants", false, secret)
		if _, ok, err := ValidateCollectionUserToken(token, secret); ok || err == nil {
			t.Error("expired token should be invalid")
		}
	})

	t.Run("missing subject", func(t *testing.T) {
		token, _ := GenerateNewCollectionUserToken(time.Minute, "", "grants", false, secret)
		if _, ok, _ := ValidateCollectionUserToken(token, secret); ok {
			t.Error("token without subject should be invalid")
		}
	})
}
