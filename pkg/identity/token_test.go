package identity_test

import (
	"testing"
	"time"

	"github.com/aliasttt/bonusweb-sub000/pkg/config"
	"github.com/aliasttt/bonusweb-sub000/pkg/identity"
)

func TestMintAndParseToken(t *testing.T) {
	cfg := config.IdentityConfig{JWTSecret: "test-secret", Issuer: "bonusweb"}

	raw, err := identity.MintToken(cfg, "subject-1", identity.RoleCustomer, time.Hour)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	claims, err := identity.ParseToken(cfg, raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "subject-1" {
		t.Fatalf("expected subject-1, got %q", claims.Subject)
	}
	if claims.Role != identity.RoleCustomer {
		t.Fatalf("expected customer role, got %q", claims.Role)
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	cfg := config.IdentityConfig{JWTSecret: "test-secret", Issuer: "bonusweb"}
	raw, err := identity.MintToken(cfg, "subject-1", identity.RoleBusiness, time.Hour)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	if _, err := identity.ParseToken(config.IdentityConfig{JWTSecret: "other", Issuer: "bonusweb"}, raw); err == nil {
		t.Fatal("expected error for wrong secret")
	}
}

func TestParseTokenRejectsWrongIssuer(t *testing.T) {
	minted := config.IdentityConfig{JWTSecret: "test-secret", Issuer: "someone-else"}
	raw, err := identity.MintToken(minted, "subject-1", identity.RoleBusiness, time.Hour)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	verify := config.IdentityConfig{JWTSecret: "test-secret", Issuer: "bonusweb"}
	if _, err := identity.ParseToken(verify, raw); err == nil {
		t.Fatal("expected error for wrong issuer")
	}
}

func TestParseTokenRejectsExpired(t *testing.T) {
	cfg := config.IdentityConfig{JWTSecret: "test-secret", Issuer: "bonusweb"}
	raw, err := identity.MintToken(cfg, "subject-1", identity.RoleCustomer, -time.Minute)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	if _, err := identity.ParseToken(cfg, raw); err == nil {
		t.Fatal("expected error for expired token")
	}
}
