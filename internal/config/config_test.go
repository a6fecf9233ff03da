package config

import (
	"testing"
	"time"
)

func TestLoadAppliesDefaults(t *testing.T) {
	configViper := NewViper()
	configViper.Set("auth.signing_secret", "secret")

	cfg, err := Load(configViper)
	if err != nil {
		t.Fatalf("unexpected load error: %v", err)
	}

	if cfg.HTTPAddress != "0.0.0.0:8080" {
		t.Fatalf("unexpected http address %s", cfg.HTTPAddress)
	}
	if cfg.DatabasePath != "brewform.db" {
		t.Fatalf("unexpected database path %s", cfg.DatabasePath)
	}
	if cfg.TokenIssuer != "brewform-auth" || cfg.TokenAudience != "brewform-api" {
		t.Fatalf("unexpected token claims %s %s", cfg.TokenIssuer, cfg.TokenAudience)
	}
	if cfg.TokenTTL != 30*time.Minute {
		t.Fatalf("unexpected token ttl %s", cfg.TokenTTL)
	}
}

func TestLoadRejectsMissingSigningSecret(t *testing.T) {
	configViper := NewViper()

	if _, err := Load(configViper); err == nil {
		t.Fatalf("expected error for missing signing secret")
	}
}

func TestLoadRejectsNonPositiveTokenTTL(t *testing.T) {
	configViper := NewViper()
	configViper.Set("auth.signing_secret", "secret")
	configViper.Set("auth.token_ttl", "-5m")

	if _, err := Load(configViper); err == nil {
		t.Fatalf("expected error for negative token ttl")
	}
}
