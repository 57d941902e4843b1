package main

import (
	"testing"

	"github.com/Najinc/painperdu/internal/config"
)

func TestValidateSecurityConfigRejectsWeakValues(t *testing.T) {
	err := validateSecurityConfig(config.Config{AuthSecret: "short", BcryptCost: 12})
	if err == nil {
		t.Fatalf("expected weak security config to be rejected")
	}

	err = validateSecurityConfig(config.Config{AuthSecret: "0123456789abcdef0123456789abcdef", BcryptCost: 4, Env: "production"})
	if err == nil {
		t.Fatalf("expected low bcrypt cost to be rejected in production")
	}

	err = validateSecurityConfig(config.Config{
		AuthSecret:             "0123456789abcdef0123456789abcdef",
		BcryptCost:             12,
		BootstrapAdminUsername: "chef",
		BootstrapAdminEmail:    "chef@painperdu.local",
		BootstrapAdminPassword: "aaaaaaaaaaaa",
	})
	if err == nil {
		t.Fatalf("expected repeated-character bootstrap password to be rejected")
	}
}

func TestValidateSecurityConfigAcceptsStrongValues(t *testing.T) {
	err := validateSecurityConfig(config.Config{
		AuthSecret:             "0123456789abcdef0123456789abcdef",
		BcryptCost:             12,
		Env:                    "production",
		BootstrapAdminUsername: "chef",
		BootstrapAdminEmail:    "chef@painperdu.local",
		BootstrapAdminPassword: "levain-du-matin-42",
	})
	if err != nil {
		t.Fatalf("expected strong config to pass, got %v", err)
	}
}

func TestValidatePasswordStrength(t *testing.T) {
	for _, weak := range []string{"short", "Admin123", "1234567890", "zzzzzzzzzzzz"} {
		if err := validatePasswordStrength(weak); err == nil {
			t.Fatalf("expected %q to be rejected", weak)
		}
	}
	if err := validatePasswordStrength("croissant-au-beurre"); err != nil {
		t.Fatalf("expected strong password to pass, got %v", err)
	}
}
