package httpapi

import (
	"context"
	"errors"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/Najinc/painperdu/internal/domain"
)

type authenticatorStub struct {
	users    map[string]domain.User
	password string
}

func (s *authenticatorStub) Authenticate(_ context.Context, login string, password string) (domain.User, error) {
	for _, u := range s.users {
		if (u.Username == login || u.Email == login) && password == s.password {
			if !u.Active {
				return domain.User{}, domain.ErrAccountInactive
			}
			return u, nil
		}
	}
	return domain.User{}, domain.ErrInvalidCredentials
}

func (s *authenticatorStub) ActiveUser(_ context.Context, id string) (domain.User, error) {
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, domain.ErrUnauthenticated
	}
	if !u.Active {
		return domain.User{}, domain.ErrAccountInactive
	}
	return u, nil
}

func newStub() *authenticatorStub {
	return &authenticatorStub{
		password: "pass1234",
		users: map[string]domain.User{
			"usr-1": {ID: "usr-1", Username: "marie", Email: "marie@example.com", Role: domain.RoleSeller, Active: true},
		},
	}
}

func TestLoginIssuesTokenWithSubjectAndRole(t *testing.T) {
	manager := NewAuthManager("test-secret-key-0123456789abcdef", time.Hour, newStub())

	resp, err := manager.Login(context.Background(), domain.LoginRequest{Email: "marie@example.com", Password: "pass1234"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if resp.Token == "" || resp.ExpiresAt == "" {
		t.Fatalf("expected token and expiry, got %+v", resp)
	}

	actor, err := manager.ParseToken(resp.Token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if actor.UserID != "usr-1" || actor.Role != domain.RoleSeller || actor.Username != "marie" {
		t.Fatalf("unexpected actor %+v", actor)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	manager := NewAuthManager("test-secret-key-0123456789abcdef", time.Hour, newStub())

	_, err := manager.Login(context.Background(), domain.LoginRequest{Username: "marie", Password: "nope"})
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
}

func TestParseTokenRejectsForeignSignatures(t *testing.T) {
	stub := newStub()
	manager := NewAuthManager("test-secret-key-0123456789abcdef", time.Hour, stub)
	other := NewAuthManager("another-secret-key-0123456789abc", time.Hour, stub)

	resp, err := other.Login(context.Background(), domain.LoginRequest{Username: "marie", Password: "pass1234"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if _, err := manager.ParseToken(resp.Token); !errors.Is(err, errInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}

	unsigned := jwtlib.NewWithClaims(jwtlib.SigningMethodNone, jwtlib.MapClaims{"sub": "usr-1", "iss": tokenIssuer})
	raw, err := unsigned.SignedString(jwtlib.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none token: %v", err)
	}
	if _, err := manager.ParseToken(raw); err == nil {
		t.Fatalf("expected alg none token to be rejected")
	}
}

func TestParseTokenRejectsExpiredToken(t *testing.T) {
	manager := NewAuthManager("test-secret-key-0123456789abcdef", time.Minute, newStub())
	manager.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	resp, err := manager.Login(context.Background(), domain.LoginRequest{Username: "marie", Password: "pass1234"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if _, err := manager.ParseToken(resp.Token); !errors.Is(err, errInvalidToken) {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}
}

func TestVerifyUsesCurrentAccountState(t *testing.T) {
	stub := newStub()
	manager := NewAuthManager("test-secret-key-0123456789abcdef", time.Hour, stub)

	resp, err := manager.Login(context.Background(), domain.LoginRequest{Username: "marie", Password: "pass1234"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	promoted := stub.users["usr-1"]
	promoted.Role = domain.RoleAdmin
	stub.users["usr-1"] = promoted

	actor, err := manager.Verify(context.Background(), resp.Token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if actor.Role != domain.RoleAdmin {
		t.Fatalf("expected current role admin, got %s", actor.Role)
	}

	promoted.Active = false
	stub.users["usr-1"] = promoted
	if _, err := manager.Verify(context.Background(), resp.Token); !errors.Is(err, domain.ErrAccountInactive) {
		t.Fatalf("expected inactive account to be rejected, got %v", err)
	}
}
