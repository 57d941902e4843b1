package httpapi

import (
	"context"
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/Najinc/painperdu/internal/domain"
)

const tokenIssuer = "painperdu"

// Authenticator is the account side of login. service.Service implements
// it.
type Authenticator interface {
	Authenticate(ctx context.Context, login string, password string) (domain.User, error)
	ActiveUser(ctx context.Context, id string) (domain.User, error)
}

type AuthManager struct {
	secret   []byte
	tokenTTL time.Duration
	users    Authenticator
	now      func() time.Time
}

type bakeryClaims struct {
	jwtlib.RegisteredClaims
	Username string `json:"username"`
	Role     string `json:"role"`
}

var errInvalidToken = errors.New("invalid or expired token")

func NewAuthManager(secret string, tokenTTL time.Duration, users Authenticator) *AuthManager {
	if secret == "" {
		secret = "dev-change-me"
	}
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}
	return &AuthManager{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		users:    users,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Login accepts the identifier in login, username or email.
func (a *AuthManager) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	user, err := a.users.Authenticate(ctx, req.Identifier(), req.Password)
	if err != nil {
		return domain.LoginResponse{}, err
	}
	return a.issue(user)
}

// Refresh issues a new token for the caller, re-reading the account so a
// role change or deactivation takes effect.
func (a *AuthManager) Refresh(ctx context.Context, actor domain.Actor) (domain.LoginResponse, error) {
	user, err := a.users.ActiveUser(ctx, actor.UserID)
	if err != nil {
		return domain.LoginResponse{}, err
	}
	return a.issue(user)
}

// Verify parses the token and checks that its account is still active. The
// returned actor carries the current role, not the one in the token.
func (a *AuthManager) Verify(ctx context.Context, token string) (domain.Actor, error) {
	actor, err := a.ParseToken(token)
	if err != nil {
		return domain.Actor{}, err
	}
	user, err := a.users.ActiveUser(ctx, actor.UserID)
	if err != nil {
		return domain.Actor{}, err
	}
	return domain.Actor{UserID: user.ID, Username: user.Username, Role: user.Role}, nil
}

func (a *AuthManager) ParseToken(tokenStr string) (domain.Actor, error) {
	claims := &bakeryClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}), jwtlib.WithIssuer(tokenIssuer))
	if err != nil || !token.Valid {
		return domain.Actor{}, errInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.Actor{}, errors.New("invalid token subject")
	}
	return domain.Actor{UserID: sub, Username: claims.Username, Role: claims.Role}, nil
}

func (a *AuthManager) issue(user domain.User) (domain.LoginResponse, error) {
	expiresAt := a.now().Add(a.tokenTTL)
	token, err := a.sign(user, expiresAt)
	if err != nil {
		return domain.LoginResponse{}, err
	}
	return domain.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.Format(time.RFC3339),
		User:      user,
	}, nil
}

func (a *AuthManager) sign(user domain.User, expiresAt time.Time) (string, error) {
	claims := bakeryClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwtlib.NewNumericDate(a.now()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    tokenIssuer,
		},
		Username: user.Username,
		Role:     user.Role,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}
