package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Najinc/painperdu/internal/domain"
	"github.com/Najinc/painperdu/internal/policy"
	"github.com/Najinc/painperdu/internal/query"
	"github.com/Najinc/painperdu/internal/store"
	"github.com/Najinc/painperdu/internal/validate"
)

func userResource(id string) policy.Resource {
	return policy.Resource{Kind: policy.KindUser, OwnerID: id}
}

func (s *Service) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Authenticate checks a login (username or email) and password. Unknown
// logins and wrong passwords are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, login string, password string) (domain.User, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		s.metrics.AuthAttempt("failure")
		return domain.User{}, domain.ErrInvalidCredentials
	}

	user, err := s.repo.GetUserByLogin(ctx, login)
	if isNotFound(err) {
		s.metrics.AuthAttempt("failure")
		return domain.User{}, domain.ErrInvalidCredentials
	}
	if err != nil {
		return domain.User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		s.metrics.AuthAttempt("failure")
		return domain.User{}, domain.ErrInvalidCredentials
	}
	if !user.Active {
		s.metrics.AuthAttempt("inactive")
		return domain.User{}, domain.ErrAccountInactive
	}

	now := s.now()
	if err := s.repo.TouchLastLogin(ctx, user.ID, now); err != nil {
		s.log(ctx).Warn("failed to record last login", zap.String("user_id", user.ID), zap.Error(err))
	} else {
		user.LastLoginAt = &now
	}
	s.metrics.AuthAttempt("success")
	return *user, nil
}

// ActiveUser loads the account behind a token and rejects it once
// deactivated or deleted.
func (s *Service) ActiveUser(ctx context.Context, id string) (domain.User, error) {
	user, err := s.repo.GetUser(ctx, id)
	if isNotFound(err) {
		return domain.User{}, domain.ErrUnauthenticated
	}
	if err != nil {
		return domain.User{}, err
	}
	if !user.Active {
		return domain.User{}, domain.ErrAccountInactive
	}
	return *user, nil
}

// BootstrapAdmin creates the first admin account when none exists. It
// reports whether an account was created.
func (s *Service) BootstrapAdmin(ctx context.Context, username string, email string, password string) (bool, error) {
	admins, total, err := s.repo.ListUsers(ctx, query.UserFilter{Role: domain.RoleAdmin, Page: query.Page{Number: 1, Size: 1}})
	if err != nil {
		return false, err
	}
	if total > 0 || len(admins) > 0 {
		return false, nil
	}

	req := domain.UserCreateRequest{Username: username, Email: email, Password: password, Role: domain.RoleAdmin}
	if err := validate.Struct(req); err != nil {
		return false, err
	}
	hash, err := s.hashPassword(password)
	if err != nil {
		return false, err
	}
	now := s.now()
	user := domain.User{
		Username:     username,
		Email:        strings.ToLower(email),
		PasswordHash: hash,
		Role:         domain.RoleAdmin,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := user.Validate(); err != nil {
		return false, err
	}
	created, err := s.repo.CreateUser(ctx, user)
	if err != nil {
		return false, err
	}
	s.logAudit(ctx, "user_bootstrap", "user", created.ID, created.Username)
	s.log(ctx).Info("bootstrap admin created", zap.String("username", created.Username))
	return true, nil
}

func (s *Service) ListUsers(ctx context.Context, filter query.UserFilter) (domain.UserList, error) {
	if _, err := s.authorize(ctx, userResource(""), policy.ActionRead); err != nil {
		return domain.UserList{}, err
	}
	users, total, err := s.repo.ListUsers(ctx, filter)
	if err != nil {
		return domain.UserList{}, err
	}
	return domain.UserList{Users: users, Pagination: filter.Page.Paginate(total)}, nil
}

func (s *Service) ActiveSellers(ctx context.Context) ([]domain.User, error) {
	if _, err := s.authorize(ctx, userResource(""), policy.ActionRead); err != nil {
		return nil, err
	}
	active := true
	users, _, err := s.repo.ListUsers(ctx, query.UserFilter{
		Role:   domain.RoleSeller,
		Active: &active,
		Sort:   query.Sort{Field: "lastName"},
	})
	return users, err
}

func (s *Service) GetUser(ctx context.Context, id string) (domain.User, error) {
	if _, err := s.authorize(ctx, userResource(id), policy.ActionRead); err != nil {
		return domain.User{}, err
	}
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return domain.User{}, err
	}
	return *user, nil
}

func (s *Service) CreateUser(ctx context.Context, req domain.UserCreateRequest) (domain.User, error) {
	if _, err := s.authorize(ctx, userResource(""), policy.ActionCreate); err != nil {
		return domain.User{}, err
	}
	if err := validate.Struct(req); err != nil {
		return domain.User{}, err
	}

	role := req.Role
	if role == "" {
		role = domain.RoleSeller
	}
	hash, err := s.hashPassword(req.Password)
	if err != nil {
		return domain.User{}, err
	}
	now := s.now()
	user := domain.User{
		Username:     strings.TrimSpace(req.Username),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		Role:         role,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := user.Validate(); err != nil {
		return domain.User{}, err
	}

	created, err := s.repo.CreateUser(ctx, user)
	if err != nil {
		return domain.User{}, err
	}
	s.changed(ctx)
	s.logAudit(ctx, "user_create", "user", created.ID, created.Username+" role="+created.Role)
	return *created, nil
}

// UpdateUser lets a user edit their own identity and password. Role and
// active flag need the manage permission.
func (s *Service) UpdateUser(ctx context.Context, id string, req domain.UserUpdateRequest) (domain.User, error) {
	actor, err := s.authorize(ctx, userResource(id), policy.ActionUpdate)
	if err != nil {
		return domain.User{}, err
	}
	if err := validate.Struct(req); err != nil {
		return domain.User{}, err
	}
	if req.Role != nil || req.Active != nil {
		if !policy.CanAccess(actor, userResource(id), policy.ActionManage) {
			return domain.User{}, domain.ErrForbidden
		}
	}
	existing, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return domain.User{}, err
	}

	next := *existing
	if req.Username != nil {
		next.Username = strings.TrimSpace(*req.Username)
	}
	if req.Email != nil {
		next.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.FirstName != nil {
		next.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		next.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Role != nil {
		next.Role = *req.Role
	}
	if req.Active != nil {
		next.Active = *req.Active
	}
	if req.Password != nil {
		hash, err := s.hashPassword(*req.Password)
		if err != nil {
			return domain.User{}, err
		}
		next.PasswordHash = hash
	}
	if id == actor.UserID && (!next.Active || next.Role != existing.Role) {
		return domain.User{}, validate.Field("role", "you cannot change your own role or deactivate yourself")
	}
	next.UpdatedAt = s.now()
	if err := next.Validate(); err != nil {
		return domain.User{}, err
	}

	updated, err := s.repo.UpdateUser(ctx, next)
	if err != nil {
		return domain.User{}, err
	}
	s.changed(ctx)
	detail := updated.Username
	if req.Password != nil {
		detail += " password changed"
	}
	s.logAudit(ctx, "user_update", "user", updated.ID, detail)
	return *updated, nil
}

func (s *Service) DeleteUser(ctx context.Context, id string) error {
	actor, err := s.authorize(ctx, userResource(id), policy.ActionDelete)
	if err != nil {
		return err
	}
	if id == actor.UserID {
		return domain.ErrSelfDelete
	}
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.changed(ctx)
	s.logAudit(ctx, "user_delete", "user", id, "")
	return nil
}

// UserStats reports a seller's prepared and sold quantities per product.
func (s *Service) UserStats(ctx context.Context, id string, startDate string, endDate string) (domain.UserStats, error) {
	_, err := s.authorize(ctx, policy.Resource{Kind: policy.KindStatistics, OwnerID: id}, policy.ActionRead)
	if errors.Is(err, domain.ErrForbidden) {
		// hidden like the records they are computed from
		err = store.ErrNotFound
	}
	if err != nil {
		return domain.UserStats{}, err
	}
	r, err := parseRange(startDate, endDate)
	if err != nil {
		return domain.UserStats{}, err
	}
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return domain.UserStats{}, err
	}
	return s.stats.Seller(ctx, *user, r)
}
