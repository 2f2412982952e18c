package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pkgcrypto "github.com/and161185/formsync/internal/crypto"
	"github.com/and161185/formsync/internal/errs"
	"github.com/and161185/formsync/internal/model"
	"github.com/and161185/formsync/internal/repository"
	"github.com/and161185/formsync/internal/validate"
)

// UserService manages accounts and their dual credentials.
type UserService interface {
	// Create registers a user. Only an administrator caller may choose the role;
	// otherwise the user becomes a LOCAL_MANAGER. caller is the zero value for signup.
	Create(ctx context.Context, in model.NewUser, caller model.Principal) (*model.User, error)
	Get(ctx context.Context, id int64) (*model.User, error)
	// List returns a page of users. Credentials are kept only when requested by an administrator.
	List(ctx context.Context, page model.Page, includeCredentials bool, caller model.Principal) ([]model.User, model.Pagination, error)
	// Update changes a profile. Non-administrators may only update themselves and never the role.
	Update(ctx context.Context, id int64, in model.UserUpdate, caller model.Principal) (*model.User, error)
	// Delete removes a user. Non-administrators may only delete themselves.
	Delete(ctx context.Context, id int64, caller model.Principal) error
}

type UserServiceImpl struct {
	users repository.UserRepository
	roles repository.RoleRepository
	v     *validate.Validator
}

// NewUserService constructs UserService.
func NewUserService(users repository.UserRepository, roles repository.RoleRepository, v *validate.Validator) *UserServiceImpl {
	return &UserServiceImpl{users: users, roles: roles, v: v}
}

// Create stores a user with both verifiers.
func (s *UserServiceImpl) Create(ctx context.Context, in model.NewUser, caller model.Principal) (*model.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := s.v.Struct(in); err != nil {
		return nil, err
	}
	if !caller.IsAdmin() {
		in.RoleID = nil
	}
	roleID, err := s.roleOrDefault(ctx, in.RoleID)
	if err != nil {
		return nil, err
	}
	creds, err := pkgcrypto.Derive(in.Password)
	if err != nil {
		return nil, err
	}
	u, err := s.users.Create(ctx, &model.User{
		Username:      in.Username,
		Email:         in.Email,
		RoleID:        roleID,
		PasswordHash:  creds.Hash,
		OfflineDigest: creds.OfflineDigest,
	})
	if err != nil {
		return nil, err
	}
	pub := u.Public()
	return &pub, nil
}

// EnsureAdmin creates an administrator unless the login is already taken.
// It reports whether a user was created.
func (s *UserServiceImpl) EnsureAdmin(ctx context.Context, in model.NewUser) (bool, error) {
	_, err := s.users.GetByLogin(ctx, strings.TrimSpace(in.Username))
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return false, err
	}
	r, err := s.roles.GetByName(ctx, model.RoleAdministrator)
	if err != nil {
		return false, fmt.Errorf("administrator role: %w", err)
	}
	in.RoleID = &r.ID
	if _, err := s.Create(ctx, in, model.Principal{Role: model.RoleAdministrator}); err != nil {
		return false, err
	}
	return true, nil
}

func (s *UserServiceImpl) roleOrDefault(ctx context.Context, id *int64) (*int64, error) {
	if id != nil {
		return id, nil
	}
	r, err := s.roles.GetByName(ctx, model.RoleLocalManager)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r.ID, nil
}

// Get returns the public record of a user.
func (s *UserServiceImpl) Get(ctx context.Context, id int64) (*model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	pub := u.Public()
	return &pub, nil
}

// List returns one page of users.
func (s *UserServiceImpl) List(ctx context.Context, page model.Page, includeCredentials bool, caller model.Principal) ([]model.User, model.Pagination, error) {
	users, total, err := s.users.List(ctx, page)
	if err != nil {
		return nil, model.Pagination{}, err
	}
	if !includeCredentials || !caller.IsAdmin() {
		for i := range users {
			users[i] = users[i].Public()
		}
	}
	return users, model.NewPagination(page, total), nil
}

func canManage(caller model.Principal, id int64) bool {
	return caller.IsAdmin() || (caller.UserID > 0 && caller.UserID == id)
}

// Update overwrites profile fields. A non-empty password re-derives both verifiers together.
// A nil role keeps the stored one.
func (s *UserServiceImpl) Update(ctx context.Context, id int64, in model.UserUpdate, caller model.Principal) (*model.User, error) {
	if !canManage(caller, id) {
		return nil, errs.ErrForbidden
	}
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := s.v.Struct(in); err != nil {
		return nil, err
	}
	cur, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	roleID := cur.RoleID
	if in.RoleID != nil {
		if !caller.IsAdmin() {
			if cur.RoleID == nil || *cur.RoleID != *in.RoleID {
				return nil, errs.ErrForbidden
			}
		}
		roleID = in.RoleID
	}
	u := &model.User{ID: id, Username: in.Username, Email: in.Email, RoleID: roleID}
	withCreds := in.Password != ""
	if withCreds {
		creds, err := pkgcrypto.Derive(in.Password)
		if err != nil {
			return nil, err
		}
		u.PasswordHash, u.OfflineDigest = creds.Hash, creds.OfflineDigest
	}
	out, err := s.users.Update(ctx, u, withCreds)
	if err != nil {
		return nil, err
	}
	pub := out.Public()
	return &pub, nil
}

// Delete removes a user.
func (s *UserServiceImpl) Delete(ctx context.Context, id int64, caller model.Principal) error {
	if !canManage(caller, id) {
		return errs.ErrForbidden
	}
	return s.users.Delete(ctx, id)
}

// RoleService lists roles.
type RoleService interface {
	ListActive(ctx context.Context) ([]model.Role, error)
}

type RoleServiceImpl struct{ roles repository.RoleRepository }

// NewRoleService constructs RoleService.
func NewRoleService(roles repository.RoleRepository) *RoleServiceImpl {
	return &RoleServiceImpl{roles: roles}
}

// ListActive returns active roles ordered by name.
func (s *RoleServiceImpl) ListActive(ctx context.Context) ([]model.Role, error) {
	return s.roles.ListActive(ctx)
}
