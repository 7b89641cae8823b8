package admins

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/drukhealth/ctgadmin/services/logging"
	"go.uber.org/zap"
)

var (
	ErrNotFound         = errors.New("admin not found")
	ErrEmailTaken       = errors.New("admin already exists with this email")
	ErrEmailRequired    = errors.New("email is required")
	ErrPasswordRequired = errors.New("password is required")
	ErrInvalidRole      = errors.New("role must be admin or super_admin")
	ErrCannotDeleteSelf = errors.New("you cannot delete your own account")
	ErrLastSuperAdmin   = errors.New("at least one super admin must remain")
)

// PasswordHasher enforces the password policy and produces a one-way hash.
type PasswordHasher interface {
	HashPassword(password string) (string, error)
}

type CreateInput struct {
	Name     string `json:"name"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"omitempty,oneof=admin super_admin"`
}

// UpdateInput changes only the fields that are set.
type UpdateInput struct {
	Name     *string `json:"name"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password"`
	Role     *string `json:"role" validate:"omitempty,oneof=admin super_admin"`
}

type Service struct {
	repo   *Repository
	hasher PasswordHasher
	logger *logging.Service
	now    func() time.Time
}

func NewService(repo *Repository, hasher PasswordHasher, logger *logging.Service) *Service {
	return &Service{
		repo:   repo,
		hasher: hasher,
		logger: logger,
		now:    time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*Admin, error) {
	email := normalizeEmail(in.Email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	if in.Password == "" {
		return nil, ErrPasswordRequired
	}
	role := in.Role
	if role == "" {
		role = RoleAdmin
	}
	if !ValidRole(role) {
		return nil, ErrInvalidRole
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	hash, err := s.hasher.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	admin := &Admin{
		Name:              strings.TrimSpace(in.Name),
		Email:             email,
		PasswordHash:      hash,
		Role:              role,
		PasswordChangedAt: s.now().UTC(),
	}
	if err := s.repo.Create(ctx, admin); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("admin created",
			zap.Uint("admin_id", admin.ID),
			zap.String("email", admin.Email),
			zap.String("role", admin.Role))
	}
	return admin, nil
}

func (s *Service) List(ctx context.Context) ([]Admin, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id uint) (*Admin, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) FindByEmail(ctx context.Context, email string) (*Admin, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, ErrNotFound
	}
	return s.repo.FindByEmail(ctx, email)
}

func (s *Service) Update(ctx context.Context, id uint, in UpdateInput) (*Admin, error) {
	admin, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if email == "" {
			return nil, ErrEmailRequired
		}
		if email != admin.Email {
			if _, err := s.repo.FindByEmail(ctx, email); err == nil {
				return nil, ErrEmailTaken
			} else if !errors.Is(err, ErrNotFound) {
				return nil, err
			}
			admin.Email = email
		}
	}

	if in.Name != nil {
		admin.Name = strings.TrimSpace(*in.Name)
	}

	if in.Role != nil && *in.Role != admin.Role {
		if !ValidRole(*in.Role) {
			return nil, ErrInvalidRole
		}
		if admin.IsSuperAdmin() {
			if err := s.ensureAnotherSuperAdmin(ctx); err != nil {
				return nil, err
			}
		}
		admin.Role = *in.Role
	}

	// an empty password leaves the current one in place
	if in.Password != nil && strings.TrimSpace(*in.Password) != "" {
		hash, err := s.hasher.HashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		admin.PasswordHash = hash
		admin.PasswordChangedAt = s.now().UTC()
	}

	if err := s.repo.Save(ctx, admin); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("admin updated", zap.Uint("admin_id", admin.ID))
	}
	return admin, nil
}

// SetPassword replaces the password after policy checks and records the change time.
func (s *Service) SetPassword(ctx context.Context, id uint, password string) error {
	hash, err := s.hasher.HashPassword(password)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, id, hash, s.now().UTC()); err != nil {
		return err
	}

	if s.logger != nil {
		s.logger.Info("admin password changed", zap.Uint("admin_id", id))
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, actorID, id uint) error {
	if actorID == id {
		return ErrCannotDeleteSelf
	}

	admin, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if admin.IsSuperAdmin() {
		if err := s.ensureAnotherSuperAdmin(ctx); err != nil {
			return err
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	if s.logger != nil {
		s.logger.Info("admin deleted",
			zap.Uint("admin_id", id),
			zap.Uint("deleted_by", actorID))
	}
	return nil
}

func (s *Service) ensureAnotherSuperAdmin(ctx context.Context) error {
	count, err := s.repo.CountByRole(ctx, RoleSuperAdmin)
	if err != nil {
		return err
	}
	if count <= 1 {
		return ErrLastSuperAdmin
	}
	return nil
}

// EnsureSuperAdmin creates the account when missing and promotes it otherwise.
// An existing password is never overwritten.
func (s *Service) EnsureSuperAdmin(ctx context.Context, name, email, password string) (*Admin, bool, error) {
	existing, err := s.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if !existing.IsSuperAdmin() {
			existing.Role = RoleSuperAdmin
			if err := s.repo.Save(ctx, existing); err != nil {
				return nil, false, err
			}
			if s.logger != nil {
				s.logger.Info("existing admin promoted to super admin", zap.Uint("admin_id", existing.ID))
			}
		}
		return existing, false, nil
	case errors.Is(err, ErrNotFound):
	default:
		return nil, false, err
	}

	admin, err := s.Create(ctx, CreateInput{
		Name:     name,
		Email:    email,
		Password: password,
		Role:     RoleSuperAdmin,
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to create super admin: %w", err)
	}
	return admin, true, nil
}
