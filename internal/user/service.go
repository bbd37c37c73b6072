package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Kyz7/backoffice/internal/apperr"
	"github.com/Kyz7/backoffice/internal/auth"
	"github.com/Kyz7/backoffice/internal/models"
	"github.com/Kyz7/backoffice/internal/response"
	"github.com/Kyz7/backoffice/internal/validation"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type Service struct {
	db        *gorm.DB
	authority *auth.Authority
	log       logrus.FieldLogger
}

func NewService(db *gorm.DB, authority *auth.Authority, log logrus.FieldLogger) *Service {
	return &Service{db: db, authority: authority, log: log}
}

type ListFilter struct {
	Search   string
	RoleID   uint
	IsActive *bool
	Paging   response.Paging
}

type CreateInput struct {
	Name              string   `json:"name" validate:"required,min=2,max=100"`
	Email             string   `json:"email" validate:"required,email,max=100"`
	Password          string   `json:"password" validate:"required,min=8,max=72"`
	RoleID            uint     `json:"role_id" validate:"required"`
	CustomPermissions []string `json:"custom_permissions"`
	IsActive          *bool    `json:"is_active"`
}

type UpdateInput struct {
	Name              *string   `json:"name" validate:"omitempty,min=2,max=100"`
	Email             *string   `json:"email" validate:"omitempty,email,max=100"`
	Password          *string   `json:"password" validate:"omitempty,min=8,max=72"`
	RoleID            *uint     `json:"role_id"`
	CustomPermissions *[]string `json:"custom_permissions"`
	IsActive          *bool     `json:"is_active"`
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]models.User, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.User{})
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		q = q.Where("LOWER(name) LIKE ? OR email LIKE ?", like, like)
	}
	if f.RoleID != 0 {
		q = q.Where("role_id = ?", f.RoleID)
	}
	if f.IsActive != nil {
		q = q.Where("is_active = ?", *f.IsActive)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperr.Internal("Failed to count users", err)
	}

	var users []models.User
	if err := q.Preload("Role").
		Order("created_at DESC, id DESC").
		Offset(f.Paging.Offset()).
		Limit(f.Paging.Limit).
		Find(&users).Error; err != nil {
		return nil, 0, apperr.Internal("Failed to fetch users", err)
	}
	return users, total, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Preload("Role").First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("User")
		}
		return nil, apperr.Internal("Failed to fetch user", err)
	}
	return &u, nil
}

func (s *Service) Create(ctx context.Context, actor *auth.Principal, in CreateInput) (*models.User, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	role, err := s.loadRole(ctx, in.RoleID)
	if err != nil {
		return nil, err
	}
	if err := canAssign(actor, role); err != nil {
		return nil, err
	}
	custom, err := normalizeCustom(in.CustomPermissions)
	if err != nil {
		return nil, err
	}
	if err := canGrant(actor, custom); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if err := s.checkEmail(ctx, email, 0); err != nil {
		return nil, err
	}

	u := models.User{
		Name:              strings.TrimSpace(in.Name),
		Email:             email,
		RoleID:            role.ID,
		CustomPermissions: custom,
		IsActive:          in.IsActive == nil || *in.IsActive,
	}
	if err := u.SetPassword(in.Password); err != nil {
		return nil, apperr.Internal("Failed to hash password", err)
	}
	if err := s.db.WithContext(ctx).Omit("Role").Create(&u).Error; err != nil {
		return nil, apperr.Internal("Failed to create user", err)
	}
	u.Role = role

	s.log.WithFields(logrus.Fields{"user_id": u.ID, "role": role.Slug, "by": actor.UserID}).Info("user created")
	return &u, nil
}

// Update applies the patch. The second result reports whether the password
// changed, which makes every existing session of the user stale.
func (s *Service) Update(ctx context.Context, actor *auth.Principal, id uint, in UpdateInput) (*models.User, bool, error) {
	if err := validation.Struct(in); err != nil {
		return nil, false, err
	}

	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if err := canManage(actor, u); err != nil {
		return nil, false, err
	}

	if in.IsActive != nil && *in.IsActive != u.IsActive && u.ID == actor.UserID {
		return nil, false, apperr.Forbidden("You cannot change the status of your own account")
	}

	if in.Name != nil {
		u.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		if email != u.Email {
			if err := s.checkEmail(ctx, email, u.ID); err != nil {
				return nil, false, err
			}
			u.Email = email
		}
	}
	self := u.ID == actor.UserID && !actor.IsSuperAdmin()
	if in.RoleID != nil && *in.RoleID != u.RoleID {
		if self {
			return nil, false, apperr.Forbidden("You cannot change your own role")
		}
		role, err := s.loadRole(ctx, *in.RoleID)
		if err != nil {
			return nil, false, err
		}
		if err := canAssign(actor, role); err != nil {
			return nil, false, err
		}
		u.RoleID = role.ID
		u.Role = role
	}
	if in.CustomPermissions != nil {
		custom, err := normalizeCustom(*in.CustomPermissions)
		if err != nil {
			return nil, false, err
		}
		if self && !sameSlugs(custom, u.CustomPermissions) {
			return nil, false, apperr.Forbidden("You cannot change your own custom permissions")
		}
		if err := canGrant(actor, custom); err != nil {
			return nil, false, err
		}
		u.CustomPermissions = custom
	}
	if in.IsActive != nil {
		u.IsActive = *in.IsActive
	}

	passwordChanged := false
	if in.Password != nil {
		if err := u.SetPassword(*in.Password); err != nil {
			return nil, false, apperr.Internal("Failed to hash password", err)
		}
		passwordChanged = true
	}

	if err := s.db.WithContext(ctx).Omit("Role").Save(u).Error; err != nil {
		return nil, false, apperr.Internal("Failed to update user", err)
	}

	if passwordChanged {
		s.log.WithFields(logrus.Fields{"user_id": u.ID, "by": actor.UserID}).Info("password changed, sessions invalidated")
	}
	return u, passwordChanged, nil
}

func (s *Service) Delete(ctx context.Context, actor *auth.Principal, id uint) error {
	if id == actor.UserID {
		return apperr.Forbidden("You cannot delete your own account")
	}

	u, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := canManage(actor, u); err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(&models.User{}, id).Error; err != nil {
		return apperr.Internal("Failed to delete user", err)
	}

	s.log.WithFields(logrus.Fields{"user_id": id, "by": actor.UserID}).Info("user deleted")
	return nil
}

// SetStatus enables or disables an account. Disabled accounts lose their
// sessions on the next request.
func (s *Service) SetStatus(ctx context.Context, actor *auth.Principal, id uint, active bool) (*models.User, error) {
	if id == actor.UserID {
		return nil, apperr.Forbidden("You cannot change the status of your own account")
	}

	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canManage(actor, u); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("is_active", active).Error; err != nil {
		return nil, apperr.Internal("Failed to update user status", err)
	}
	u.IsActive = active

	s.log.WithFields(logrus.Fields{"user_id": id, "is_active": active, "by": actor.UserID}).Info("user status changed")
	return u, nil
}

func (s *Service) IssueResetToken(ctx context.Context, actor *auth.Principal, id uint) (string, time.Time, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return "", time.Time{}, err
	}
	if err := canManage(actor, u); err != nil {
		return "", time.Time{}, err
	}
	return s.authority.IssueResetToken(ctx, u.ID)
}

func (s *Service) loadRole(ctx context.Context, id uint) (*models.Role, error) {
	var role models.Role
	if err := s.db.WithContext(ctx).First(&role, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Field("role_id", "role does not exist")
		}
		return nil, apperr.Internal("Failed to load role", err)
	}
	return &role, nil
}

func (s *Service) checkEmail(ctx context.Context, email string, excludeID uint) error {
	var count int64
	q := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return apperr.Internal("Failed to check email", err)
	}
	if count > 0 {
		return apperr.Conflict("Email already registered")
	}
	return nil
}

// canAssign enforces that a non-super-admin never grants a role that
// outranks their own. Level 1 is the highest privilege.
func canAssign(actor *auth.Principal, role *models.Role) error {
	if actor.IsSuperAdmin() {
		return nil
	}
	if role.Level < actor.RoleLevel {
		return apperr.Forbidden("Cannot assign a role with higher privilege than your own")
	}
	return nil
}

func canManage(actor *auth.Principal, target *models.User) error {
	if actor.IsSuperAdmin() || target.ID == actor.UserID {
		return nil
	}
	level := models.MaxRoleLevel + 1
	if target.Role != nil {
		level = target.Role.Level
	}
	if level < actor.RoleLevel {
		return apperr.Forbidden("Cannot manage a user with higher privilege than your own")
	}
	return nil
}

// canGrant keeps a non-super-admin from handing out a capability they do
// not hold themselves.
func canGrant(actor *auth.Principal, slugs []string) error {
	if actor.IsSuperAdmin() {
		return nil
	}
	for _, slug := range slugs {
		module, action, _ := models.ParseCapability(slug)
		if !actor.Can(action, module) {
			return apperr.Forbidden("Cannot grant a permission you do not hold: " + slug)
		}
	}
	return nil
}

func sameSlugs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]bool, len(b))
	for _, s := range b {
		set[s] = true
	}
	for _, s := range a {
		if !set[s] {
			return false
		}
	}
	return true
}

func normalizeCustom(slugs []string) ([]string, error) {
	out := make([]string, 0, len(slugs))
	seen := make(map[string]bool, len(slugs))
	for _, raw := range slugs {
		slug := strings.ToLower(strings.TrimSpace(raw))
		if _, _, ok := models.ParseCapability(slug); !ok {
			return nil, apperr.Field("custom_permissions", "invalid permission: "+raw)
		}
		if seen[slug] {
			continue
		}
		seen[slug] = true
		out = append(out, slug)
	}
	return out, nil
}
