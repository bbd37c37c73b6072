package permission

import (
	"context"
	"errors"
	"strings"

	"github.com/Kyz7/backoffice/internal/apperr"
	"github.com/Kyz7/backoffice/internal/models"
	"github.com/Kyz7/backoffice/internal/utils"
	"github.com/Kyz7/backoffice/internal/validation"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Invalidator is notified after every permission write so cached role
// permission sets never outlive a mutation.
type Invalidator interface {
	Invalidate()
}

type Service struct {
	db    *gorm.DB
	cache Invalidator
	log   logrus.FieldLogger
}

func NewService(db *gorm.DB, cache Invalidator, log logrus.FieldLogger) *Service {
	return &Service{db: db, cache: cache, log: log}
}

type Filter struct {
	Module   string
	Action   string
	IsActive *bool
}

type CreateInput struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Module      string `json:"module" validate:"required"`
	Action      string `json:"action" validate:"required"`
	Description string `json:"description" validate:"max=500"`
}

// Patch covers the mutable fields. Module and action are fixed at creation.
type Patch struct {
	Name        *string `json:"name" validate:"omitempty,min=2,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	IsActive    *bool   `json:"is_active"`
}

func (s *Service) List(ctx context.Context, f Filter) ([]models.Permission, error) {
	q := s.db.WithContext(ctx).Model(&models.Permission{})
	if f.Module != "" {
		q = q.Where("module = ?", f.Module)
	}
	if f.Action != "" {
		q = q.Where("action = ?", f.Action)
	}
	if f.IsActive != nil {
		q = q.Where("is_active = ?", *f.IsActive)
	}

	var perms []models.Permission
	if err := q.Order("module ASC, action ASC").Find(&perms).Error; err != nil {
		return nil, apperr.Internal("Failed to fetch permissions", err)
	}
	return perms, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Permission, error) {
	var perm models.Permission
	if err := s.db.WithContext(ctx).First(&perm, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Permission")
		}
		return nil, apperr.Internal("Failed to fetch permission", err)
	}
	return &perm, nil
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Permission, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	var fields []apperr.FieldError
	if !models.IsModule(in.Module) {
		fields = append(fields, apperr.FieldError{Field: "module", Message: "is not a known module"})
	}
	if !models.IsAction(in.Action) {
		fields = append(fields, apperr.FieldError{Field: "action", Message: "must be one of: " + strings.Join(models.Actions, ", ")})
	}
	if len(fields) > 0 {
		return nil, apperr.Validation(fields...)
	}

	name := strings.TrimSpace(in.Name)
	slug := utils.DeriveSlug(name)
	if slug == "" {
		return nil, apperr.Field("name", "must contain letters or digits")
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Permission{}).
		Where("module = ? AND action = ?", in.Module, in.Action).
		Count(&count).Error; err != nil {
		return nil, apperr.Internal("Failed to check permission", err)
	}
	if count > 0 {
		return nil, apperr.Conflict("Permission for " + models.CapabilitySlug(in.Module, in.Action) + " already exists")
	}
	if err := s.checkNameUnique(ctx, name, slug, 0); err != nil {
		return nil, err
	}

	perm := models.Permission{
		Name:        name,
		Slug:        slug,
		Description: in.Description,
		Module:      in.Module,
		Action:      in.Action,
		IsActive:    true,
	}
	if err := s.db.WithContext(ctx).Create(&perm).Error; err != nil {
		return nil, apperr.Internal("Failed to create permission", err)
	}

	s.cache.Invalidate()
	s.log.WithFields(logrus.Fields{"permission_id": perm.ID, "slug": perm.Slug}).Info("permission created")
	return &perm, nil
}

func (s *Service) Update(ctx context.Context, id uint, p Patch) (*models.Permission, error) {
	if err := validation.Struct(p); err != nil {
		return nil, err
	}

	perm, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		slug := utils.DeriveSlug(name)
		if slug == "" {
			return nil, apperr.Field("name", "must contain letters or digits")
		}
		if err := s.checkNameUnique(ctx, name, slug, perm.ID); err != nil {
			return nil, err
		}
		perm.Name = name
		perm.Slug = slug
	}
	if p.Description != nil {
		perm.Description = *p.Description
	}
	if p.IsActive != nil {
		perm.IsActive = *p.IsActive
	}

	if err := s.db.WithContext(ctx).Save(perm).Error; err != nil {
		return nil, apperr.Internal("Failed to update permission", err)
	}

	s.cache.Invalidate()
	return perm, nil
}

func (s *Service) Delete(ctx context.Context, id uint) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(&models.Permission{}, id).Error; err != nil {
		return apperr.Internal("Failed to delete permission", err)
	}

	s.cache.Invalidate()
	s.log.WithField("permission_id", id).Info("permission deleted")
	return nil
}

func (s *Service) checkNameUnique(ctx context.Context, name, slug string, excludeID uint) error {
	var count int64
	q := s.db.WithContext(ctx).Model(&models.Permission{}).
		Where("LOWER(name) = ? OR slug = ?", strings.ToLower(name), slug)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return apperr.Internal("Failed to check permission name", err)
	}
	if count > 0 {
		return apperr.Conflict("Permission with this name already exists")
	}
	return nil
}
