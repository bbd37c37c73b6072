package page

import (
	"context"
	"errors"
	"strings"

	"github.com/Kyz7/backoffice/internal/apperr"
	"github.com/Kyz7/backoffice/internal/models"
	"github.com/Kyz7/backoffice/internal/response"
	"github.com/Kyz7/backoffice/internal/utils"
	"github.com/Kyz7/backoffice/internal/validation"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ContentStore is the part of the content service a page needs for its
// public view and for the delete cascade.
type ContentStore interface {
	ListForPage(ctx context.Context, pageID uint, status string) ([]models.Content, error)
	DeleteForPage(ctx context.Context, pageID uint) (int64, error)
}

type Service struct {
	db       *gorm.DB
	contents ContentStore
	log      logrus.FieldLogger
}

func NewService(db *gorm.DB, contents ContentStore, log logrus.FieldLogger) *Service {
	return &Service{db: db, contents: contents, log: log}
}

type Filter struct {
	Search string
	Status string
	Paging response.Paging
}

type CreateInput struct {
	Name            string  `json:"name" validate:"required,min=1,max=200"`
	Path            *string `json:"path" validate:"omitempty,max=255"`
	Status          string  `json:"status" validate:"omitempty,oneof=active inactive"`
	Template        string  `json:"template" validate:"max=100"`
	MetaTitle       string  `json:"meta_title" validate:"max=255"`
	MetaDescription string  `json:"meta_description" validate:"max=500"`
	MetaKeywords    string  `json:"meta_keywords" validate:"max=500"`
	OGImage         string  `json:"og_image" validate:"max=500"`
	CanonicalURL    string  `json:"canonical_url" validate:"max=500"`
}

// UpdateInput is a patch. An explicit empty path puts the page back on its
// slug-derived path.
type UpdateInput struct {
	Name            *string `json:"name" validate:"omitempty,min=1,max=200"`
	Path            *string `json:"path" validate:"omitempty,max=255"`
	Status          *string `json:"status" validate:"omitempty,oneof=active inactive"`
	Template        *string `json:"template" validate:"omitempty,max=100"`
	MetaTitle       *string `json:"meta_title" validate:"omitempty,max=255"`
	MetaDescription *string `json:"meta_description" validate:"omitempty,max=500"`
	MetaKeywords    *string `json:"meta_keywords" validate:"omitempty,max=500"`
	OGImage         *string `json:"og_image" validate:"omitempty,max=500"`
	CanonicalURL    *string `json:"canonical_url" validate:"omitempty,max=500"`
}

// Public is what the site renders for a resolved page.
type Public struct {
	Page    *models.Page     `json:"page"`
	Content []models.Content `json:"content"`
}

func (s *Service) List(ctx context.Context, f Filter) ([]models.Page, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Page{})
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		q = q.Where("LOWER(name) LIKE ? OR slug LIKE ?", like, like)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperr.Internal("Failed to count pages", err)
	}

	var pages []models.Page
	if err := q.Order("name ASC, id ASC").
		Offset(f.Paging.Offset()).
		Limit(f.Paging.Limit).
		Find(&pages).Error; err != nil {
		return nil, 0, apperr.Internal("Failed to fetch pages", err)
	}
	return pages, total, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Page, error) {
	var p models.Page
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Page")
		}
		return nil, apperr.Internal("Failed to fetch page", err)
	}
	return &p, nil
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Page, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	slug := utils.DeriveSlug(name)
	if slug == "" {
		return nil, apperr.Field("name", "must contain at least one letter or digit")
	}

	path := utils.DerivePath(slug)
	if in.Path != nil && strings.TrimSpace(*in.Path) != "" {
		path = utils.NormalizePath(*in.Path)
	}

	if err := s.checkUnique(ctx, name, slug, path, 0); err != nil {
		return nil, err
	}

	p := models.Page{
		Name:            name,
		Slug:            slug,
		Path:            path,
		Status:          in.Status,
		Template:        in.Template,
		MetaTitle:       in.MetaTitle,
		MetaDescription: in.MetaDescription,
		MetaKeywords:    in.MetaKeywords,
		OGImage:         in.OGImage,
		CanonicalURL:    in.CanonicalURL,
	}
	if p.Status == "" {
		p.Status = models.StatusActive
	}

	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		return nil, apperr.Internal("Failed to create page", err)
	}
	return &p, nil
}

func (s *Service) Update(ctx context.Context, id uint, in UpdateInput) (*models.Page, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	oldSlug := p.Slug
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		slug := utils.DeriveSlug(name)
		if slug == "" {
			return nil, apperr.Field("name", "must contain at least one letter or digit")
		}
		p.Name = name
		p.Slug = slug
	}

	switch {
	case in.Path != nil && strings.TrimSpace(*in.Path) == "":
		p.Path = utils.DerivePath(p.Slug)
	case in.Path != nil:
		p.Path = utils.NormalizePath(*in.Path)
	case p.Path == utils.DerivePath(oldSlug):
		// Auto-derived paths follow renames.
		p.Path = utils.DerivePath(p.Slug)
	}

	if err := s.checkUnique(ctx, p.Name, p.Slug, p.Path, p.ID); err != nil {
		return nil, err
	}

	if in.Status != nil {
		p.Status = *in.Status
	}
	if in.Template != nil {
		p.Template = *in.Template
	}
	if in.MetaTitle != nil {
		p.MetaTitle = *in.MetaTitle
	}
	if in.MetaDescription != nil {
		p.MetaDescription = *in.MetaDescription
	}
	if in.MetaKeywords != nil {
		p.MetaKeywords = *in.MetaKeywords
	}
	if in.OGImage != nil {
		p.OGImage = *in.OGImage
	}
	if in.CanonicalURL != nil {
		p.CanonicalURL = *in.CanonicalURL
	}

	if err := s.db.WithContext(ctx).Save(p).Error; err != nil {
		return nil, apperr.Internal("Failed to update page", err)
	}
	return p, nil
}

// Delete removes the page and then its content blocks. The two writes are not
// atomic: when the second one fails the page stays deleted and the caller
// gets a PartialFailure.
func (s *Service) Delete(ctx context.Context, id uint) error {
	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(&models.Page{}, p.ID).Error; err != nil {
		return apperr.Internal("Failed to delete page", err)
	}

	removed, err := s.contents.DeleteForPage(ctx, p.ID)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"page_id": p.ID,
			"slug":    p.Slug,
		}).Error("page deleted but content cascade failed")
		return apperr.PartialFailure("Page deleted but its content could not be removed", err)
	}

	s.log.WithFields(logrus.Fields{"page_id": p.ID, "content_removed": removed}).Info("page deleted")
	return nil
}

// Resolve finds the active page a public URL segment points at, by slug or
// by path. An empty segment is the site root. A miss is not an error.
func (s *Service) Resolve(ctx context.Context, segment string) (*models.Page, bool, error) {
	segment = strings.Trim(strings.TrimSpace(segment), "/")
	path := "/" + segment

	q := s.db.WithContext(ctx).Where("status = ?", models.StatusActive)
	if segment == "" {
		q = q.Where("path = ?", path)
	} else {
		q = q.Where("slug = ? OR path = ?", segment, path)
	}

	var p models.Page
	if err := q.Order("id ASC").First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, apperr.Internal("Failed to resolve page", err)
	}
	return &p, true, nil
}

// PublicView resolves segment and attaches the page's active content.
func (s *Service) PublicView(ctx context.Context, segment string) (*Public, bool, error) {
	p, found, err := s.Resolve(ctx, segment)
	if err != nil || !found {
		return nil, found, err
	}

	blocks, err := s.contents.ListForPage(ctx, p.ID, models.StatusActive)
	if err != nil {
		return nil, false, err
	}
	if blocks == nil {
		blocks = []models.Content{}
	}
	return &Public{Page: p, Content: blocks}, true, nil
}

func (s *Service) checkUnique(ctx context.Context, name, slug, path string, excludeID uint) error {
	checks := []struct {
		query   string
		value   string
		message string
	}{
		{"LOWER(name) = ?", strings.ToLower(name), "A page with this name already exists"},
		{"slug = ?", slug, "A page with this slug already exists"},
		{"path = ?", path, "A page with this path already exists"},
	}

	for _, chk := range checks {
		var count int64
		q := s.db.WithContext(ctx).Model(&models.Page{}).Where(chk.query, chk.value)
		if excludeID != 0 {
			q = q.Where("id <> ?", excludeID)
		}
		if err := q.Count(&count).Error; err != nil {
			return apperr.Internal("Failed to check page uniqueness", err)
		}
		if count > 0 {
			return apperr.Conflict(chk.message)
		}
	}
	return nil
}
