package content

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/Kyz7/backoffice/internal/apperr"
	"github.com/Kyz7/backoffice/internal/models"
	"github.com/Kyz7/backoffice/internal/response"
	"github.com/Kyz7/backoffice/internal/validation"
	"github.com/microcosm-cc/bluemonday"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// listOrder is the display order of blocks within a page: explicit order
// first, newest first on ties.
const listOrder = "sort_order ASC, created_at DESC, id DESC"

type Service struct {
	db     *gorm.DB
	policy *bluemonday.Policy
	log    logrus.FieldLogger
}

func NewService(db *gorm.DB, log logrus.FieldLogger) *Service {
	return &Service{db: db, policy: bluemonday.UGCPolicy(), log: log}
}

type Filter struct {
	PageID uint
	Status string
	Paging response.Paging
}

type CreateInput struct {
	PageID       uint                   `json:"page_id" validate:"required"`
	Title        string                 `json:"title" validate:"max=255"`
	Body         string                 `json:"body"`
	Order        *int                   `json:"order" validate:"omitempty,min=0"`
	Status       string                 `json:"status" validate:"omitempty,oneof=active inactive"`
	CustomFields map[string]interface{} `json:"custom_fields"`
}

type UpdateInput struct {
	Title        *string                 `json:"title" validate:"omitempty,max=255"`
	Body         *string                 `json:"body"`
	Order        *int                    `json:"order" validate:"omitempty,min=0"`
	Status       *string                 `json:"status" validate:"omitempty,oneof=active inactive"`
	CustomFields *map[string]interface{} `json:"custom_fields"`
}

// ListForPage returns a page's blocks in display order, optionally limited
// to one status.
func (s *Service) ListForPage(ctx context.Context, pageID uint, status string) ([]models.Content, error) {
	q := s.db.WithContext(ctx).Where("page_id = ?", pageID)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var blocks []models.Content
	if err := q.Order(listOrder).Find(&blocks).Error; err != nil {
		return nil, apperr.Internal("Failed to fetch content", err)
	}
	return blocks, nil
}

func (s *Service) List(ctx context.Context, f Filter) ([]models.Content, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Content{})
	if f.PageID != 0 {
		q = q.Where("page_id = ?", f.PageID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperr.Internal("Failed to count content", err)
	}

	var blocks []models.Content
	if err := q.Order("page_id ASC, " + listOrder).
		Offset(f.Paging.Offset()).
		Limit(f.Paging.Limit).
		Find(&blocks).Error; err != nil {
		return nil, 0, apperr.Internal("Failed to fetch content", err)
	}
	return blocks, total, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Content, error) {
	var block models.Content
	if err := s.db.WithContext(ctx).First(&block, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Content")
		}
		return nil, apperr.Internal("Failed to fetch content", err)
	}
	return &block, nil
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Content, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	var pageCount int64
	if err := s.db.WithContext(ctx).Model(&models.Page{}).Where("id = ?", in.PageID).Count(&pageCount).Error; err != nil {
		return nil, apperr.Internal("Failed to check page", err)
	}
	if pageCount == 0 {
		return nil, apperr.Field("page_id", "page does not exist")
	}

	fields, err := encodeFields(in.CustomFields)
	if err != nil {
		return nil, err
	}

	block := models.Content{
		PageID:       in.PageID,
		Title:        in.Title,
		Body:         s.policy.Sanitize(in.Body),
		Status:       in.Status,
		CustomFields: fields,
	}
	if block.Status == "" {
		block.Status = models.StatusActive
	}
	if in.Order != nil {
		block.Order = *in.Order
	} else {
		next, err := s.nextOrder(ctx, in.PageID)
		if err != nil {
			return nil, err
		}
		block.Order = next
	}

	if err := s.db.WithContext(ctx).Create(&block).Error; err != nil {
		return nil, apperr.Internal("Failed to create content", err)
	}
	return &block, nil
}

func (s *Service) Update(ctx context.Context, id uint, in UpdateInput) (*models.Content, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	block, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		block.Title = *in.Title
	}
	if in.Body != nil {
		block.Body = s.policy.Sanitize(*in.Body)
	}
	if in.Order != nil {
		block.Order = *in.Order
	}
	if in.Status != nil {
		block.Status = *in.Status
	}
	if in.CustomFields != nil {
		fields, err := encodeFields(*in.CustomFields)
		if err != nil {
			return nil, err
		}
		block.CustomFields = fields
	}

	if err := s.db.WithContext(ctx).Save(block).Error; err != nil {
		return nil, apperr.Internal("Failed to update content", err)
	}
	return block, nil
}

func (s *Service) Delete(ctx context.Context, id uint) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(&models.Content{}, id).Error; err != nil {
		return apperr.Internal("Failed to delete content", err)
	}
	return nil
}

// DeleteForPage removes every block of a page and reports how many went.
func (s *Service) DeleteForPage(ctx context.Context, pageID uint) (int64, error) {
	res := s.db.WithContext(ctx).Where("page_id = ?", pageID).Delete(&models.Content{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (s *Service) nextOrder(ctx context.Context, pageID uint) (int, error) {
	var highest sql.NullInt64
	if err := s.db.WithContext(ctx).Model(&models.Content{}).
		Where("page_id = ?", pageID).
		Select("MAX(sort_order)").
		Row().Scan(&highest); err != nil {
		return 0, apperr.Internal("Failed to compute content order", err)
	}
	if !highest.Valid {
		return 0, nil
	}
	return int(highest.Int64) + 1, nil
}

func encodeFields(fields map[string]interface{}) (datatypes.JSON, error) {
	if fields == nil {
		return nil, nil
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, apperr.Field("custom_fields", "must be a JSON object")
	}
	return datatypes.JSON(raw), nil
}
