package search

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Kyz7/backoffice/internal/apperr"
	"github.com/Kyz7/backoffice/internal/models"
	"github.com/Kyz7/backoffice/internal/response"
	"gorm.io/gorm"
)

// fieldName guards custom field keys that are spliced into JSON paths.
var fieldName = regexp.MustCompile(`^[A-Za-z0-9_]{1,64}$`)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

type Params struct {
	Query    string
	PageID   uint
	Status   string
	Fields   []string
	FromDate string
	ToDate   string
	SortBy   string
	OrderBy  string
	Paging   response.Paging
}

type Facets struct {
	Statuses  map[string]int64 `json:"statuses"`
	Pages     map[string]int64 `json:"pages"`
	DateRange *DateRange       `json:"date_range"`
}

type DateRange struct {
	Oldest *time.Time `json:"oldest"`
	Newest *time.Time `json:"newest"`
}

// Content searches content blocks by title and body, or by the named custom
// fields when Fields is set.
func (s *Service) Content(ctx context.Context, p Params) ([]models.Content, int64, error) {
	q, err := s.filtered(ctx, p)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperr.Internal("Search failed", err)
	}

	var blocks []models.Content
	if err := s.sorted(q, p).
		Offset(p.Paging.Offset()).
		Limit(p.Paging.Limit).
		Find(&blocks).Error; err != nil {
		return nil, 0, apperr.Internal("Search failed", err)
	}
	return blocks, total, nil
}

// Facets counts the matching blocks per status and per page, and reports the
// creation date range of the matches.
func (s *Service) Facets(ctx context.Context, p Params) (*Facets, error) {
	facets := &Facets{
		Statuses:  map[string]int64{},
		Pages:     map[string]int64{},
		DateRange: &DateRange{},
	}

	q, err := s.filtered(ctx, p)
	if err != nil {
		return nil, err
	}

	var statusCounts []struct {
		Status string
		Count  int64
	}
	if err := q.Session(&gorm.Session{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&statusCounts).Error; err != nil {
		return nil, apperr.Internal("Failed to compute facets", err)
	}
	for _, sc := range statusCounts {
		facets.Statuses[sc.Status] = sc.Count
	}

	var pageCounts []struct {
		PageID uint
		Count  int64
	}
	if err := q.Session(&gorm.Session{}).
		Select("page_id, count(*) as count").
		Group("page_id").
		Scan(&pageCounts).Error; err != nil {
		return nil, apperr.Internal("Failed to compute facets", err)
	}
	if len(pageCounts) > 0 {
		ids := make([]uint, 0, len(pageCounts))
		for _, pc := range pageCounts {
			ids = append(ids, pc.PageID)
		}
		var pages []models.Page
		if err := s.db.WithContext(ctx).Select("id, slug").Where("id IN ?", ids).Find(&pages).Error; err != nil {
			return nil, apperr.Internal("Failed to compute facets", err)
		}
		slugs := make(map[uint]string, len(pages))
		for _, pg := range pages {
			slugs[pg.ID] = pg.Slug
		}
		for _, pc := range pageCounts {
			if slug, ok := slugs[pc.PageID]; ok {
				facets.Pages[slug] = pc.Count
			}
		}
	}

	var blocks []models.Content
	if err := q.Session(&gorm.Session{}).Select("created_at").Order("created_at ASC").Find(&blocks).Error; err != nil {
		return nil, apperr.Internal("Failed to compute facets", err)
	}
	if len(blocks) > 0 {
		oldest, newest := blocks[0].CreatedAt, blocks[len(blocks)-1].CreatedAt
		facets.DateRange.Oldest = &oldest
		facets.DateRange.Newest = &newest
	}

	return facets, nil
}

func (s *Service) filtered(ctx context.Context, p Params) (*gorm.DB, error) {
	q := s.db.WithContext(ctx).Model(&models.Content{})

	if p.PageID != 0 {
		q = q.Where("page_id = ?", p.PageID)
	}
	if p.Status != "" {
		if !models.IsStatus(p.Status) {
			return nil, apperr.Field("status", "must be one of: active, inactive")
		}
		q = q.Where("status = ?", p.Status)
	}

	if p.FromDate != "" {
		from, err := time.Parse("2006-01-02", p.FromDate)
		if err != nil {
			return nil, apperr.Field("from", "must be a date like 2006-01-02")
		}
		q = q.Where("created_at >= ?", from)
	}
	if p.ToDate != "" {
		to, err := time.Parse("2006-01-02", p.ToDate)
		if err != nil {
			return nil, apperr.Field("to", "must be a date like 2006-01-02")
		}
		q = q.Where("created_at < ?", to.Add(24*time.Hour))
	}

	term := strings.TrimSpace(p.Query)
	if term == "" {
		return q, nil
	}
	like := "%" + strings.ToLower(term) + "%"

	if len(p.Fields) == 0 {
		return q.Where("LOWER(title) LIKE ? OR LOWER(body) LIKE ?", like, like), nil
	}

	conditions := make([]string, 0, len(p.Fields))
	args := make([]interface{}, 0, len(p.Fields))
	for _, field := range p.Fields {
		if !fieldName.MatchString(field) {
			return nil, apperr.Field("fields", "invalid field name: "+field)
		}
		if s.db.Dialector.Name() == "postgres" {
			conditions = append(conditions, fmt.Sprintf("LOWER(custom_fields->>'%s') LIKE ?", field))
		} else {
			conditions = append(conditions, fmt.Sprintf("LOWER(json_extract(custom_fields, '$.%s')) LIKE ?", field))
		}
		args = append(args, like)
	}
	return q.Where(strings.Join(conditions, " OR "), args...), nil
}

func (s *Service) sorted(q *gorm.DB, p Params) *gorm.DB {
	orderBy := strings.ToLower(p.OrderBy)
	if orderBy != "asc" && orderBy != "desc" {
		orderBy = "desc"
	}

	switch p.SortBy {
	case "updated_at":
		return q.Order("updated_at " + orderBy).Order("id " + orderBy)
	case "title":
		return q.Order("title " + orderBy).Order("id " + orderBy)
	case "order":
		return q.Order("page_id ASC").Order("sort_order " + orderBy).Order("id " + orderBy)
	default:
		return q.Order("created_at " + orderBy).Order("id " + orderBy)
	}
}
