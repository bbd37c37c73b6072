package menu

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/Kyz7/backoffice/internal/apperr"
	"github.com/Kyz7/backoffice/internal/models"
	"github.com/Kyz7/backoffice/internal/utils"
	"github.com/Kyz7/backoffice/internal/validation"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log logrus.FieldLogger
}

func NewService(db *gorm.DB, log logrus.FieldLogger) *Service {
	return &Service{db: db, log: log}
}

// WithTree is a menu together with its rebuilt item hierarchy.
type WithTree struct {
	models.Menu
	Items []*Node `json:"items"`
}

type ItemInput struct {
	Title    string `json:"title" validate:"required,max=255"`
	URL      string `json:"url" validate:"required,max=500"`
	Target   string `json:"target" validate:"omitempty,oneof=_self _blank"`
	ParentID *uint  `json:"parent_id"`
	IsActive *bool  `json:"is_active"`
}

// TreeInput is one node of a nested tree submitted by the menu builder.
type TreeInput struct {
	Title    string      `json:"title" validate:"required,max=255"`
	URL      string      `json:"url" validate:"required,max=500"`
	Target   string      `json:"target" validate:"omitempty,oneof=_self _blank"`
	IsActive *bool       `json:"is_active"`
	Children []TreeInput `json:"children"`
}

type CreateInput struct {
	Name     string      `json:"name" validate:"required,min=2,max=100"`
	Location string      `json:"location" validate:"required,oneof=header footer sidebar custom"`
	IsActive *bool       `json:"is_active"`
	Items    []TreeInput `json:"items"`
}

type UpdateInput struct {
	Name     *string      `json:"name" validate:"omitempty,min=2,max=100"`
	Location *string      `json:"location" validate:"omitempty,oneof=header footer sidebar custom"`
	IsActive *bool        `json:"is_active"`
	Items    *[]TreeInput `json:"items"`
}

func (s *Service) List(ctx context.Context) ([]models.Menu, error) {
	var menus []models.Menu
	if err := s.db.WithContext(ctx).Order("location ASC, name ASC").Find(&menus).Error; err != nil {
		return nil, apperr.Internal("Failed to fetch menus", err)
	}
	return menus, nil
}

// Get finds a menu by numeric id or slug.
func (s *Service) Get(ctx context.Context, ref string) (*models.Menu, error) {
	q := s.db.WithContext(ctx)
	if id, err := strconv.ParseUint(ref, 10, 64); err == nil {
		q = q.Where("id = ?", id)
	} else {
		q = q.Where("slug = ?", ref)
	}

	var m models.Menu
	if err := q.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("Menu")
		}
		return nil, apperr.Internal("Failed to fetch menu", err)
	}
	return &m, nil
}

func (s *Service) GetWithTree(ctx context.Context, ref string) (*WithTree, error) {
	m, err := s.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	return withTree(s.db.WithContext(ctx), m)
}

// Items returns the flat item list of a menu in (order, id) sequence. Every
// read path builds the hierarchy from this ordering.
func (s *Service) Items(ctx context.Context, menuID uint) ([]models.MenuItem, error) {
	return loadItems(s.db.WithContext(ctx), menuID)
}

func loadItems(db *gorm.DB, menuID uint) ([]models.MenuItem, error) {
	var items []models.MenuItem
	if err := db.Where("menu_id = ?", menuID).Order("sort_order ASC, id ASC").Find(&items).Error; err != nil {
		return nil, apperr.Internal("Failed to fetch menu items", err)
	}
	return items, nil
}

func withTree(db *gorm.DB, m *models.Menu) (*WithTree, error) {
	items, err := loadItems(db, m.ID)
	if err != nil {
		return nil, err
	}
	return &WithTree{Menu: *m, Items: BuildHierarchy(items)}, nil
}

// EnsureForLocation returns the first menu at location, creating
// "<Location> Menu" when there is none.
func (s *Service) EnsureForLocation(ctx context.Context, location string) (*WithTree, error) {
	if !models.IsMenuLocation(location) {
		return nil, apperr.Field("location", "must be one of: "+strings.Join(models.MenuLocations, ", "))
	}

	var m models.Menu
	err := s.db.WithContext(ctx).Where("location = ?", location).Order("id ASC").First(&m).Error
	if err == nil {
		return withTree(s.db.WithContext(ctx), &m)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Internal("Failed to fetch menu", err)
	}

	name := cases.Title(language.English).String(location) + " Menu"
	m = models.Menu{
		Name:     name,
		Slug:     utils.DeriveSlug(name),
		Location: location,
		IsActive: true,
	}
	if err := s.checkUnique(ctx, m.Name, m.Slug, 0); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Omit("Items").Create(&m).Error; err != nil {
		return nil, apperr.Internal("Failed to create menu", err)
	}

	s.log.WithFields(logrus.Fields{"menu_id": m.ID, "location": location}).Info("menu created for location")
	return &WithTree{Menu: m, Items: []*Node{}}, nil
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*WithTree, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if err := validateTree(in.Items); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	slug := utils.DeriveSlug(name)
	if slug == "" {
		return nil, apperr.Field("name", "must contain letters or digits")
	}
	if err := s.checkUnique(ctx, name, slug, 0); err != nil {
		return nil, err
	}

	m := models.Menu{
		Name:     name,
		Slug:     slug,
		Location: in.Location,
		IsActive: in.IsActive == nil || *in.IsActive,
	}

	var out *WithTree
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Create(&m).Error; err != nil {
			return apperr.Internal("Failed to create menu", err)
		}
		if err := insertTree(tx, m.ID, nil, in.Items); err != nil {
			return err
		}
		var err error
		out, err = withTree(tx, &m)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) Update(ctx context.Context, id uint, in UpdateInput) (*WithTree, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	if in.Items != nil {
		if err := validateTree(*in.Items); err != nil {
			return nil, err
		}
	}

	m, err := s.Get(ctx, strconv.FormatUint(uint64(id), 10))
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		slug := utils.DeriveSlug(name)
		if slug == "" {
			return nil, apperr.Field("name", "must contain letters or digits")
		}
		if err := s.checkUnique(ctx, name, slug, m.ID); err != nil {
			return nil, err
		}
		m.Name = name
		m.Slug = slug
	}
	if in.Location != nil {
		m.Location = *in.Location
	}
	if in.IsActive != nil {
		m.IsActive = *in.IsActive
	}

	var out *WithTree
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Save(m).Error; err != nil {
			return apperr.Internal("Failed to update menu", err)
		}
		if in.Items != nil {
			if err := replaceTree(tx, m.ID, *in.Items); err != nil {
				return err
			}
		}
		var err error
		out, err = withTree(tx, m)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the menu and all its items.
func (s *Service) Delete(ctx context.Context, id uint) error {
	if _, err := s.Get(ctx, strconv.FormatUint(uint64(id), 10)); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("menu_id = ?", id).Delete(&models.MenuItem{}).Error; err != nil {
			return apperr.Internal("Failed to delete menu items", err)
		}
		if err := tx.Delete(&models.Menu{}, id).Error; err != nil {
			return apperr.Internal("Failed to delete menu", err)
		}
		return nil
	})
}

// AddItems appends leaf items. An item whose URL already exists in the menu,
// or earlier in the same batch, is skipped without error.
func (s *Service) AddItems(ctx context.Context, menuID uint, in []ItemInput) ([]models.MenuItem, int, error) {
	if len(in) == 0 {
		return nil, 0, apperr.Field("items", "at least one item is required")
	}
	for _, it := range in {
		if err := validation.Struct(it); err != nil {
			return nil, 0, err
		}
	}

	if _, err := s.Get(ctx, strconv.FormatUint(uint64(menuID), 10)); err != nil {
		return nil, 0, err
	}

	var added []models.MenuItem
	skipped := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := loadItems(tx, menuID)
		if err != nil {
			return err
		}

		byID := make(map[uint]bool, len(existing))
		urls := make(map[string]bool, len(existing)+len(in))
		nextOrder := make(map[uint]int)
		rootOrder := 0
		for _, it := range existing {
			byID[it.ID] = true
			urls[strings.TrimSpace(it.URL)] = true
			if it.ParentID == nil {
				if it.Order >= rootOrder {
					rootOrder = it.Order + 1
				}
			} else if it.Order >= nextOrder[*it.ParentID] {
				nextOrder[*it.ParentID] = it.Order + 1
			}
		}

		for _, it := range in {
			if it.ParentID != nil && !byID[*it.ParentID] {
				return apperr.Field("parent_id", "parent must belong to the same menu")
			}
		}

		for _, it := range in {
			url := strings.TrimSpace(it.URL)
			if urls[url] {
				skipped++
				continue
			}
			urls[url] = true

			item := newItem(menuID, it.ParentID, it.Title, url, it.Target, it.IsActive)
			if it.ParentID == nil {
				item.Order = rootOrder
				rootOrder++
			} else {
				item.Order = nextOrder[*it.ParentID]
				nextOrder[*it.ParentID]++
			}
			if err := tx.Create(&item).Error; err != nil {
				return apperr.Internal("Failed to add menu item", err)
			}
			added = append(added, item)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	s.log.WithFields(logrus.Fields{"menu_id": menuID, "added": len(added), "skipped": skipped}).Info("menu items added")
	return added, skipped, nil
}

// MoveItem places an item at newIndex among the children of newParentID (nil
// for the root level). Descendants follow implicitly. Siblings of the old
// and new parent are renumbered.
func (s *Service) MoveItem(ctx context.Context, menuID, itemID uint, newIndex int, newParentID *uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items, err := loadItems(tx, menuID)
		if err != nil {
			return err
		}

		pos := -1
		inMenu := make(map[uint]bool, len(items))
		for i, it := range items {
			inMenu[it.ID] = true
			if it.ID == itemID {
				pos = i
			}
		}
		if pos < 0 {
			return apperr.NotFound("Menu item")
		}

		if newParentID != nil {
			switch {
			case *newParentID == itemID:
				return apperr.Field("parent_id", "an item cannot be its own parent")
			case !inMenu[*newParentID]:
				return apperr.Field("parent_id", "parent must belong to the same menu")
			case descendants(items, itemID)[*newParentID]:
				return apperr.Field("parent_id", "an item cannot move under its own descendant")
			}
		}

		moving := items[pos]
		oldParent := moving.ParentID

		siblings := func(parent *uint) []models.MenuItem {
			var out []models.MenuItem
			for _, it := range items {
				if it.ID != itemID && sameParent(it.ParentID, parent) {
					out = append(out, it)
				}
			}
			sort.SliceStable(out, func(i, j int) bool {
				if out[i].Order != out[j].Order {
					return out[i].Order < out[j].Order
				}
				return out[i].ID < out[j].ID
			})
			return out
		}

		if !sameParent(oldParent, newParentID) {
			if err := renumber(tx, siblings(oldParent)); err != nil {
				return err
			}
		}

		target := siblings(newParentID)
		if newIndex < 0 {
			newIndex = 0
		}
		if newIndex > len(target) {
			newIndex = len(target)
		}
		moving.ParentID = newParentID
		reordered := make([]models.MenuItem, 0, len(target)+1)
		reordered = append(reordered, target[:newIndex]...)
		reordered = append(reordered, moving)
		reordered = append(reordered, target[newIndex:]...)

		var parentValue interface{} = gorm.Expr("NULL")
		if newParentID != nil {
			parentValue = *newParentID
		}
		if err := tx.Model(&models.MenuItem{}).Where("id = ?", itemID).
			Update("parent_id", parentValue).Error; err != nil {
			return apperr.Internal("Failed to move menu item", err)
		}
		return renumber(tx, reordered)
	})
}

// RemoveItem deletes the item and everything below it, returning how many
// rows were removed.
func (s *Service) RemoveItem(ctx context.Context, menuID, itemID uint) (int, error) {
	removed := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items, err := loadItems(tx, menuID)
		if err != nil {
			return err
		}

		found := false
		for _, it := range items {
			if it.ID == itemID {
				found = true
				break
			}
		}
		if !found {
			return apperr.NotFound("Menu item")
		}

		ids := []uint{itemID}
		for id := range descendants(items, itemID) {
			ids = append(ids, id)
		}
		if err := tx.Where("menu_id = ? AND id IN ?", menuID, ids).Delete(&models.MenuItem{}).Error; err != nil {
			return apperr.Internal("Failed to remove menu item", err)
		}
		removed = len(ids)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// ReplaceTree discards the menu's items and stores nested as a flat list.
func (s *Service) ReplaceTree(ctx context.Context, menuID uint, nested []TreeInput) ([]*Node, error) {
	if err := validateTree(nested); err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, strconv.FormatUint(uint64(menuID), 10)); err != nil {
		return nil, err
	}

	var tree []*Node
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := replaceTree(tx, menuID, nested); err != nil {
			return err
		}
		items, err := loadItems(tx, menuID)
		if err != nil {
			return err
		}
		tree = BuildHierarchy(items)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tree, nil
}

func replaceTree(tx *gorm.DB, menuID uint, nested []TreeInput) error {
	if err := tx.Where("menu_id = ?", menuID).Delete(&models.MenuItem{}).Error; err != nil {
		return apperr.Internal("Failed to clear menu items", err)
	}
	return insertTree(tx, menuID, nil, nested)
}

func insertTree(tx *gorm.DB, menuID uint, parent *uint, nodes []TreeInput) error {
	for i, n := range nodes {
		item := newItem(menuID, parent, n.Title, strings.TrimSpace(n.URL), n.Target, n.IsActive)
		item.Order = i
		if err := tx.Create(&item).Error; err != nil {
			return apperr.Internal("Failed to save menu item", err)
		}
		id := item.ID
		if err := insertTree(tx, menuID, &id, n.Children); err != nil {
			return err
		}
	}
	return nil
}

func validateTree(nodes []TreeInput) error {
	for _, n := range nodes {
		if err := validation.Struct(n); err != nil {
			return err
		}
		if err := validateTree(n.Children); err != nil {
			return err
		}
	}
	return nil
}

func renumber(tx *gorm.DB, items []models.MenuItem) error {
	for i, it := range items {
		if it.Order == i {
			continue
		}
		if err := tx.Model(&models.MenuItem{}).Where("id = ?", it.ID).Update("sort_order", i).Error; err != nil {
			return apperr.Internal("Failed to reorder menu items", err)
		}
	}
	return nil
}

func newItem(menuID uint, parent *uint, title, url, target string, active *bool) models.MenuItem {
	if target == "" {
		target = models.TargetSelf
	}
	return models.MenuItem{
		MenuID:   menuID,
		ParentID: parent,
		Title:    strings.TrimSpace(title),
		URL:      url,
		Target:   target,
		IsActive: active == nil || *active,
	}
}

func (s *Service) checkUnique(ctx context.Context, name, slug string, excludeID uint) error {
	var count int64
	q := s.db.WithContext(ctx).Model(&models.Menu{}).
		Where("LOWER(name) = ? OR slug = ?", strings.ToLower(name), slug)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return apperr.Internal("Failed to check menu name", err)
	}
	if count > 0 {
		return apperr.Conflict("Menu with this name already exists")
	}
	return nil
}
