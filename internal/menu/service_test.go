package menu_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/Kyz7/backoffice/internal/apperr"
	"github.com/Kyz7/backoffice/internal/logger"
	"github.com/Kyz7/backoffice/internal/menu"
	"github.com/Kyz7/backoffice/internal/models"
	"github.com/Kyz7/backoffice/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMenu(t *testing.T) (*menu.Service, *menu.WithTree) {
	svc := menu.NewService(testutils.TestDB(t), logger.Discard())
	m, err := svc.Create(context.Background(), menu.CreateInput{
		Name:     "Main Navigation",
		Location: models.MenuLocationHeader,
		Items: []menu.TreeInput{
			{Title: "Home", URL: "/"},
			{Title: "Services", URL: "/services", Children: []menu.TreeInput{
				{Title: "Design", URL: "/services/design"},
				{Title: "Build", URL: "/services/build", Children: []menu.TreeInput{
					{Title: "Web", URL: "/services/build/web"},
				}},
			}},
			{Title: "Contact", URL: "/contact", Target: models.TargetBlank},
		},
	})
	require.NoError(t, err)
	return svc, m
}

func titles(nodes []*menu.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Title)
	}
	return out
}

func find(nodes []*menu.Node, title string) *menu.Node {
	for _, n := range nodes {
		if n.Title == title {
			return n
		}
		if hit := find(n.Children, title); hit != nil {
			return hit
		}
	}
	return nil
}

func TestMenuService(t *testing.T) {
	ctx := context.Background()

	t.Run("Success - Create stores the nested tree", func(t *testing.T) {
		_, m := newMenu(t)

		assert.Equal(t, "main-navigation", m.Slug)
		assert.True(t, m.IsActive)
		assert.Equal(t, []string{"Home", "Services", "Contact"}, titles(m.Items))
		services := find(m.Items, "Services")
		assert.Equal(t, []string{"Design", "Build"}, titles(services.Children))
		assert.Equal(t, models.TargetSelf, find(m.Items, "Home").Target)
		assert.Equal(t, models.TargetBlank, find(m.Items, "Contact").Target)
	})

	t.Run("Success - Get by slug or id", func(t *testing.T) {
		svc, m := newMenu(t)

		bySlug, err := svc.GetWithTree(ctx, "main-navigation")
		require.NoError(t, err)
		byID, err := svc.GetWithTree(ctx, fmt.Sprint(m.ID))
		require.NoError(t, err)
		assert.Equal(t, bySlug.ID, byID.ID)
		assert.Len(t, byID.Items, 3)

		_, err = svc.Get(ctx, "missing")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("Error - Duplicate name", func(t *testing.T) {
		svc, _ := newMenu(t)

		_, err := svc.Create(ctx, menu.CreateInput{Name: "main navigation", Location: models.MenuLocationFooter})
		assert.ErrorIs(t, err, apperr.ErrConflict)
	})

	t.Run("Error - Invalid location", func(t *testing.T) {
		svc, _ := newMenu(t)

		_, err := svc.Create(ctx, menu.CreateInput{Name: "Other", Location: "topbar"})
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("Success - AddItems skips duplicate URLs", func(t *testing.T) {
		svc, m := newMenu(t)
		services := find(m.Items, "Services")

		added, skipped, err := svc.AddItems(ctx, m.ID, []menu.ItemInput{
			{Title: "Blog", URL: "/blog"},
			{Title: "Home again", URL: " / "},
			{Title: "Blog twice", URL: "/blog"},
			{Title: "Audit", URL: "/services/audit", ParentID: &services.ID},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, skipped)
		require.Len(t, added, 2)
		assert.Equal(t, 3, added[0].Order, "appended after the existing roots")
		assert.Equal(t, 2, added[1].Order, "appended after the existing children")

		tree, err := svc.GetWithTree(ctx, fmt.Sprint(m.ID))
		require.NoError(t, err)
		assert.Equal(t, []string{"Home", "Services", "Contact", "Blog"}, titles(tree.Items))
		assert.Equal(t, []string{"Design", "Build", "Audit"}, titles(find(tree.Items, "Services").Children))
	})

	t.Run("Error - AddItems with a foreign parent", func(t *testing.T) {
		svc, m := newMenu(t)
		foreign := uint(9999)

		_, _, err := svc.AddItems(ctx, m.ID, []menu.ItemInput{{Title: "Lost", URL: "/lost", ParentID: &foreign}})
		assert.ErrorIs(t, err, apperr.ErrValidation)

		_, _, err = svc.AddItems(ctx, m.ID, nil)
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("Success - MoveItem reparents and renumbers", func(t *testing.T) {
		svc, m := newMenu(t)
		build := find(m.Items, "Build")

		require.NoError(t, svc.MoveItem(ctx, m.ID, build.ID, 0, nil))

		tree, err := svc.GetWithTree(ctx, fmt.Sprint(m.ID))
		require.NoError(t, err)
		assert.Equal(t, []string{"Build", "Home", "Services", "Contact"}, titles(tree.Items))
		assert.Equal(t, []string{"Web"}, titles(find(tree.Items, "Build").Children), "descendants follow")
		assert.Equal(t, []string{"Design"}, titles(find(tree.Items, "Services").Children))

		items, err := svc.Items(ctx, m.ID)
		require.NoError(t, err)
		for _, it := range items {
			if it.Title == "Design" {
				assert.Equal(t, 0, it.Order)
			}
			if it.Title == "Contact" {
				assert.Equal(t, 3, it.Order)
			}
		}
	})

	t.Run("Success - MoveItem clamps the index", func(t *testing.T) {
		svc, m := newMenu(t)
		home := find(m.Items, "Home")

		require.NoError(t, svc.MoveItem(ctx, m.ID, home.ID, 99, nil))

		tree, err := svc.GetWithTree(ctx, fmt.Sprint(m.ID))
		require.NoError(t, err)
		assert.Equal(t, []string{"Services", "Contact", "Home"}, titles(tree.Items))
	})

	t.Run("Error - MoveItem under its own descendant", func(t *testing.T) {
		svc, m := newMenu(t)
		services := find(m.Items, "Services")
		web := find(m.Items, "Web")

		err := svc.MoveItem(ctx, m.ID, services.ID, 0, &web.ID)
		assert.ErrorIs(t, err, apperr.ErrValidation)

		err = svc.MoveItem(ctx, m.ID, services.ID, 0, &services.ID)
		assert.ErrorIs(t, err, apperr.ErrValidation)

		err = svc.MoveItem(ctx, m.ID, 9999, 0, nil)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("Success - RemoveItem removes the subtree", func(t *testing.T) {
		svc, m := newMenu(t)
		services := find(m.Items, "Services")

		removed, err := svc.RemoveItem(ctx, m.ID, services.ID)
		require.NoError(t, err)
		assert.Equal(t, 4, removed)

		items, err := svc.Items(ctx, m.ID)
		require.NoError(t, err)
		assert.Len(t, items, 2)

		_, err = svc.RemoveItem(ctx, m.ID, services.ID)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("Success - ReplaceTree", func(t *testing.T) {
		svc, m := newMenu(t)

		tree, err := svc.ReplaceTree(ctx, m.ID, []menu.TreeInput{
			{Title: "Shop", URL: "/shop", Children: []menu.TreeInput{{Title: "Sale", URL: "/shop/sale"}}},
		})
		require.NoError(t, err)
		require.Len(t, tree, 1)
		assert.Equal(t, "Shop", tree[0].Title)
		assert.Equal(t, []string{"Sale"}, titles(tree[0].Children))

		items, err := svc.Items(ctx, m.ID)
		require.NoError(t, err)
		assert.Len(t, items, 2)
	})

	t.Run("Error - ReplaceTree rejects invalid nodes", func(t *testing.T) {
		svc, m := newMenu(t)

		_, err := svc.ReplaceTree(ctx, m.ID, []menu.TreeInput{
			{Title: "Shop", URL: "/shop", Children: []menu.TreeInput{{Title: "No URL"}}},
		})
		assert.ErrorIs(t, err, apperr.ErrValidation)

		items, err := svc.Items(ctx, m.ID)
		require.NoError(t, err)
		assert.Len(t, items, 6, "existing items are untouched")
	})

	t.Run("Success - EnsureForLocation creates once", func(t *testing.T) {
		svc, _ := newMenu(t)

		footer, err := svc.EnsureForLocation(ctx, models.MenuLocationFooter)
		require.NoError(t, err)
		assert.Equal(t, "Footer Menu", footer.Name)
		assert.Empty(t, footer.Items)

		again, err := svc.EnsureForLocation(ctx, models.MenuLocationFooter)
		require.NoError(t, err)
		assert.Equal(t, footer.ID, again.ID)

		header, err := svc.EnsureForLocation(ctx, models.MenuLocationHeader)
		require.NoError(t, err)
		assert.Equal(t, "Main Navigation", header.Name)

		_, err = svc.EnsureForLocation(ctx, "nowhere")
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("Success - Delete removes items", func(t *testing.T) {
		svc, m := newMenu(t)

		require.NoError(t, svc.Delete(ctx, m.ID))
		items, err := svc.Items(ctx, m.ID)
		require.NoError(t, err)
		assert.Empty(t, items)
		assert.ErrorIs(t, svc.Delete(ctx, m.ID), apperr.ErrNotFound)
	})
}

func TestMenuHandlers(t *testing.T) {
	app := testutils.SetupTestApp(t)
	testutils.CreateTestUser(t, app.DB, "editor@test.com", "password123", "editor")
	testutils.CreateTestUser(t, app.DB, "sales@test.com", "password123", "sales")
	editor := testutils.Login(t, app, "editor@test.com", "password123")
	sales := testutils.Login(t, app, "sales@test.com", "password123")

	var created menu.WithTree

	t.Run("Success - Editor creates a menu", func(t *testing.T) {
		rec, err := testutils.MakeRequest(app, "POST", "/api/menus", map[string]interface{}{
			"name":     "Footer Links",
			"location": "footer",
			"items":    []map[string]string{{"title": "Privacy", "url": "/privacy"}},
		}, editor)
		require.NoError(t, err)
		assert.Equal(t, 201, rec.Code)
		testutils.Decode(t, rec, &created)
		assert.Len(t, created.Items, 1)
	})

	t.Run("Error - Sales cannot write menus", func(t *testing.T) {
		rec, err := testutils.MakeRequest(app, "POST", "/api/menus", map[string]string{
			"name": "Nope", "location": "footer",
		}, sales)
		require.NoError(t, err)
		assert.Equal(t, 403, rec.Code)
	})

	t.Run("Error - Anonymous write", func(t *testing.T) {
		rec, err := testutils.MakeRequest(app, "DELETE", fmt.Sprintf("/api/menus/%d", created.ID), nil, "")
		require.NoError(t, err)
		assert.Equal(t, 401, rec.Code)
	})

	t.Run("Success - Public reads", func(t *testing.T) {
		rec, err := testutils.MakeRequest(app, "GET", "/api/menus/footer-links", nil, "")
		require.NoError(t, err)
		assert.Equal(t, 200, rec.Code)

		rec, err = testutils.MakeRequest(app, "GET", "/api/menus/location/footer", nil, "")
		require.NoError(t, err)
		assert.Equal(t, 200, rec.Code)
		var m menu.WithTree
		testutils.Decode(t, rec, &m)
		assert.Equal(t, created.ID, m.ID)

		rec, err = testutils.MakeRequest(app, "GET", "/api/menus", nil, "")
		require.NoError(t, err)
		assert.Equal(t, 200, rec.Code)
	})

	t.Run("Success - Add and remove items", func(t *testing.T) {
		rec, err := testutils.MakeRequest(app, "POST", fmt.Sprintf("/api/menus/%d/items", created.ID), map[string]interface{}{
			"items": []map[string]string{{"title": "Terms", "url": "/terms"}, {"title": "Privacy", "url": "/privacy"}},
		}, editor)
		require.NoError(t, err)
		assert.Equal(t, 201, rec.Code)

		var out struct {
			Added   []models.MenuItem `json:"added"`
			Skipped int               `json:"skipped"`
		}
		testutils.Decode(t, rec, &out)
		require.Len(t, out.Added, 1)
		assert.Equal(t, 1, out.Skipped)

		rec, err = testutils.MakeRequest(app, "DELETE",
			fmt.Sprintf("/api/menus/%d/items/%d", created.ID, out.Added[0].ID), nil, editor)
		require.NoError(t, err)
		assert.Equal(t, 200, rec.Code)
	})

	t.Run("Error - Move without index", func(t *testing.T) {
		rec, err := testutils.MakeRequest(app, "PUT",
			fmt.Sprintf("/api/menus/%d/items/%d/move", created.ID, created.Items[0].ID), map[string]interface{}{}, editor)
		require.NoError(t, err)
		assert.Equal(t, 422, rec.Code)
	})
}
