package permission_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/Kyz7/backoffice/internal/apperr"
	"github.com/Kyz7/backoffice/internal/logger"
	"github.com/Kyz7/backoffice/internal/models"
	"github.com/Kyz7/backoffice/internal/permission"
	"github.com/Kyz7/backoffice/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) Invalidate() { c.calls++ }

func newService(t *testing.T) (*permission.Service, *countingInvalidator, *testutils.TestApp) {
	app := testutils.SetupBareApp(t)
	spy := &countingInvalidator{}
	return permission.NewService(app.DB, spy, logger.Discard()), spy, app
}

func TestSeed(t *testing.T) {
	svc, _, app := newService(t)
	ctx := context.Background()

	var count int64
	app.DB.Model(&models.Permission{}).Count(&count)
	assert.EqualValues(t, len(models.Modules)*len(models.Actions), count)

	require.NoError(t, svc.Seed(ctx))
	app.DB.Model(&models.Permission{}).Count(&count)
	assert.EqualValues(t, len(models.Modules)*len(models.Actions), count, "seed is idempotent")

	var p models.Permission
	require.NoError(t, app.DB.Where("slug = ?", "leads-read").First(&p).Error)
	assert.Equal(t, "Leads Read", p.Name)
	assert.Equal(t, "leads", p.Module)
	assert.Equal(t, models.ActionRead, p.Action)
	assert.True(t, p.IsActive)
}

func TestPermissionService(t *testing.T) {
	ctx := context.Background()

	t.Run("Success - List filters by module", func(t *testing.T) {
		svc, _, _ := newService(t)

		perms, err := svc.List(ctx, permission.Filter{Module: "leads"})
		require.NoError(t, err)
		require.Len(t, perms, len(models.Actions))
		for _, p := range perms {
			assert.Equal(t, "leads", p.Module)
		}
	})

	t.Run("Success - Create derives the slug and invalidates", func(t *testing.T) {
		svc, spy, app := newService(t)
		app.DB.Where("slug = ?", "redirects-delete").Delete(&models.Permission{})

		perm, err := svc.Create(ctx, permission.CreateInput{
			Name:   "Redirects Delete",
			Module: "redirects",
			Action: models.ActionDelete,
		})
		require.NoError(t, err)
		assert.Equal(t, "redirects-delete", perm.Slug)
		assert.True(t, perm.IsActive)
		assert.Equal(t, 1, spy.calls)
	})

	t.Run("Error - Duplicate module and action", func(t *testing.T) {
		svc, spy, _ := newService(t)

		_, err := svc.Create(ctx, permission.CreateInput{Name: "Read Leads Again", Module: "leads", Action: models.ActionRead})
		assert.ErrorIs(t, err, apperr.ErrConflict)
		assert.Zero(t, spy.calls)
	})

	t.Run("Error - Name collides case-insensitively", func(t *testing.T) {
		svc, _, app := newService(t)
		app.DB.Where("slug = ?", "leads-delete").Delete(&models.Permission{})

		_, err := svc.Create(ctx, permission.CreateInput{Name: "leads read", Module: "leads", Action: models.ActionDelete})
		assert.ErrorIs(t, err, apperr.ErrConflict)
	})

	t.Run("Error - Unknown module and action", func(t *testing.T) {
		svc, _, _ := newService(t)

		_, err := svc.Create(ctx, permission.CreateInput{Name: "Fly Rockets", Module: "rockets", Action: "launch"})
		require.ErrorIs(t, err, apperr.ErrValidation)

		var appErr *apperr.Error
		require.ErrorAs(t, err, &appErr)
		assert.Len(t, appErr.Fields, 2)
	})

	t.Run("Success - Rename re-derives the slug", func(t *testing.T) {
		svc, spy, app := newService(t)
		var p models.Permission
		app.DB.Where("slug = ?", "ads-read").First(&p)

		name := "Ads View"
		inactive := false
		updated, err := svc.Update(ctx, p.ID, permission.Patch{Name: &name, IsActive: &inactive})
		require.NoError(t, err)
		assert.Equal(t, "ads-view", updated.Slug)
		assert.False(t, updated.IsActive)
		assert.Equal(t, "ads", updated.Module)
		assert.Equal(t, 1, spy.calls)
	})

	t.Run("Error - Rename onto another permission", func(t *testing.T) {
		svc, _, app := newService(t)
		var p models.Permission
		app.DB.Where("slug = ?", "ads-read").First(&p)

		name := "Ads Create"
		_, err := svc.Update(ctx, p.ID, permission.Patch{Name: &name})
		assert.ErrorIs(t, err, apperr.ErrConflict)
	})

	t.Run("Success - Delete invalidates", func(t *testing.T) {
		svc, spy, app := newService(t)
		var p models.Permission
		app.DB.Where("slug = ?", "ads-read").First(&p)

		require.NoError(t, svc.Delete(ctx, p.ID))
		assert.Equal(t, 1, spy.calls)
		assert.ErrorIs(t, svc.Delete(ctx, p.ID), apperr.ErrNotFound)
	})
}

func TestPermissionHandlers(t *testing.T) {
	app := testutils.SetupTestApp(t)
	testutils.CreateTestUser(t, app.DB, "root@test.com", "password123", models.SuperAdminSlug)
	testutils.CreateTestUser(t, app.DB, "admin@test.com", "password123", "admin")
	root := testutils.Login(t, app, "root@test.com", "password123")
	admin := testutils.Login(t, app, "admin@test.com", "password123")

	var leadsRead models.Permission
	app.DB.Where("slug = ?", "leads-read").First(&leadsRead)

	t.Run("Error - Only super admin reaches the registry", func(t *testing.T) {
		rec, err := testutils.MakeRequest(app, "GET", "/api/permissions", nil, admin)
		require.NoError(t, err)
		assert.Equal(t, 403, rec.Code)
	})

	t.Run("Success - List with filters", func(t *testing.T) {
		rec, err := testutils.MakeRequest(app, "GET", "/api/permissions?module=leads&is_active=true", nil, root)
		require.NoError(t, err)
		assert.Equal(t, 200, rec.Code)

		var perms []models.Permission
		testutils.Decode(t, rec, &perms)
		assert.Len(t, perms, len(models.Actions))
	})

	t.Run("Success - Catalog", func(t *testing.T) {
		rec, err := testutils.MakeRequest(app, "GET", "/api/permissions/catalog", nil, root)
		require.NoError(t, err)
		assert.Equal(t, 200, rec.Code)

		var catalog struct {
			Modules []string `json:"modules"`
			Actions []string `json:"actions"`
		}
		testutils.Decode(t, rec, &catalog)
		assert.Equal(t, models.Modules, catalog.Modules)
		assert.Equal(t, models.Actions, catalog.Actions)
	})

	t.Run("Error - Module cannot be changed", func(t *testing.T) {
		rec, err := testutils.MakeRequest(app, "PUT", fmt.Sprintf("/api/permissions/%d", leadsRead.ID),
			map[string]string{"module": "ads"}, root)
		require.NoError(t, err)
		assert.Equal(t, 422, rec.Code)
	})

	t.Run("Success - Deactivating a permission removes it from sessions", func(t *testing.T) {
		sales := testutils.FindRole(t, app.DB, "sales")
		require.NotNil(t, sales)
		testutils.CreateTestUser(t, app.DB, "sales@test.com", "password123", "sales")
		sid := testutils.Login(t, app, "sales@test.com", "password123")

		rec, err := testutils.MakeRequest(app, "GET", "/api/content", nil, sid)
		require.NoError(t, err)
		assert.Equal(t, 200, rec.Code)

		var contentRead models.Permission
		app.DB.Where("slug = ?", "content-read").First(&contentRead)
		rec, err = testutils.MakeRequest(app, "PUT", fmt.Sprintf("/api/permissions/%d", contentRead.ID),
			map[string]bool{"is_active": false}, root)
		require.NoError(t, err)
		assert.Equal(t, 200, rec.Code)

		rec, err = testutils.MakeRequest(app, "GET", "/api/content", nil, sid)
		require.NoError(t, err)
		assert.Equal(t, 403, rec.Code)
	})
}
