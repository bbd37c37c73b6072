package auth_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Kyz7/backoffice/internal/auth"
	"github.com/Kyz7/backoffice/internal/models"
	"github.com/Kyz7/backoffice/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sessionView struct {
	UserID       uint     `json:"user_id"`
	Role         string   `json:"role"`
	Level        int      `json:"level"`
	IsSuperAdmin bool     `json:"is_super_admin"`
	Permissions  []string `json:"permissions"`
	Modules      []string `json:"modules"`
}

func TestLoginHandler(t *testing.T) {
	app := testutils.SetupTestApp(t)
	editor := testutils.CreateTestUser(t, app.DB, "editor@test.com", "password123", "editor")

	disabled := testutils.CreateTestUser(t, app.DB, "disabled@test.com", "password123", "viewer")
	app.DB.Model(disabled).Update("is_active", false)

	t.Run("Success - Login sets the session cookie", func(t *testing.T) {
		rec, err := testutils.MakeRequest(app, "POST", "/api/auth/login", map[string]string{
			"email":    "editor@test.com",
			"password": "password123",
		}, "")
		require.NoError(t, err)
		assert.Equal(t, 200, rec.Code)

		sid := testutils.SessionCookie(rec)
		assert.Len(t, sid, 48)
		assert.True(t, app.Redis.Exists("session:"+sid))

		var data struct {
			User    models.User `json:"user"`
			Session sessionView `json:"session"`
		}
		result := testutils.Decode(t, rec, &data)
		assert.True(t, result.Success)
		assert.Equal(t, "Login successful", result.Message)
		assert.Equal(t, editor.ID, data.User.ID)
		assert.Empty(t, data.User.Password)
		assert.Equal(t, "editor", data.Session.Role)
		assert.Equal(t, 3, data.Session.Level)
		assert.Contains(t, data.Session.Permissions, "pages-manage")
		assert.Contains(t, data.Session.Modules, "menus")

		var stored models.User
		app.DB.First(&stored, editor.ID)
		assert.NotNil(t, stored.LastLoginAt)
	})

	t.Run("Success - Email is case-insensitive", func(t *testing.T) {
		rec, err := testutils.MakeRequest(app, "POST", "/api/auth/login", map[string]string{
			"email":    "  Editor@TEST.com ",
			"password": "password123",
		}, "")
		require.NoError(t, err)
		assert.Equal(t, 200, rec.Code)
	})

	t.Run("Error - Wrong password", func(t *testing.T) {
		rec, err := testutils.MakeRequest(app, "POST", "/api/auth/login", map[string]string{
			"email":    "editor@test.com",
			"password": "wrongpassword",
		}, "")
		require.NoError(t, err)
		assert.Equal(t, 401, rec.Code)
		assert.Empty(t, testutils.SessionCookie(rec))
		testutils.AssertError(t, rec, "INVALID_CREDENTIALS")
	})

	t.Run("Error - Unknown email looks like a wrong password", func(t *testing.T) {
		rec, err := testutils.MakeRequest(app, "POST", "/api/auth/login", map[string]string{
			"email":    "nobody@test.com",
			"password": "password123",
		}, "")
		require.NoError(t, err)
		assert.Equal(t, 401, rec.Code)
		testutils.AssertError(t, rec, "INVALID_CREDENTIALS")
	})

	t.Run("Error - Disabled account with the right password", func(t *testing.T) {
		rec, err := testutils.MakeRequest(app, "POST", "/api/auth/login", map[string]string{
			"email":    "disabled@test.com",
			"password": "password123",
		}, "")
		require.NoError(t, err)
		assert.Equal(t, 401, rec.Code)
		testutils.AssertError(t, rec, "ACCOUNT_DISABLED")
	})

	t.Run("Error - Disabled account with a wrong password", func(t *testing.T) {
		rec, err := testutils.MakeRequest(app, "POST", "/api/auth/login", map[string]string{
			"email":    "disabled@test.com",
			"password": "wrongpassword",
		}, "")
		require.NoError(t, err)
		testutils.AssertError(t, rec, "INVALID_CREDENTIALS")
	})

	t.Run("Error - Missing fields", func(t *testing.T) {
		rec, err := testutils.MakeRequest(app, "POST", "/api/auth/login", map[string]string{
			"password": "password123",
		}, "")
		require.NoError(t, err)
		assert.Equal(t, 422, rec.Code)

		var result testutils.StandardResponse
		testutils.ParseResponse(t, rec, &result)
		assert.Equal(t, "VALIDATION_ERROR", result.Code)
		require.NotEmpty(t, result.Errors)
		assert.Equal(t, "email", result.Errors[0].Field)
	})
}

func TestSessionCheckHandler(t *testing.T) {
	app := testutils.SetupTestApp(t)
	user := testutils.CreateTestUser(t, app.DB, "editor@test.com", "password123", "editor")

	t.Run("Success - Valid session", func(t *testing.T) {
		sid := testutils.Login(t, app, "editor@test.com", "password123")

		rec, err := testutils.MakeRequest(app, "GET", "/api/auth/session-check", nil, sid)
		require.NoError(t, err)
		assert.Equal(t, 200, rec.Code)

		var view sessionView
		testutils.Decode(t, rec, &view)
		assert.Equal(t, user.ID, view.UserID)
		assert.False(t, view.IsSuperAdmin)
	})

	t.Run("Success - Bearer header instead of the cookie", func(t *testing.T) {
		sid := testutils.Login(t, app, "editor@test.com", "password123")

		req := httptest.NewRequest("GET", "/api/auth/session-check", nil)
		req.Header.Set("Authorization", "Bearer "+sid)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("Error - No session", func(t *testing.T) {
		rec, err := testutils.MakeRequest(app, "GET", "/api/auth/session-check", nil, "")
		require.NoError(t, err)
		assert.Equal(t, 401, rec.Code)
		testutils.AssertError(t, rec, "UNAUTHENTICATED")
	})

	t.Run("Error - Unknown session id", func(t *testing.T) {
		rec, err := testutils.MakeRequest(app, "GET", "/api/auth/session-check", nil, "not-a-real-session")
		require.NoError(t, err)
		assert.Equal(t, 401, rec.Code)
	})

	t.Run("Error - Rejected session clears the root cookie", func(t *testing.T) {
		sid := testutils.Login(t, app, "editor@test.com", "password123")
		require.NoError(t, app.DB.Model(&models.User{}).Where("id = ?", user.ID).Update("is_active", false).Error)
		defer app.DB.Model(&models.User{}).Where("id = ?", user.ID).Update("is_active", true)

		rec, err := testutils.MakeRequest(app, "GET", "/api/auth/session-check", nil, sid)
		require.NoError(t, err)
		assert.Equal(t, 401, rec.Code)

		var cleared bool
		for _, c := range rec.Result().Cookies() {
			if c.Name != auth.SessionCookie {
				continue
			}
			cleared = true
			assert.Empty(t, c.Value)
			assert.Equal(t, "/", c.Path)
			assert.True(t, c.Expires.Before(time.Now()))
		}
		assert.True(t, cleared, "expected a session cookie deletion")
	})

	t.Run("Error - Session expires after its TTL", func(t *testing.T) {
		sid := testutils.Login(t, app, "editor@test.com", "password123")
		app.Redis.FastForward(app.Config.SessionTTL + time.Second)

		rec, err := testutils.MakeRequest(app, "GET", "/api/auth/session-check", nil, sid)
		require.NoError(t, err)
		assert.Equal(t, 401, rec.Code)
		testutils.AssertError(t, rec, "UNAUTHENTICATED")
	})

	t.Run("Error - Password change elsewhere makes the session stale", func(t *testing.T) {
		sid := testutils.Login(t, app, "editor@test.com", "password123")

		var stored models.User
		require.NoError(t, app.DB.First(&stored, user.ID).Error)
		require.NoError(t, stored.SetPassword("password123"))
		require.NoError(t, app.DB.Save(&stored).Error)

		rec, err := testutils.MakeRequest(app, "GET", "/api/auth/session-check", nil, sid)
		require.NoError(t, err)
		assert.Equal(t, 401, rec.Code)
		testutils.AssertError(t, rec, "UNAUTHENTICATED")
		assert.False(t, app.Redis.Exists("session:"+sid), "stale session should be destroyed")
	})

	t.Run("Error - Disabled user loses the session", func(t *testing.T) {
		other := testutils.CreateTestUser(t, app.DB, "soon-disabled@test.com", "password123", "viewer")
		sid := testutils.Login(t, app, "soon-disabled@test.com", "password123")
		app.DB.Model(other).Update("is_active", false)

		rec, err := testutils.MakeRequest(app, "GET", "/api/auth/session-check", nil, sid)
		require.NoError(t, err)
		assert.Equal(t, 401, rec.Code)
		testutils.AssertError(t, rec, "ACCOUNT_DISABLED")
		assert.False(t, app.Redis.Exists("session:"+sid))
	})

	t.Run("Error - Deleted user loses the session", func(t *testing.T) {
		other := testutils.CreateTestUser(t, app.DB, "gone@test.com", "password123", "viewer")
		sid := testutils.Login(t, app, "gone@test.com", "password123")
		app.DB.Delete(&models.User{}, other.ID)

		rec, err := testutils.MakeRequest(app, "GET", "/api/auth/session-check", nil, sid)
		require.NoError(t, err)
		assert.Equal(t, 401, rec.Code)
		testutils.AssertError(t, rec, "UNAUTHENTICATED")
		assert.False(t, app.Redis.Exists("session:"+sid))
	})
}

func TestLogoutHandler(t *testing.T) {
	app := testutils.SetupTestApp(t)
	testutils.CreateTestUser(t, app.DB, "editor@test.com", "password123", "editor")

	t.Run("Success - Logout destroys the session", func(t *testing.T) {
		sid := testutils.Login(t, app, "editor@test.com", "password123")

		rec, err := testutils.MakeRequest(app, "POST", "/api/auth/logout", nil, sid)
		require.NoError(t, err)
		assert.Equal(t, 200, rec.Code)
		assert.False(t, app.Redis.Exists("session:"+sid))

		rec, err = testutils.MakeRequest(app, "GET", "/api/auth/session-check", nil, sid)
		require.NoError(t, err)
		assert.Equal(t, 401, rec.Code)
	})

	t.Run("Success - Logout is idempotent", func(t *testing.T) {
		sid := testutils.Login(t, app, "editor@test.com", "password123")

		for i := 0; i < 2; i++ {
			rec, err := testutils.MakeRequest(app, "POST", "/api/auth/logout", nil, sid)
			require.NoError(t, err)
			assert.Equal(t, 200, rec.Code)
		}
	})

	t.Run("Success - Logout without a session", func(t *testing.T) {
		rec, err := testutils.MakeRequest(app, "POST", "/api/auth/logout", nil, "")
		require.NoError(t, err)
		assert.Equal(t, 200, rec.Code)
	})
}

func TestStatusHandler(t *testing.T) {
	app := testutils.SetupTestApp(t)
	user := testutils.CreateTestUser(t, app.DB, "editor@test.com", "password123", "editor")

	var status struct {
		Authenticated bool `json:"authenticated"`
		UserID        uint `json:"user_id"`
	}

	t.Run("Success - Anonymous", func(t *testing.T) {
		rec, err := testutils.MakeRequest(app, "GET", "/api/auth/status", nil, "")
		require.NoError(t, err)
		assert.Equal(t, 200, rec.Code)
		testutils.Decode(t, rec, &status)
		assert.False(t, status.Authenticated)
	})

	t.Run("Success - Signed in", func(t *testing.T) {
		sid := testutils.Login(t, app, "editor@test.com", "password123")

		rec, err := testutils.MakeRequest(app, "GET", "/api/auth/status", nil, sid)
		require.NoError(t, err)
		assert.Equal(t, 200, rec.Code)
		testutils.Decode(t, rec, &status)
		assert.True(t, status.Authenticated)
		assert.Equal(t, user.ID, status.UserID)
	})

	t.Run("Success - Dead session reports anonymous", func(t *testing.T) {
		rec, err := testutils.MakeRequest(app, "GET", "/api/auth/status", nil, "expired-session")
		require.NoError(t, err)
		assert.Equal(t, 200, rec.Code)
		status.Authenticated = true
		testutils.Decode(t, rec, &status)
		assert.False(t, status.Authenticated)
	})
}

func TestChangePasswordHandler(t *testing.T) {
	app := testutils.SetupTestApp(t)
	testutils.CreateTestUser(t, app.DB, "editor@test.com", "password123", "editor")

	t.Run("Error - Wrong current password", func(t *testing.T) {
		sid := testutils.Login(t, app, "editor@test.com", "password123")

		rec, err := testutils.MakeRequest(app, "POST", "/api/auth/change-password", map[string]string{
			"current_password": "not-my-password",
			"new_password":     "newpassword456",
		}, sid)
		require.NoError(t, err)
		assert.Equal(t, 422, rec.Code)
		testutils.AssertError(t, rec, "VALIDATION_ERROR")
	})

	t.Run("Error - New password too short", func(t *testing.T) {
		sid := testutils.Login(t, app, "editor@test.com", "password123")

		rec, err := testutils.MakeRequest(app, "POST", "/api/auth/change-password", map[string]string{
			"current_password": "password123",
			"new_password":     "short",
		}, sid)
		require.NoError(t, err)
		assert.Equal(t, 422, rec.Code)
	})

	t.Run("Success - Caller keeps a fresh session, others go stale", func(t *testing.T) {
		other := testutils.Login(t, app, "editor@test.com", "password123")
		sid := testutils.Login(t, app, "editor@test.com", "password123")

		rec, err := testutils.MakeRequest(app, "POST", "/api/auth/change-password", map[string]string{
			"current_password": "password123",
			"new_password":     "newpassword456",
		}, sid)
		require.NoError(t, err)
		assert.Equal(t, 200, rec.Code)

		fresh := testutils.SessionCookie(rec)
		require.NotEmpty(t, fresh)
		assert.NotEqual(t, sid, fresh)

		rec, err = testutils.MakeRequest(app, "GET", "/api/auth/session-check", nil, fresh)
		require.NoError(t, err)
		assert.Equal(t, 200, rec.Code)

		for _, old := range []string{sid, other} {
			rec, err = testutils.MakeRequest(app, "GET", "/api/auth/session-check", nil, old)
			require.NoError(t, err)
			assert.Equal(t, 401, rec.Code)
		}

		testutils.Login(t, app, "editor@test.com", "newpassword456")
	})
}

func TestResetPasswordHandler(t *testing.T) {
	app := testutils.SetupTestApp(t)
	user := testutils.CreateTestUser(t, app.DB, "editor@test.com", "password123", "editor")

	t.Run("Success - Reset with an issued token", func(t *testing.T) {
		sid := testutils.Login(t, app, "editor@test.com", "password123")
		token, expires, err := app.Authority.IssueResetToken(context.Background(), user.ID)
		require.NoError(t, err)
		assert.True(t, expires.After(time.Now()))

		rec, err := testutils.MakeRequest(app, "POST", "/api/auth/reset-password", map[string]string{
			"token":        token,
			"new_password": "resetpassword789",
		}, "")
		require.NoError(t, err)
		assert.Equal(t, 200, rec.Code)

		rec, err = testutils.MakeRequest(app, "GET", "/api/auth/session-check", nil, sid)
		require.NoError(t, err)
		assert.Equal(t, 401, rec.Code, "sessions from before the reset must be stale")

		testutils.Login(t, app, "editor@test.com", "resetpassword789")

		t.Run("Error - Token is single use", func(t *testing.T) {
			rec, err := testutils.MakeRequest(app, "POST", "/api/auth/reset-password", map[string]string{
				"token":        token,
				"new_password": "anotherpassword0",
			}, "")
			require.NoError(t, err)
			assert.Equal(t, 400, rec.Code)
			testutils.AssertError(t, rec, "BAD_REQUEST")
		})
	})

	t.Run("Error - Garbage token", func(t *testing.T) {
		rec, err := testutils.MakeRequest(app, "POST", "/api/auth/reset-password", map[string]string{
			"token":        "not.a.jwt",
			"new_password": "resetpassword789",
		}, "")
		require.NoError(t, err)
		assert.Equal(t, 400, rec.Code)
	})
}
