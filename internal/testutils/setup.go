package testutils

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Kyz7/backoffice/internal/auth"
	"github.com/Kyz7/backoffice/internal/config"
	"github.com/Kyz7/backoffice/internal/database"
	"github.com/Kyz7/backoffice/internal/logger"
	"github.com/Kyz7/backoffice/internal/models"
	"github.com/Kyz7/backoffice/internal/role"
	"github.com/Kyz7/backoffice/internal/server"
	"github.com/Kyz7/backoffice/internal/storage"
	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type TestApp struct {
	*server.App
	DB     *gorm.DB
	Redis  *miniredis.Miniredis
	Config *config.Config
}

func TestConfig(t *testing.T) *config.Config {
	return &config.Config{
		AppEnv:           "test",
		SessionSecret:    "test-session-secret-that-is-long-enough-0123",
		SessionTTL:       time.Hour,
		ResetTokenTTL:    time.Hour,
		SettingsCacheTTL: 5 * time.Minute,
		RoleCacheTTL:     5 * time.Minute,
		DefaultPageSize:  20,
		MaxPageSize:      100,
		CORSOrigins:      "http://localhost:3000",
		LoginRateLimit:   1000,
		LoginRateWindow:  time.Minute,
		StorageDriver:    "local",
		UploadDir:        t.TempDir(),
		MaxUploadBytes:   1024 * 1024,
	}
}

func TestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err, "Failed to create test database")

	// Every connection to :memory: is its own database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db, logger.Discard()), "Failed to migrate test database")
	return db
}

func TestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

// SetupTestApp builds the full app over sqlite and miniredis with the
// permission matrix and the system roles seeded.
func SetupTestApp(t *testing.T) *TestApp {
	ta := SetupBareApp(t)
	require.NoError(t, role.SeedDefaultRoles(context.Background(), ta.DB, logger.Discard()), "Failed to seed roles")
	return ta
}

// SetupBareApp is SetupTestApp without the system roles.
func SetupBareApp(t *testing.T) *TestApp {
	cfg := TestConfig(t)
	db := TestDB(t)
	mr, client := TestRedis(t)

	store, err := storage.NewLocal(cfg.UploadDir, "/uploads")
	require.NoError(t, err, "Failed to initialize storage")

	app := server.New(server.Deps{
		Config:  cfg,
		DB:      db,
		Redis:   client,
		Storage: store,
		Log:     logger.Discard(),
	})
	require.NoError(t, app.Permissions.Seed(context.Background()), "Failed to seed permissions")

	return &TestApp{App: app, DB: db, Redis: mr, Config: cfg}
}

func FindRole(t *testing.T, db *gorm.DB, slug string) *models.Role {
	var r models.Role
	if err := db.Where("slug = ?", slug).First(&r).Error; err != nil {
		t.Fatalf("Failed to find role '%s': %v. Make sure the roles were seeded.", slug, err)
	}
	return &r
}

// CreateRole stores a role granting the given capability slugs by id.
func CreateRole(t *testing.T, db *gorm.DB, name, slug string, level int, perms ...string) *models.Role {
	refs := make([]models.PermissionRef, 0, len(perms))
	for _, s := range perms {
		var p models.Permission
		require.NoError(t, db.Where("slug = ?", s).First(&p).Error, "unknown permission %s", s)
		refs = append(refs, models.RefByID(p.ID))
	}

	r := &models.Role{Name: name, Slug: slug, Level: level, Permissions: refs, IsActive: true}
	require.NoError(t, db.Create(r).Error, "Failed to create test role")
	return r
}

func CreateTestUser(t *testing.T, db *gorm.DB, email, password, roleSlug string) *models.User {
	r := FindRole(t, db, roleSlug)

	user := &models.User{
		Name:     "Test User",
		Email:    email,
		RoleID:   r.ID,
		IsActive: true,
	}
	require.NoError(t, user.SetPassword(password))

	err := db.Create(user).Error
	assert.NoError(t, err, "Failed to create test user")

	db.Preload("Role").First(user, user.ID)
	if user.Role == nil {
		t.Fatal("Role not loaded for user")
	}
	return user
}

// Login signs in through the HTTP API and returns the session id.
func Login(t *testing.T, app *TestApp, email, password string) string {
	rec, err := MakeRequest(app, "POST", "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, "")
	require.NoError(t, err)
	require.Equal(t, 200, rec.Code, "login failed: %s", rec.Body.String())

	sid := SessionCookie(rec)
	require.NotEmpty(t, sid, "login did not set the session cookie")
	return sid
}

// SessionCookie returns the session id set on the response, if any.
func SessionCookie(rec *httptest.ResponseRecorder) string {
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookie && c.Value != "" {
			return c.Value
		}
	}
	return ""
}

func MakeRequest(app *TestApp, method, url string, body interface{}, sid string) (*httptest.ResponseRecorder, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(jsonBody)
	}

	req := httptest.NewRequest(method, url, bodyReader)
	req.Header.Set("Content-Type", "application/json")
	if sid != "" {
		req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: sid})
	}

	return do(app, req)
}

func MakeMultipartRequestWithFile(app *TestApp, method, url string, fields map[string]string, filename string, content []byte, sid string) (*httptest.ResponseRecorder, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for key, val := range fields {
		writer.WriteField(key, val)
	}
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		if err != nil {
			return nil, err
		}
		part.Write(content)
	}

	contentType := writer.FormDataContentType()
	writer.Close()

	req := httptest.NewRequest(method, url, body)
	req.Header.Set("Content-Type", contentType)
	if sid != "" {
		req.AddCookie(&http.Cookie{Name: auth.SessionCookie, Value: sid})
	}

	return do(app, req)
}

func do(app *TestApp, req *http.Request) (*httptest.ResponseRecorder, error) {
	rec := httptest.NewRecorder()

	resp, err := app.Test(req, -1)
	if err != nil {
		return rec, err
	}

	rec.Code = resp.StatusCode
	for k, v := range resp.Header {
		for _, val := range v {
			rec.Header().Add(k, val)
		}
	}
	io.Copy(rec.Body, resp.Body)
	resp.Body.Close()

	return rec, nil
}

func ParseResponse(t *testing.T, resp *httptest.ResponseRecorder, v interface{}) {
	if resp.Body.Len() == 0 {
		t.Log("Warning: Response body is empty")
		return
	}

	err := json.NewDecoder(bytes.NewReader(resp.Body.Bytes())).Decode(v)
	if err != nil && err != io.EOF {
		t.Logf("Response body: %s", resp.Body.String())
		assert.NoError(t, err, "Failed to parse response")
	}
}

type StandardResponse struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	Pagination *Pagination     `json:"pagination"`
	Code       string          `json:"code"`
	Errors     []FieldError    `json:"errors"`
	Detail     string          `json:"detail"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type Pagination struct {
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Pages int64 `json:"pages"`
}

// Decode parses the response envelope and unmarshals its data into v.
func Decode(t *testing.T, resp *httptest.ResponseRecorder, v interface{}) StandardResponse {
	var result StandardResponse
	ParseResponse(t, resp, &result)
	if v != nil && len(result.Data) > 0 {
		require.NoError(t, json.Unmarshal(result.Data, v), "Failed to parse data: %s", string(result.Data))
	}
	return result
}

func AssertSuccess(t *testing.T, resp *httptest.ResponseRecorder) {
	var result StandardResponse
	ParseResponse(t, resp, &result)
	assert.True(t, result.Success, "Expected success response")
	assert.Empty(t, result.Code, "Expected no error")
}

func AssertError(t *testing.T, resp *httptest.ResponseRecorder, expectedCode string) {
	var result StandardResponse
	ParseResponse(t, resp, &result)
	assert.False(t, result.Success, "Expected error response")
	assert.Equal(t, expectedCode, result.Code, "Error code mismatch")
}
