package utils_test

import (
	"testing"

	"github.com/Kyz7/backoffice/internal/utils"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"
)

func TestDeriveSlug(t *testing.T) {
	cases := map[string]string{
		"Content & Safety Page!": "content-safety-page",
		"About Us!":              "about-us",
		"Leads Read":             "leads-read",
		"  multiple   spaces  ":  "multiple-spaces",
		"snake_case_name":        "snake-case-name",
		"--already-slugged--":    "already-slugged",
		"Café Crème":             "cafe-creme",
		"Q3 2024 Report":         "q3-2024-report",
		"!!!":                    "",
		"a - b":                  "a-b",
	}

	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, utils.DeriveSlug(in))
		})
	}
}

func TestDerivePath(t *testing.T) {
	t.Run("Success - home is root", func(t *testing.T) {
		assert.Equal(t, "/", utils.DerivePath("home"))
	})

	t.Run("Success - other slugs are prefixed", func(t *testing.T) {
		assert.Equal(t, "/about-us", utils.DerivePath("about-us"))
	})
}

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, "/pricing", utils.NormalizePath("pricing"))
	assert.Equal(t, "/pricing", utils.NormalizePath("///pricing"))
	assert.Equal(t, "/", utils.NormalizePath(""))
}

func TestPasswordHash(t *testing.T) {
	hash, err := utils.HashPassword("s3cret-pass")
	assert.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", hash)
	assert.True(t, utils.CheckPasswordHash("s3cret-pass", hash))
	assert.False(t, utils.CheckPasswordHash("wrong", hash))
}

func TestDummyHash(t *testing.T) {
	h := utils.DummyHash()
	cost, err := bcrypt.Cost([]byte(h))
	assert.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
	assert.Equal(t, h, utils.DummyHash())
	assert.False(t, utils.CheckPasswordHash("password123", h))
}

func TestRandomString(t *testing.T) {
	a := utils.RandomString(32)
	b := utils.RandomString(32)
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}
