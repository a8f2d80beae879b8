package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Valid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, 30*time.Minute, c.CacheTTL)
	assert.Equal(t, filepath.Join("data", "doc.kml"), c.Boundaries.File)
	assert.Equal(t, "Name", c.Boundaries.NameColumn)
	assert.Equal(t, DefaultUserAgent, c.Geocoder.UserAgent)
	assert.Equal(t, 3, c.Geocoder.MaxAttempts)
	assert.Len(t, c.Sources, 1)
	assert.False(t, c.Redis.Enabled)
	assert.False(t, c.Postgres.Enabled)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("BOUNDARIES_FILE", "/srv/eld.geojson")
	t.Setenv("CONSTITUENCY_COLUMN", "ED_DESC")
	t.Setenv("GEOCODER_MIN_INTERVAL_MS", "0")
	t.Setenv("GEOCODER_MAX_ATTEMPTS", "5")
	t.Setenv("GEOCODER_TIMEOUT_S", "4")
	t.Setenv("CACHE_TTL_S", "60")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("PG_HOST", "db")
	t.Setenv("PG_DB", "news")
	t.Setenv("RATE_LIMIT_ENABLED", "true")
	t.Setenv("RATE_LIMIT_QPS", "bogus")

	c := Default()
	c.ApplyEnv()
	require.NoError(t, c.Validate())

	assert.Equal(t, "/srv/eld.geojson", c.Boundaries.File)
	assert.Equal(t, "ED_DESC", c.Boundaries.NameColumn)
	assert.Equal(t, time.Duration(0), c.Geocoder.MinInterval)
	assert.Equal(t, 5, c.Geocoder.MaxAttempts)
	assert.Equal(t, 4*time.Second, c.Geocoder.Timeout)
	assert.Equal(t, time.Minute, c.CacheTTL)
	assert.True(t, c.Redis.Enabled)
	assert.Equal(t, "cache:6379", c.Redis.Addr)
	assert.True(t, c.Postgres.Enabled)
	assert.Contains(t, c.Postgres.DSN, "@db:5432/news")
	assert.True(t, c.RateLimit.Enabled)
	assert.Equal(t, 200, c.RateLimit.QPS)
}

func TestValidate_Rejects(t *testing.T) {
	c := Default()
	c.Geocoder.UserAgent = " "
	c.Geocoder.MaxAttempts = 0
	c.Boundaries.NameColumn = ""
	c.RefreshCron = "every tuesday"

	err := c.Validate()
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "user agent")
	assert.Contains(t, err.Error(), "max attempts 0")
	assert.Contains(t, err.Error(), "name column")
	assert.Contains(t, err.Error(), "refresh cron")
}

func TestValidate_APIBase(t *testing.T) {
	for _, base := range []string{"/", "/api/", "api"} {
		c := Default()
		c.APIBase = base
		err := c.Validate()
		require.ErrorIs(t, err, ErrInvalid, base)
		assert.Contains(t, err.Error(), "api base", base)
	}
	for _, base := range []string{"/api", "/newsmap/v1"} {
		c := Default()
		c.APIBase = base
		assert.NoError(t, c.Validate(), base)
	}
}

func TestLoad_RejectsTrailingSlashBase(t *testing.T) {
	t.Setenv("API_BASE", "/api/")
	_, err := Load()
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "must not end with /")
}

func TestValidate_CronDescriptor(t *testing.T) {
	c := Default()
	c.RefreshCron = "@every 30m"
	assert.NoError(t, c.Validate())
}

const sampleYAML = `
cache_ttl: 10m
sources:
  - name: Straits Times
    type: html
    url: https://www.straitstimes.com/singapore
    selectors:
      article_container: div.card
      title: h5
      link: a
gazetteer:
  extra: ["Kallang"]
boundaries:
  file: data/eld.geojson
geocoder:
  min_interval: 1500ms
  max_attempts: 2
`

func TestLoad_YAMLThenEnv(t *testing.T) {
	p := filepath.Join(t.TempDir(), "newsmap.yaml")
	require.NoError(t, os.WriteFile(p, []byte(sampleYAML), 0o644))
	t.Setenv("NEWSMAP_CONFIG", p)
	t.Setenv("GEOCODER_MAX_ATTEMPTS", "4")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, c.CacheTTL)
	require.Len(t, c.Sources, 1)
	assert.Equal(t, "Straits Times", c.Sources[0].Name)
	require.NotNil(t, c.Sources[0].Selectors)
	assert.Equal(t, "div.card", c.Sources[0].Selectors.ArticleContainer)
	assert.Equal(t, "data/eld.geojson", c.Boundaries.File)
	assert.Equal(t, "Name", c.Boundaries.NameColumn)
	assert.Equal(t, 1500*time.Millisecond, c.Geocoder.MinInterval)
	assert.Equal(t, 4, c.Geocoder.MaxAttempts)
	assert.Contains(t, c.Gazetteer.Names(), "Kallang")
	assert.Contains(t, c.Gazetteer.Names(), "Orchard Road")
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv("NEWSMAP_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))
	_, err := Load()
	assert.Error(t, err)
}

func TestGazetteer_PlacesReplaceDefault(t *testing.T) {
	g := GazetteerConfig{Places: []string{"Kallang"}}
	m := g.Matcher()
	assert.True(t, m.Contains("Kallang riverside"))
	assert.False(t, m.Contains("Tampines"))
}
