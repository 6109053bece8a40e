package cfg

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("POSTGRES_USER", "flight")
	t.Setenv("POSTGRES_PASSWORD", "secret")
	t.Setenv("POSTGRES_HOST", "localhost")
	t.Setenv("POSTGRES_PORT", "5432")
	t.Setenv("POSTGRES_DB", "flightbooker")
	t.Setenv("REDIS_HOST", "localhost")
	t.Setenv("REDIS_PORT", "6379")
	t.Setenv("TOKEN_SECRET", "s3cret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test", c.AppEnv)
	assert.Equal(t, "8080", c.AppPort)
	assert.Equal(t, "http://localhost:8080", c.PublicURL)
	assert.Equal(t, time.UTC.String(), c.Location.String())
	assert.Equal(t, "disable", c.PostgresConfig.SSLMode)
	assert.Equal(t, 5, c.CacheTTLMinutes)
	assert.Equal(t, 24*time.Hour, c.AuthConfig.SessionTTL)
	assert.Equal(t, int64(1), c.SnowflakeNodeID)
	assert.Nil(t, c.ObservabilityConfig)
	assert.False(t, c.GoogleOAuth2.Enabled())
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_TIMEZONE", "Europe/Sofia")
	t.Setenv("CACHE_TTL_MINUTES", "15")
	t.Setenv("APP_PUBLIC_URL", "https://book.example.com")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")
	t.Setenv("GITHUB_CLIENT_ID", "id")
	t.Setenv("GITHUB_CLIENT_SECRET", "secret")

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Europe/Sofia", c.Location.String())
	assert.Equal(t, 15, c.CacheTTLMinutes)
	assert.Equal(t, "https://book.example.com", c.PublicURL)
	require.NotNil(t, c.ObservabilityConfig)
	assert.Equal(t, "flightbooker", c.ObservabilityConfig.ServiceName)
	assert.True(t, c.GitHubOAuth2.Enabled())
}

func TestLoad_CollectsAllErrors(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_ENV", "")
	t.Setenv("TOKEN_SECRET", "")
	t.Setenv("CACHE_TTL_MINUTES", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing env: APP_ENV")
	assert.Contains(t, err.Error(), "missing env: TOKEN_SECRET")
	assert.Contains(t, err.Error(), "conversion failed env: CACHE_TTL_MINUTES")
}
