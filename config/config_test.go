package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "")
	t.Setenv("AI_TIMEOUT", "")
	t.Setenv("CORS_ORIGINS", "")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Equal(t, "4.0", cfg.SchemaVersion)
	assert.Equal(t, 30*time.Second, cfg.AITimeout)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.CORSOrigins)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "Redis")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("AI_TIMEOUT", "5s")
	t.Setenv("CORS_ORIGINS", " https://a.example , ,https://b.example")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, BackendRedis, cfg.StoreBackend)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, 5*time.Second, cfg.AITimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestFromEnvRejectsBadValues(t *testing.T) {
	t.Setenv("STORE_BACKEND", "sqlite")
	_, err := FromEnv()
	assert.Error(t, err)

	t.Setenv("STORE_BACKEND", "memory")
	t.Setenv("AI_TIMEOUT", "soon")
	_, err = FromEnv()
	assert.Error(t, err)
}

func TestPostgresDSN(t *testing.T) {
	cfg := Config{DBHost: "db", DBUser: "u", DBPassword: "p", DBName: "n", DBPort: "5433"}
	assert.Equal(t, "host=db user=u password=p dbname=n port=5433 sslmode=disable", cfg.PostgresDSN())
}
