package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("FASHN_API_KEY", "fa-test")
	t.Setenv("SUPABASE_URL", "https://example.supabase.co")
	t.Setenv("SUPABASE_PUBLISHABLE_KEY", "pk-test")
	t.Setenv("SUPABASE_JWT_SECRET", "jwt-secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.fashn.ai/v1", cfg.FashnBaseURL)
	assert.Equal(t, 2*time.Second, cfg.TryOnPollInterval)
	assert.Equal(t, 90, cfg.TryOnPollMaxAttempts)
	assert.Equal(t, 3*time.Minute, cfg.TryOnPollTimeout)
	assert.Equal(t, 30*time.Minute, cfg.TryOnSessionTTL)
	assert.Equal(t, 300*time.Millisecond, cfg.SwipeSettleDelay)
	assert.Equal(t, float64(100), cfg.SwipeThreshold)
	assert.Equal(t, ArchiveNone, cfg.TryOnArchive)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSAllowedOrigins)
}

func TestLoad_CORSOriginsList(t *testing.T) {
	setRequired(t)
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://ootd.app, https://staging.ootd.app,,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://ootd.app", "https://staging.ootd.app"}, cfg.CORSAllowedOrigins)
}

func TestLoad_MissingAPIKey(t *testing.T) {
	setRequired(t)
	t.Setenv("FASHN_API_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FASHN_API_KEY")
}

func TestLoad_InvalidDuration(t *testing.T) {
	setRequired(t)
	t.Setenv("TRYON_POLL_INTERVAL", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TRYON_POLL_INTERVAL")
}

func TestValidate_S3ArchiveNeedsBucket(t *testing.T) {
	setRequired(t)
	t.Setenv("TRYON_ARCHIVE", "s3")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AWS_S3_BUCKET")

	t.Setenv("AWS_S3_BUCKET", "ootd-archive")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ArchiveS3, cfg.TryOnArchive)
}

func TestValidate_RejectsNonPositiveAttempts(t *testing.T) {
	setRequired(t)
	t.Setenv("TRYON_POLL_MAX_ATTEMPTS", "0")

	_, err := Load()
	require.Error(t, err)
}

func TestValidate_RejectsNonPositiveSessionTTL(t *testing.T) {
	setRequired(t)
	t.Setenv("TRYON_SESSION_TTL", "0s")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TRYON_SESSION_TTL")
}

func writeEnvFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func unsetAfter(t *testing.T, keys ...string) {
	t.Cleanup(func() {
		for _, key := range keys {
			_ = os.Unsetenv(key)
		}
	})
}

func TestLoadDotEnv_LocalWithoutBaseFile(t *testing.T) {
	dir := t.TempDir()
	writeEnvFile(t, filepath.Join(dir, ".env.local"), "OOTD_DOTENV_LOCAL_ONLY=local\n")
	unsetAfter(t, "OOTD_DOTENV_LOCAL_ONLY")

	loadDotEnv(filepath.Join(dir, ".env.local"), filepath.Join(dir, ".env"))

	assert.Equal(t, "local", os.Getenv("OOTD_DOTENV_LOCAL_ONLY"))
}

func TestLoadDotEnv_LocalOverridesBase(t *testing.T) {
	dir := t.TempDir()
	writeEnvFile(t, filepath.Join(dir, ".env.local"), "OOTD_DOTENV_SHARED=local\n")
	writeEnvFile(t, filepath.Join(dir, ".env"), "OOTD_DOTENV_SHARED=base\nOOTD_DOTENV_BASE_ONLY=base\n")
	unsetAfter(t, "OOTD_DOTENV_SHARED", "OOTD_DOTENV_BASE_ONLY")

	loadDotEnv(filepath.Join(dir, ".env.local"), filepath.Join(dir, ".env"))

	assert.Equal(t, "local", os.Getenv("OOTD_DOTENV_SHARED"))
	assert.Equal(t, "base", os.Getenv("OOTD_DOTENV_BASE_ONLY"))
}
