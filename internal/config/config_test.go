package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  read_timeout: 5s
database:
  driver: mysql
  mysql:
    host: db.internal
    username: app
    database: collections
cache:
  backend: redis
  key: custom_key
media:
  provider: s3
  s3:
    bucket: images
    region: eu-west-1
auth:
  allowed_domains: [example.com]
  users:
    - id: u1
      email: a@example.com
      password_hash: "$2a$10$abc"
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, 3306, cfg.Database.MySQL.Port)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, "custom_key", cfg.Cache.Key)
	assert.Equal(t, "s3", cfg.Media.Provider)
	assert.Equal(t, "images", cfg.Media.S3.Bucket)
	assert.Equal(t, []string{"example.com"}, cfg.Auth.AllowedDomains)
	require.Len(t, cfg.Auth.Users, 1)
	assert.Equal(t, "a@example.com", cfg.Auth.Users[0].Email)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("CLOUDINARY_UPLOAD_PRESET", "preset_env")
	t.Setenv("AUTH_JWT_SECRET", "secret")

	cfg, err := Load(writeConfig(t, "ai:\n  openai:\n    api_key: from-file\n"))
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.AI.OpenAI.APIKey)
	assert.Equal(t, "preset_env", cfg.Media.Cloudinary.UploadPreset)
	assert.Equal(t, "secret", cfg.Auth.JWTSecret)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "server: [not, a, map"))
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "file", cfg.Cache.Backend)
	assert.Equal(t, "ai_image_collection", cfg.Cache.Key)
	assert.Equal(t, "cloudinary", cfg.Media.Provider)
	assert.Equal(t, cfg.AI.OpenAI.Model, cfg.AI.OpenAI.VisionModel)
	assert.Equal(t, int64(20<<20), cfg.Server.MaxUploadBytes)
}
