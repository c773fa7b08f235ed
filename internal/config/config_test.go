package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 15*time.Minute, cfg.Scheduling.MinGap)
	assert.Equal(t, 20*time.Minute, cfg.Scheduling.MaxGap)
	assert.Equal(t, 15*time.Second, cfg.Scheduling.PollInterval)
	assert.Equal(t, 15*time.Minute, cfg.Scheduling.WaitTimeout)
	assert.True(t, cfg.Scheduling.BusinessHours)
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "base.yaml")
	yml := `
db:
  host: db.internal
  port: 6543
scheduling:
  min_gap: 5m
  max_gap: 7m
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))
	t.Setenv("DB_HOST", "override.internal")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "override.internal", cfg.DB.Host)
	assert.Equal(t, 6543, cfg.DB.Port)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, 5*time.Minute, cfg.Scheduling.MinGap)
	assert.Equal(t, 7*time.Minute, cfg.Scheduling.MaxGap)
}

func TestValidateRejectsInvertedGaps(t *testing.T) {
	cfg := Default()
	cfg.Scheduling.MinGap = 20 * time.Minute
	cfg.Scheduling.MaxGap = 10 * time.Minute
	assert.Error(t, cfg.Validate())
}

func TestDSN(t *testing.T) {
	c := DBConfig{Host: "h", Port: 1, User: "u", Password: "p", Name: "n"}
	assert.Equal(t, "postgres://u:p@h:1/n?sslmode=disable", c.DSN())
}
