package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDatabaseDSN(t *testing.T) {
	d := DatabaseConfig{
		Host: "db.internal", Port: 5432, User: "app", Password: "s3cret",
		DBName: "biblioteca", SSLMode: "require",
	}
	require.Equal(t,
		"host=db.internal port=5432 user=app password=s3cret dbname=biblioteca sslmode=require",
		d.DSN())
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"),
		[]byte("jwt:\n  secret: test-secret\ndatabase:\n  host: localhost\n"), 0o644))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	// Nested keys map to underscore-separated variables.
	t.Setenv("BIBLIOTECA_SERVER_PORT", "9191")
	t.Setenv("BIBLIOTECA_DATABASE_HOST", "db.internal")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 9191, cfg.Server.Port)
	require.Equal(t, "db.internal", cfg.Database.Host)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server: ServerConfig{Port: 8080, Mode: "debug"},
			JWT:    JWTConfig{Secret: "change-me"},
			Jobs:   JobsConfig{ReminderHour: 8},
		}
	}

	require.NoError(t, validate(valid()))

	cfg := valid()
	cfg.Server.Port = 0
	require.Error(t, validate(cfg))

	cfg = valid()
	cfg.JWT.Secret = ""
	require.Error(t, validate(cfg))

	// The default secret is fine while developing but not for release.
	cfg = valid()
	cfg.Server.Mode = "release"
	require.Error(t, validate(cfg))

	cfg = valid()
	cfg.Jobs.ReminderHour = 24
	require.Error(t, validate(cfg))
}
