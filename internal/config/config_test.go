package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:    AppConfig{Environment: "development", DataPath: "/srv/forge"},
		Logger: LoggerConfig{Level: "info"},
		Server: ServerConfig{Port: "8080"},
		Share:  ShareConfig{DefaultTTL: time.Hour},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_Environments(t *testing.T) {
	tests := []struct {
		env   string
		valid bool
	}{
		{"development", true},
		{"staging", true},
		{"production", true},
		{"test", false},
		{"", false},
		{"PRODUCTION", false},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := validConfig()
			cfg.App.Environment = tt.env
			if tt.valid {
				assert.NoError(t, cfg.Validate())
			} else {
				assert.Error(t, cfg.Validate())
			}
		})
	}
}

func TestValidate_LogLevels(t *testing.T) {
	tests := []struct {
		level string
		valid bool
	}{
		{"debug", true},
		{"info", true},
		{"WARN", true},
		{"error", true},
		{"trace", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := validConfig()
			cfg.Logger.Level = tt.level
			if tt.valid {
				assert.NoError(t, cfg.Validate())
			} else {
				assert.Error(t, cfg.Validate())
			}
		})
	}
}

func TestValidate_RejectsBadPortAndEmptyPath(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = "eighty"
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.App.DataPath = ""
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Share.DefaultTTL = 0
	assert.Error(t, cfg.Validate())
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := expandPath("", "/fallback")
	require.NoError(t, err)
	assert.Equal(t, "/fallback", got)

	got, err = expandPath("~/forge", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "forge"), got)

	got, err = expandPath("/var/lib/forge/", "")
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/forge", got)

	got, err = expandPath("relative/dir", "")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got))
}

func TestValue_Precedence(t *testing.T) {
	t.Setenv("FORGE_TEST_KEY", "from-env")

	assert.Equal(t, "from-flag", value("from-flag", "FORGE_TEST_KEY", "default"))
	assert.Equal(t, "from-env", value("", "FORGE_TEST_KEY", "default"))
	assert.Equal(t, "default", value("", "FORGE_TEST_MISSING", "default"))
}

func TestLoad_DefaultsAndFlags(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load([]string{
		"-data-path", dir,
		"-env-file", filepath.Join(dir, "missing.env"),
		"-port", "9090",
		"-share-ttl", "2h",
	})
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, dir, cfg.App.DataPath)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 2*time.Hour, cfg.Share.DefaultTTL)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenDuration)
	assert.Equal(t, 720*time.Hour, cfg.Auth.RefreshTokenDuration)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, filepath.Join(dir, "forge.db"), cfg.DatabasePath())
	assert.False(t, cfg.Mail.Enabled())
}

func TestLoad_EnvFileDoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := "# forge\nLOG_LEVEL=debug\nSMTP_HOST=smtp.example.com\nALLOWED_ORIGINS=https://a.example, https://b.example\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))

	t.Setenv("LOG_LEVEL", "warn")
	// Register restore hooks, then unset so the .env file can supply them.
	t.Setenv("SMTP_HOST", "")
	t.Setenv("ALLOWED_ORIGINS", "")
	require.NoError(t, os.Unsetenv("SMTP_HOST"))
	require.NoError(t, os.Unsetenv("ALLOWED_ORIGINS"))

	cfg, err := Load([]string{"-data-path", dir, "-env-file", envFile})
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Logger.Level)
	assert.Equal(t, "smtp.example.com", cfg.Mail.Host)
	assert.True(t, cfg.Mail.Enabled())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
}

func TestLoad_InvalidDuration(t *testing.T) {
	dir := t.TempDir()
	_, err := Load([]string{"-data-path", dir, "-env-file", filepath.Join(dir, "none"), "-read-timeout", "soon"})
	assert.Error(t, err)
}
