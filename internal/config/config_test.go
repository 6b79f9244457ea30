package config

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "smtp.gmail.com", cfg.Email.Host)
	assert.Equal(t, 587, cfg.Email.Port)
	assert.True(t, cfg.Email.UseTLS)
	assert.Equal(t, 60*time.Minute, cfg.Auth.AccessTokenDuration())
	assert.Equal(t, 24*time.Hour, cfg.Auth.RefreshTokenDuration())
	assert.Equal(t, 5*time.Second, cfg.Email.TimeoutDuration())
	assert.True(t, cfg.Notification.Async)
	assert.Equal(t, int64(256), cfg.Notification.QueueSize)
	assert.Contains(t, cfg.RateLimit.WhitelistPaths, "/metrics")
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("APP_PORT", "9090")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("EMAIL_PASSWORD", "smtp-secret")
	t.Setenv("NOTIFICATION_ASYNC", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.App.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "smtp-secret", cfg.Email.Password)
	assert.False(t, cfg.Notification.Async)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			App:      AppConfig{Environment: "development"},
			Database: DatabaseConfig{Driver: "postgres"},
			Auth:     AuthConfig{JWTSecret: defaultJWTSecret},
			Email:    EmailConfig{From: "noreply@example.com"},
		}
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})

	t.Run("unknown driver", func(t *testing.T) {
		cfg := base()
		cfg.Database.Driver = "mysql"
		assert.Error(t, cfg.Validate())
	})

	t.Run("default secret in production", func(t *testing.T) {
		cfg := base()
		cfg.App.Environment = "production"
		assert.Error(t, cfg.Validate())
	})

	t.Run("email enabled without sender", func(t *testing.T) {
		cfg := base()
		cfg.Email.Enabled = true
		cfg.Email.From = ""
		assert.Error(t, cfg.Validate())
	})
}

type fakeSecrets map[string]string

func (f fakeSecrets) GetSecretOrEnv(_ context.Context, name, _ string) (string, error) {
	if v, ok := f[name]; ok {
		return v, nil
	}
	return "", errors.New("not found")
}

func TestApplySecrets(t *testing.T) {
	cfg := &Config{Email: EmailConfig{Enabled: true}}

	err := applySecrets(context.Background(), cfg, fakeSecrets{
		"POSTGRES-MAIN-PASSWORD": "db-pass",
		"JWT-SIGNING-SECRET":     "signing",
		"SMTP-PASSWORD":          "smtp-pass",
	})
	require.NoError(t, err)

	assert.Equal(t, "db-pass", cfg.Database.Password)
	assert.Equal(t, "signing", cfg.Auth.JWTSecret)
	assert.Equal(t, "smtp-pass", cfg.Email.Password)
}

func TestApplySecrets_MissingSigningSecret(t *testing.T) {
	cfg := &Config{}
	err := applySecrets(context.Background(), cfg, fakeSecrets{})
	assert.Error(t, err)
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
