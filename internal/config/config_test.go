package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Env:         "production",
		DBSSLMode:   "require",
		JWTSecret:   "secure-secret-at-least-32-chars-long",
		DBPassword:  "secure-password",
		Port:        "8080",
		MediaDriver: "local",
	}
}

func TestConfig_ValidateSSLMode(t *testing.T) {
	tests := []struct {
		name        string
		env         string
		sslMode     string
		expectError bool
	}{
		{"Production with empty SSL mode", "production", "", true},
		{"Production with disable SSL mode", "production", "disable", true},
		{"Production with require SSL mode", "production", "require", false},
		{"Prod with verify-full SSL mode", "prod", "verify-full", false},
		{"Development with disable SSL mode", "development", "disable", false},
		{"Test with empty SSL mode", "test", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			c.Env = tt.env
			c.DBSSLMode = tt.sslMode

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateProductionSecrets(t *testing.T) {
	c := validConfig()
	c.JWTSecret = "your-secret-key-change-in-production"
	assert.Error(t, c.Validate())

	c = validConfig()
	c.JWTSecret = "short"
	assert.Error(t, c.Validate())

	c = validConfig()
	c.DBPassword = "password"
	assert.Error(t, c.Validate())
}

func TestConfig_ValidateMediaDriver(t *testing.T) {
	c := validConfig()
	c.MediaDriver = "remote"
	assert.Error(t, c.Validate(), "remote driver needs an endpoint")

	c.MediaRemoteURL = "https://media.example.com"
	assert.NoError(t, c.Validate())

	c.MediaDriver = "ftp"
	assert.Error(t, c.Validate())
}

func TestLoadConfig_Normalization(t *testing.T) {
	defer viper.Reset()

	t.Setenv("APP_ENV", "test")
	t.Setenv("DB_SSLMODE", "  DISABLE  ")
	t.Setenv("MEDIA_DRIVER", " Local ")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, "local", c.MediaDriver)
	assert.Equal(t, 10, c.MediaMaxUploadMB)
	assert.False(t, c.IsProduction())
}
