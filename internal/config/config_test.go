package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Env:                      "development",
		Port:                     "8000",
		JWTSecret:                "secure-secret-at-least-32-chars-long",
		JWTAlgorithm:             "HS256",
		AccessTokenExpireMinutes: 30,
		DBPassword:               "secure-password",
		DBSSLMode:                "disable",
		DBConnMaxLifetimeMinutes: 5,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"Valid development config", func(c *Config) {}, false},
		{"Missing JWT secret", func(c *Config) { c.JWTSecret = "" }, true},
		{"Missing port", func(c *Config) { c.Port = "" }, true},
		{"Unsupported algorithm", func(c *Config) { c.JWTAlgorithm = "RS256" }, true},
		{"Lowercase algorithm accepted", func(c *Config) { c.JWTAlgorithm = "hs512" }, false},
		{"Zero TTL", func(c *Config) { c.AccessTokenExpireMinutes = 0 }, true},
		{"Short secret allowed outside production", func(c *Config) { c.JWTSecret = "short" }, false},
		{"Short secret in production", func(c *Config) {
			c.Env = "production"
			c.JWTSecret = "short"
			c.DBSSLMode = "require"
		}, true},
		{"Production with SSL disabled", func(c *Config) { c.Env = "production" }, true},
		{"Production with require SSL mode", func(c *Config) {
			c.Env = "prod"
			c.DBSSLMode = "require"
		}, false},
		{"Production with default DB password", func(c *Config) {
			c.Env = "production"
			c.DBSSLMode = "verify-full"
			c.DBPassword = "password"
		}, true},
		{"Production with DATABASE_URL skips DB part checks", func(c *Config) {
			c.Env = "production"
			c.DBPassword = ""
			c.DatabaseURL = "postgres://u:p@db:5432/microblog?sslmode=require"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_TokenConfig(t *testing.T) {
	c := validConfig()
	c.JWTAlgorithm = "hs384"
	c.AccessTokenExpireMinutes = 45
	c.JWTIssuer = "issuer"
	c.JWTAudience = "audience"

	tc := c.TokenConfig()
	assert.Equal(t, []byte(c.JWTSecret), tc.Secret)
	assert.Equal(t, "HS384", tc.Algorithm)
	assert.Equal(t, 45*time.Minute, tc.TTL)
	assert.Equal(t, "issuer", tc.Issuer)
	assert.Equal(t, "audience", tc.Audience)
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	defer viper.Reset()

	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_SECRET", "env-secret-that-is-long-enough-for-tests")
	t.Setenv("DB_SSLMODE", "  DISABLE  ")
	t.Setenv("JWT_ALGORITHM", "hs512")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, "HS512", c.JWTAlgorithm)
	assert.Equal(t, 30, c.AccessTokenExpireMinutes)
	assert.Equal(t, "env-secret-that-is-long-enough-for-tests", c.JWTSecret)
}

func TestLoadConfig_MissingSecretIsFatal(t *testing.T) {
	defer viper.Reset()

	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_SECRET", "")

	_, err := LoadConfig()
	assert.ErrorContains(t, err, "JWT_SECRET is required")
}
