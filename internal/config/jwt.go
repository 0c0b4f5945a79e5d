package config

import "fmt"

// JWTConfig holds the API token settings. Authentication is enabled only
// when Secret is set.
type JWTConfig struct {
	Secret          string `mapstructure:"jwt-secret"`
	ExpirationHours int    `mapstructure:"expiration-hours"`
}

// Enabled reports whether API requests must carry a bearer token.
func (c JWTConfig) Enabled() bool {
	return c.Secret != ""
}

// normalize validates the configuration.
func (c *JWTConfig) normalize() error {
	if c.ExpirationHours == 0 {
		c.ExpirationHours = 24
	}
	if c.ExpirationHours < 1 {
		return fmt.Errorf("auth.expiration-hours must be at least 1 hour, got: %d", c.ExpirationHours)
	}
	if c.Secret != "" && len(c.Secret) < 16 {
		return fmt.Errorf("auth.jwt-secret must be at least 16 characters")
	}
	return nil
}
