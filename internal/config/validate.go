package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
	"golang.org/x/crypto/bcrypt"
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	switch c.Backend.Driver {
	case DriverLocal:
		if err := c.validateLocal(); err != nil {
			return err
		}
	case DriverSupabase:
		if err := c.Backend.Supabase.validate(); err != nil {
			return fmt.Errorf("backend.supabase: %w", err)
		}
	default:
		return fmt.Errorf("backend.driver must be %q or %q (got %q)", DriverLocal, DriverSupabase, c.Backend.Driver)
	}

	if c.Server.LoginRateLimit < 0 {
		return fmt.Errorf("server.login_rate_limit must be >= 0 (got %d)", c.Server.LoginRateLimit)
	}

	if err := c.Session.validate(); err != nil {
		return fmt.Errorf("session: %w", err)
	}

	if _, err := cron.ParseStandard(c.Public.RefreshSchedule); err != nil {
		return fmt.Errorf("public.refresh_schedule: %w", err)
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with / (got %q)", c.Metrics.Path)
	}

	return nil
}

func (c *Config) validateLocal() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required for the %s backend", DriverLocal)
	}
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters (got %d)", len(c.Auth.JWTSecret))
	}
	if c.Auth.AccessTokenTTL <= 0 {
		return fmt.Errorf("auth.access_token_ttl must be > 0 (got %v)", c.Auth.AccessTokenTTL)
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		return fmt.Errorf("auth.refresh_token_ttl must exceed access_token_ttl (got %v)", c.Auth.RefreshTokenTTL)
	}
	if c.Auth.PasswordHashCost < bcrypt.MinCost || c.Auth.PasswordHashCost > bcrypt.MaxCost {
		return fmt.Errorf("auth.password_hash_cost must be in [%d, %d] (got %d)", bcrypt.MinCost, bcrypt.MaxCost, c.Auth.PasswordHashCost)
	}
	return nil
}

func (s *SupabaseConfig) validate() error {
	if s.URL == "" {
		return fmt.Errorf("url is required")
	}
	u, err := url.Parse(s.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("url must be absolute (got %q)", s.URL)
	}
	if s.APIKey == "" {
		return fmt.Errorf("api_key is required")
	}
	if s.Table == "" || s.ValueColumn == "" {
		return fmt.Errorf("table and value_column must be set")
	}
	if s.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0 (got %v)", s.Timeout)
	}
	return nil
}

func (s *SessionConfig) validate() error {
	if s.CookieName == "" {
		return fmt.Errorf("cookie_name is required")
	}
	if s.VisitorTTL <= 0 {
		return fmt.Errorf("visitor_ttl must be > 0 (got %v)", s.VisitorTTL)
	}
	if s.ResolveWait < 0 {
		return fmt.Errorf("resolve_wait must be >= 0 (got %v)", s.ResolveWait)
	}
	if _, err := cron.ParseStandard(s.SweepSchedule); err != nil {
		return fmt.Errorf("sweep_schedule: %w", err)
	}
	return nil
}
