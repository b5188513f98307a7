package config

import "time"

// Backend drivers.
const (
	DriverLocal    = "local"
	DriverSupabase = "supabase"
)

// Config is the root application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Backend  BackendConfig  `yaml:"backend"`
	Auth     AuthConfig     `yaml:"auth"`
	Session  SessionConfig  `yaml:"session"`
	Public   PublicConfig   `yaml:"public"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"             env:"SERVER_HOST"             env-default:"0.0.0.0"`
	Port            int           `yaml:"port"             env:"SERVER_PORT"             env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
	// LoginRateLimit caps sign-in attempts per client address per minute.
	// Zero, the default, disables the limit.
	LoginRateLimit int `yaml:"login_rate_limit" env:"SERVER_LOGIN_RATE_LIMIT" env-default:"0"`
}

// DatabaseConfig holds PostgreSQL connection settings. Required for the
// local backend driver only.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"10"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"2"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
}

// BackendConfig selects and configures the backend service provider.
type BackendConfig struct {
	Driver   string         `yaml:"driver"   env:"BACKEND_DRIVER" env-default:"local"`
	Supabase SupabaseConfig `yaml:"supabase"`
}

// SupabaseConfig holds hosted backend settings.
type SupabaseConfig struct {
	URL         string        `yaml:"url"          env:"SUPABASE_URL"`
	APIKey      string        `yaml:"api_key"      env:"SUPABASE_API_KEY"`
	Table       string        `yaml:"table"        env:"SUPABASE_TABLE"        env-default:"wonlinemenu_references"`
	ValueColumn string        `yaml:"value_column" env:"SUPABASE_VALUE_COLUMN" env-default:"referans"`
	Timeout     time.Duration `yaml:"timeout"      env:"SUPABASE_TIMEOUT"      env-default:"10s"`
}

// AuthConfig holds authentication settings for the local backend.
type AuthConfig struct {
	JWTSecret        string        `yaml:"jwt_secret"         env:"AUTH_JWT_SECRET"`
	JWTIssuer        string        `yaml:"jwt_issuer"         env:"AUTH_JWT_ISSUER"         env-default:"refadmin"`
	AccessTokenTTL   time.Duration `yaml:"access_token_ttl"   env:"AUTH_ACCESS_TOKEN_TTL"   env-default:"15m"`
	RefreshTokenTTL  time.Duration `yaml:"refresh_token_ttl"  env:"AUTH_REFRESH_TOKEN_TTL"  env-default:"720h"`
	PasswordHashCost int           `yaml:"password_hash_cost" env:"AUTH_PASSWORD_HASH_COST" env-default:"12"`
}

// SessionConfig holds per-visitor session settings.
type SessionConfig struct {
	CookieName    string        `yaml:"cookie_name"    env:"SESSION_COOKIE_NAME"    env-default:"refadmin_visitor"`
	CookieSecure  bool          `yaml:"cookie_secure"  env:"SESSION_COOKIE_SECURE"  env-default:"false"`
	VisitorTTL    time.Duration `yaml:"visitor_ttl"    env:"SESSION_VISITOR_TTL"    env-default:"30m"`
	ResolveWait   time.Duration `yaml:"resolve_wait"   env:"SESSION_RESOLVE_WAIT"   env-default:"2s"`
	SweepSchedule string        `yaml:"sweep_schedule" env:"SESSION_SWEEP_SCHEDULE" env-default:"@every 1m"`
}

// PublicConfig holds settings for the public listing.
type PublicConfig struct {
	RefreshSchedule string `yaml:"refresh_schedule" env:"PUBLIC_REFRESH_SCHEDULE" env-default:"@every 5m"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// MetricsConfig holds Prometheus exposition settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" env:"METRICS_ENABLED" env-default:"true"`
	Path    string `yaml:"path"    env:"METRICS_PATH"    env-default:"/metrics"`
}

// IsLocal reports whether the in-process backend driver is selected.
func (b BackendConfig) IsLocal() bool {
	return b.Driver == DriverLocal
}
