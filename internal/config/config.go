package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	AllocatorPostgres = "postgres"
	AllocatorRedis    = "redis"

	AuditBestEffort    = "best_effort"
	AuditTransactional = "transactional"
)

type Config struct {
	Port              string        `mapstructure:"PORT"`
	Env               string        `mapstructure:"ENV"`
	DatabaseURL       string        `mapstructure:"DATABASE_URL"`
	DBMaxConns        int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns        int32         `mapstructure:"DB_MIN_CONNS"`
	MigrationsDir     string        `mapstructure:"MIGRATIONS_DIR"`
	RedisURL          string        `mapstructure:"REDIS_URL"`
	IDAllocator       string        `mapstructure:"ID_ALLOCATOR"`
	JWTSecret         string        `mapstructure:"JWT_SECRET"`
	TokenTTL          time.Duration `mapstructure:"TOKEN_TTL"`
	CORSOrigins       []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS      float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst    int           `mapstructure:"RATE_LIMIT_BURST"`
	BodyLimit         string        `mapstructure:"BODY_LIMIT"`
	RequestTimeout    time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	StrictTransitions bool          `mapstructure:"STRICT_TRANSITIONS"`
	AuditMode         string        `mapstructure:"AUDIT_MODE"`
	LabName           string        `mapstructure:"LAB_NAME"`
	ArchiveBucket     string        `mapstructure:"ARCHIVE_S3_BUCKET"`
	ArchiveRegion     string        `mapstructure:"ARCHIVE_S3_REGION"`
	ArchiveEndpoint   string        `mapstructure:"ARCHIVE_S3_ENDPOINT"`
	ArchivePathStyle  bool          `mapstructure:"ARCHIVE_S3_PATH_STYLE"`
}

var keys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "MIGRATIONS_DIR",
	"REDIS_URL", "ID_ALLOCATOR", "JWT_SECRET", "TOKEN_TTL", "CORS_ORIGINS",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "BODY_LIMIT", "REQUEST_TIMEOUT",
	"STRICT_TRANSITIONS", "AUDIT_MODE", "LAB_NAME",
	"ARCHIVE_S3_BUCKET", "ARCHIVE_S3_REGION", "ARCHIVE_S3_ENDPOINT", "ARCHIVE_S3_PATH_STYLE",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("ID_ALLOCATOR", AllocatorPostgres)
	v.SetDefault("TOKEN_TTL", "12h")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("BODY_LIMIT", "1M")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("STRICT_TRANSITIONS", true)
	v.SetDefault("AUDIT_MODE", AuditBestEffort)
	v.SetDefault("LAB_NAME", "Clinical Laboratory")
	v.SetDefault("ARCHIVE_S3_REGION", "us-east-1")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) == 1 && strings.Contains(cfg.CORSOrigins[0], ",") {
		cfg.CORSOrigins = strings.Split(cfg.CORSOrigins[0], ",")
	}
	for i := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(cfg.CORSOrigins[i])
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() && cfg.JWTSecret == "" {
		log.Warn().Msg("ENV=development without JWT_SECRET: a fixed development signing key is in use, do not expose this server")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// SigningKey returns the JWT signing secret. Development falls back to a
// fixed key so a fresh checkout can log in.
func (c *Config) SigningKey() []byte {
	if c.JWTSecret == "" && c.IsDev() {
		return []byte("lims-development-signing-key")
	}
	return []byte(c.JWTSecret)
}

// ArchiveEnabled reports whether audit exports go to S3.
func (c *Config) ArchiveEnabled() bool {
	return c.ArchiveBucket != ""
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	if !c.IsDev() && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required outside development (ENV=%q)", c.Env)
	}
	if c.JWTSecret != "" && len(c.JWTSecret) < 32 && c.IsProduction() {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
	}

	switch c.IDAllocator {
	case AllocatorPostgres:
	case AllocatorRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when ID_ALLOCATOR is %q", AllocatorRedis)
		}
	default:
		return fmt.Errorf("ID_ALLOCATOR must be %q or %q, got %q", AllocatorPostgres, AllocatorRedis, c.IDAllocator)
	}

	if c.AuditMode != AuditBestEffort && c.AuditMode != AuditTransactional {
		return fmt.Errorf("AUDIT_MODE must be %q or %q, got %q", AuditBestEffort, AuditTransactional, c.AuditMode)
	}

	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive, got %s", c.TokenTTL)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout)
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) must not exceed DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	return nil
}
