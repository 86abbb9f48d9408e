// Package config loads ClauseGuard configuration from defaults, an optional
// YAML file and CLAUSEGUARD_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/opensource-finance/clauseguard/internal/domain"
	"github.com/spf13/viper"
)

const (
	envPrefix = "CLAUSEGUARD"

	// FileEnv names the environment variable holding the config file path.
	FileEnv = "CLAUSEGUARD_CONFIG"
)

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

// Load builds the configuration. path may be empty, in which case
// CLAUSEGUARD_CONFIG is consulted; with neither, only defaults and the
// environment apply. The tier (file or CLAUSEGUARD_TIER) selects which
// defaults are seeded, so CLAUSEGUARD_TIER=pro alone switches to the Pro stack.
func Load(path string) (*domain.Config, error) {
	if path == "" {
		path = os.Getenv(FileEnv)
	}

	v := newViper()
	v.SetDefault("tier", string(domain.TierCommunity))

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: failed to read config file %q: %w", path, err)
		}
	}

	base := domain.DefaultConfig()
	if domain.Tier(v.GetString("tier")) == domain.TierPro {
		base = domain.ProConfig()
	}
	setDefaults(v, base)

	cfg := &domain.Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	if v.GetBool("debug") {
		cfg.Logging.Level = "debug"
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so environment overrides are picked up
// by Unmarshal even when the file does not mention them.
func setDefaults(v *viper.Viper, c *domain.Config) {
	v.SetDefault("debug", false)

	v.SetDefault("server.host", c.Server.Host)
	v.SetDefault("server.port", c.Server.Port)
	v.SetDefault("server.read_timeout", c.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", c.Server.WriteTimeout)
	v.SetDefault("server.max_body_bytes", c.Server.MaxBodyBytes)

	r := c.Repository
	v.SetDefault("repository.driver", r.Driver)
	v.SetDefault("repository.sqlite_path", r.SQLitePath)
	v.SetDefault("repository.postgres_host", r.PostgresHost)
	v.SetDefault("repository.postgres_port", r.PostgresPort)
	v.SetDefault("repository.postgres_user", r.PostgresUser)
	v.SetDefault("repository.postgres_password", r.PostgresPassword)
	v.SetDefault("repository.postgres_db", r.PostgresDB)
	v.SetDefault("repository.postgres_sslmode", r.PostgresSSLMode)
	v.SetDefault("repository.max_open_conns", r.MaxOpenConns)
	v.SetDefault("repository.max_idle_conns", r.MaxIdleConns)
	v.SetDefault("repository.conn_max_lifetime", r.ConnMaxLifetime)

	ca := c.Cache
	v.SetDefault("cache.type", ca.Type)
	v.SetDefault("cache.local_max_size", ca.LocalMaxSize)
	v.SetDefault("cache.local_ttl", ca.LocalTTL)
	v.SetDefault("cache.redis_addr", ca.RedisAddr)
	v.SetDefault("cache.redis_password", ca.RedisPassword)
	v.SetDefault("cache.redis_db", ca.RedisDB)
	v.SetDefault("cache.enable_two_phase", ca.EnableTwoPhase)
	v.SetDefault("cache.assessment_ttl", ca.AssessmentTTL)

	b := c.EventBus
	v.SetDefault("eventbus.type", b.Type)
	v.SetDefault("eventbus.channel_buffer_size", b.ChannelBufferSize)
	v.SetDefault("eventbus.nats_url", b.NATSUrl)
	v.SetDefault("eventbus.nats_token", b.NATSToken)
	v.SetDefault("eventbus.nats_max_reconnects", b.NATSMaxReconnects)
	v.SetDefault("eventbus.nats_reconnect_wait", b.NATSReconnectWait)

	v.SetDefault("ratelimit.requests", c.RateLimit.Requests)
	v.SetDefault("ratelimit.window", c.RateLimit.Window)

	v.SetDefault("worker.enabled", c.Worker.Enabled)
	v.SetDefault("worker.tenants", c.Worker.Tenants)

	v.SetDefault("logging.level", c.Logging.Level)
	v.SetDefault("logging.format", c.Logging.Format)

	v.SetDefault("tracing.enabled", c.Tracing.Enabled)
	v.SetDefault("tracing.service_name", c.Tracing.ServiceName)
	v.SetDefault("tracing.exporter_type", c.Tracing.ExporterType)
	v.SetDefault("tracing.endpoint", c.Tracing.Endpoint)

	v.SetDefault("metrics.enabled", c.Metrics.Enabled)
	v.SetDefault("metrics.namespace", c.Metrics.Namespace)
}

// Validate rejects configurations the server cannot start with.
func Validate(c *domain.Config) error {
	var errs []error
	if c.Tier != domain.TierCommunity && c.Tier != domain.TierPro {
		errs = append(errs, fmt.Errorf("unknown tier %q", c.Tier))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	switch c.Repository.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("unsupported repository.driver %q", c.Repository.Driver))
	}
	switch c.Cache.Type {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("unsupported cache.type %q", c.Cache.Type))
	}
	switch c.EventBus.Type {
	case "channel", "nats":
	default:
		errs = append(errs, fmt.Errorf("unsupported eventbus.type %q", c.EventBus.Type))
	}
	if c.RateLimit.Requests < 0 {
		errs = append(errs, errors.New("ratelimit.requests must not be negative"))
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown logging.level %q", c.Logging.Level))
	}
	return errors.Join(errs...)
}
