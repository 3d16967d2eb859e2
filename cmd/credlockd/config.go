package main

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
)

type serverConfig struct {
	Addr            string        `env:"CREDLOCK_ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"CREDLOCK_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	PostgresDSN string `env:"CREDLOCK_POSTGRES_DSN,required"`

	RedisAddr     string `env:"CREDLOCK_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"CREDLOCK_REDIS_PASSWORD"`
	RedisDB       int    `env:"CREDLOCK_REDIS_DB" envDefault:"0"`

	// HS256 shared secret. When unset the server generates a dev
	// Ed25519 keypair, which does not survive restarts.
	JWTSecret   string        `env:"CREDLOCK_JWT_SECRET"`
	JWTIssuer   string        `env:"CREDLOCK_JWT_ISSUER"`
	JWTAudience string        `env:"CREDLOCK_JWT_AUDIENCE"`
	AccessTTL   time.Duration `env:"CREDLOCK_ACCESS_TTL" envDefault:"5m"`

	SessionLifetime time.Duration `env:"CREDLOCK_SESSION_LIFETIME" envDefault:"168h"`
	RedisPrefix     string        `env:"CREDLOCK_REDIS_PREFIX" envDefault:"cl"`

	RegistrationEnabled bool `env:"CREDLOCK_REGISTRATION_ENABLED" envDefault:"true"`
	AutoLogin           bool `env:"CREDLOCK_AUTO_LOGIN" envDefault:"true"`

	AuditEnabled bool   `env:"CREDLOCK_AUDIT_ENABLED" envDefault:"true"`
	AuditBuffer  int    `env:"CREDLOCK_AUDIT_BUFFER" envDefault:"1024"`
	AuditPath    string `env:"CREDLOCK_AUDIT_PATH"`

	MetricsEnabled    bool `env:"CREDLOCK_METRICS_ENABLED" envDefault:"true"`
	LatencyHistograms bool `env:"CREDLOCK_LATENCY_HISTOGRAMS" envDefault:"false"`
}

func loadConfig() (serverConfig, error) {
	var cfg serverConfig
	if err := env.Parse(&cfg); err != nil {
		return serverConfig{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

func (c serverConfig) auditWriter() (*os.File, error) {
	if c.AuditPath == "" {
		return os.Stdout, nil
	}
	return os.OpenFile(c.AuditPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
}
