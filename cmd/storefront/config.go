package main

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/storefront/go-storefront/store/sqlstore"
)

type config struct {
	Addr      string
	GRPCAddr  string
	DBDriver  string
	DBDSN     string
	IssuerURL *url.URL
	Audience  string
	RedisAddr string
	LogLevel  logrus.Level
}

// loadConfig reads the STOREFRONT_* variables through getenv.
func loadConfig(getenv func(string) string) (config, error) {
	env := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	cfg := config{
		Addr:      env("STOREFRONT_ADDR", ":8080"),
		GRPCAddr:  env("STOREFRONT_GRPC_ADDR", ""),
		DBDriver:  env("STOREFRONT_DB_DRIVER", ""),
		DBDSN:     env("STOREFRONT_DB_DSN", ""),
		Audience:  env("STOREFRONT_AUDIENCE", ""),
		RedisAddr: env("STOREFRONT_REDIS_ADDR", ""),
	}

	level, err := logrus.ParseLevel(env("STOREFRONT_LOG_LEVEL", "info"))
	if err != nil {
		return config{}, fmt.Errorf("STOREFRONT_LOG_LEVEL: %w", err)
	}
	cfg.LogLevel = level

	switch cfg.DBDriver {
	case "":
	case sqlstore.DriverSQLite, sqlstore.DriverPostgres:
		if cfg.DBDSN == "" {
			return config{}, errors.New("STOREFRONT_DB_DSN is required when STOREFRONT_DB_DRIVER is set")
		}
	default:
		return config{}, fmt.Errorf("STOREFRONT_DB_DRIVER: unsupported driver %q", cfg.DBDriver)
	}

	if raw := env("STOREFRONT_ISSUER_URL", ""); raw != "" {
		issuer, err := url.Parse(raw)
		if err != nil || issuer.Scheme == "" || issuer.Host == "" {
			return config{}, fmt.Errorf("STOREFRONT_ISSUER_URL: %q is not an absolute URL", raw)
		}
		if cfg.Audience == "" {
			return config{}, errors.New("STOREFRONT_AUDIENCE is required when STOREFRONT_ISSUER_URL is set")
		}
		cfg.IssuerURL = issuer
	}

	return cfg, nil
}
