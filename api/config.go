package main

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type dbConfig struct {
	DSN          string        `env:"DB_DSN"`
	MaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"25"`
	MaxIdleTime  time.Duration `env:"DB_MAX_IDLE_TIME" envDefault:"15m"`
}

type smtpConfig struct {
	Host     string `env:"MAIL_SERVER" envDefault:"smtp.gmail.com"`
	Port     int    `env:"MAIL_PORT" envDefault:"587"`
	Username string `env:"MAIL_USERNAME"`
	Password string `env:"MAIL_PASSWORD"`
	Sender   string `env:"MAIL_FROM"`
}

type jwtConfig struct {
	Secret             string `env:"SECRET_KEY"`
	Algorithm          string `env:"ALGORITHM" envDefault:"HS256"`
	AccessTokenMinutes int    `env:"ACCESS_TOKEN_EXPIRE_MINUTES" envDefault:"30"`
}

type limiterConfig struct {
	Enabled bool    `env:"LIMITER_ENABLED" envDefault:"true"`
	RPS     float64 `env:"LIMITER_RPS" envDefault:"4"`
	Burst   int     `env:"LIMITER_BURST" envDefault:"8"`
}

type corsConfig struct {
	TrustedOrigins []string `env:"CORS_TRUSTED_ORIGINS" envSeparator:" " envDefault:"*"`
}

type config struct {
	Port    int    `env:"PORT" envDefault:"8000"`
	Env     string `env:"APP_ENV" envDefault:"development"`
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8000"`
	DB      dbConfig
	SMTP    smtpConfig
	JWT     jwtConfig
	Limiter limiterConfig
	CORS    corsConfig
}

// loadConfig reads the environment first, then lets command-line flags
// override individual values.
func loadConfig(args []string) (config, error) {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}

	fs := flag.NewFlagSet("api", flag.ContinueOnError)
	fs.IntVar(&cfg.Port, "port", cfg.Port, "Server port")
	fs.StringVar(&cfg.Env, "env", cfg.Env, "Environment [development|staging|production]")
	fs.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "Public base URL used in emailed links")

	fs.StringVar(&cfg.DB.DSN, "db-dsn", cfg.DB.DSN, "PostgreSQL DSN")
	fs.IntVar(&cfg.DB.MaxOpenConns, "db-max-open-conns", cfg.DB.MaxOpenConns, "PostgreSQL max open connections")
	fs.IntVar(&cfg.DB.MaxIdleConns, "db-max-idle-conns", cfg.DB.MaxIdleConns, "PostgreSQL max idle connections")
	fs.DurationVar(&cfg.DB.MaxIdleTime, "db-max-idle-time", cfg.DB.MaxIdleTime, "PostgreSQL max connection idle time")

	fs.StringVar(&cfg.SMTP.Host, "smtp-host", cfg.SMTP.Host, "SMTP host")
	fs.IntVar(&cfg.SMTP.Port, "smtp-port", cfg.SMTP.Port, "SMTP port")
	fs.StringVar(&cfg.SMTP.Username, "smtp-username", cfg.SMTP.Username, "SMTP username")
	fs.StringVar(&cfg.SMTP.Password, "smtp-password", cfg.SMTP.Password, "SMTP password")
	fs.StringVar(&cfg.SMTP.Sender, "smtp-sender", cfg.SMTP.Sender, "SMTP sender")

	fs.StringVar(&cfg.JWT.Secret, "jwt-secret", cfg.JWT.Secret, "JWT signing secret")
	fs.StringVar(&cfg.JWT.Algorithm, "jwt-algorithm", cfg.JWT.Algorithm, "JWT signing algorithm [HS256|HS384|HS512]")
	fs.IntVar(&cfg.JWT.AccessTokenMinutes, "jwt-access-minutes", cfg.JWT.AccessTokenMinutes, "Access token lifetime in minutes")

	fs.BoolVar(&cfg.Limiter.Enabled, "limiter-enabled", cfg.Limiter.Enabled, "Enable rate limiter")
	fs.Float64Var(&cfg.Limiter.RPS, "limiter-rps", cfg.Limiter.RPS, "Rate limiter maximum requests per second")
	fs.IntVar(&cfg.Limiter.Burst, "limiter-burst", cfg.Limiter.Burst, "Rate limiter maximum burst")

	fs.Func("cors-trusted-origins", "Trusted CORS origins (space separated)", func(val string) error {
		cfg.CORS.TrustedOrigins = strings.Fields(val)
		return nil
	})

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	return cfg, cfg.validate()
}

func (cfg config) validate() error {
	switch {
	case cfg.JWT.Secret == "":
		return errors.New("SECRET_KEY not set")
	case cfg.JWT.AccessTokenMinutes <= 0:
		return errors.New("access token lifetime must be positive")
	case cfg.DB.DSN == "":
		return errors.New("database DSN not set")
	case cfg.BaseURL == "":
		return errors.New("base URL not set")
	}
	return nil
}
