package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/contactdesk/backend/internal/common/constants"
	commonerrors "github.com/contactdesk/backend/internal/common/errors"
)

type WebConfig struct {
	HTTPPort       string
	DatabaseURL    string
	SessionSecret  string
	SecureCookies  bool
	RequestTimeout time.Duration
}

type AdminConfig struct {
	DatabaseURL string
}

func LoadWebConfig() (WebConfig, error) {
	// Missing .env is fine, real environments set variables directly.
	_ = godotenv.Load()

	sessionSecret, err := mustEnv("SESSION_SECRET")
	if err != nil {
		return WebConfig{}, err
	}

	if err := validateSessionSecret(sessionSecret); err != nil {
		return WebConfig{}, err
	}

	databaseURL, err := mustEnv("DATABASE_URL")
	if err != nil {
		return WebConfig{}, err
	}

	return WebConfig{
		HTTPPort:       getEnv("HTTP_PORT", constants.DefaultHTTPPort),
		DatabaseURL:    databaseURL,
		SessionSecret:  sessionSecret,
		SecureCookies:  getEnv("COOKIE_SECURE", "1") == "1",
		RequestTimeout: getDurationEnv("REQUEST_TIMEOUT", constants.DefaultRequestTimeout),
	}, nil
}

func LoadAdminConfig() (AdminConfig, error) {
	_ = godotenv.Load()

	databaseURL, err := mustEnv("DATABASE_URL")
	if err != nil {
		return AdminConfig{}, err
	}

	return AdminConfig{DatabaseURL: databaseURL}, nil
}

func validateSessionSecret(secret string) error {
	if len(secret) < constants.SessionSecretMinLength {
		return commonerrors.ErrInvalidSessionSecret.WithCause(
			fmt.Errorf("got %d bytes", len(secret)),
		)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func mustEnv(key string) (string, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", commonerrors.ErrMissingRequiredEnv.WithCause(fmt.Errorf("%s", key))
	}
	return v, nil
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
