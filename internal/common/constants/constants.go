package constants

import "time"

const (
	UsernameMinLength = 3
	UsernameMaxLength = 64
	EmailMaxLength    = 120

	LoginPasswordMinLength  = 6
	SignupPasswordMinLength = 8
	PasswordMaxLength       = 128

	ContactNameMinLength    = 1
	ContactNameMaxLength    = 80
	ContactPhoneMaxLength   = 20
	ContactMessageMinLength = 1
	ContactMessageMaxLength = 1000

	SessionSecretMinLength = 32

	SessionCookieName  = "session"
	RememberCookieName = "remember_token"
	CSRFCookieName     = "csrf_token"
	CSRFFieldName      = "csrf_token"
	CSRFTokenSize      = 32

	SessionTokenTTL  = 12 * time.Hour
	RememberTokenTTL = 30 * 24 * time.Hour

	DefaultMaxRequestSize = 1 << 20

	DBPoolMaxOpenConns    = 25
	DBPoolMinOpenConns    = 5
	DBPoolConnMaxLifetime = time.Hour
	DBPoolConnMaxIdleTime = 30 * time.Minute
	DBPoolHealthCheck     = time.Minute
	DBPoolConnectTimeout  = 5 * time.Second
	DBPoolMaxAttempts     = 10
	DBPoolRetryDelay      = time.Second

	ServerReadHeaderTimeout = 10 * time.Second
	ServerReadTimeout       = 30 * time.Second
	ServerWriteTimeout      = 30 * time.Second
	ServerIdleTimeout       = 120 * time.Second

	ShutdownTimeout = 30 * time.Second
	DrainTimeout    = 10 * time.Second

	DefaultHTTPPort       = "8080"
	DefaultRequestTimeout = 5 * time.Second

	LoggerMaxSize    = 100
	LoggerMaxBackups = 3
	LoggerMaxAge     = 28
)

type TraceIDKeyType string

const TraceIDKey TraceIDKeyType = "trace_id"
