// Package config builds process configuration from environment variables so
// main stays lean. Every value has a dev-mode default; production deployments
// must override the secret-bearing ones (the services fail closed when they
// detect production mode without durable key material).
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Mode selects the hardening profile.
type Mode string

const (
	ModeDev        Mode = "dev"
	ModeProduction Mode = "production"
)

// Redis captures connection settings for the optional Redis-backed
// authorization code store.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// SeedUser describes one dev user reconciled at IdP startup.
type SeedUser struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	EmpID     string
	// Oid pins the stable object id across restarts so app-side role grants
	// keyed by subject survive database resets.
	Oid string
}

// IdP is the identity provider configuration.
type IdP struct {
	Addr   string
	Mode   Mode
	Issuer string
	// TenantID is emitted as the tid claim. Defaults to the all-zero GUID
	// sentinel when unconfigured.
	TenantID string
	// SigningKeyPEM holds an RSA private key in PEM form. Empty in dev mode
	// means a fresh per-process key (tokens do not survive restarts).
	SigningKeyPEM string
	SessionSecret string
	SessionTTL    time.Duration
	AuthCodeTTL   time.Duration
	TokenTTL      time.Duration

	// LockoutEnabled turns on failed-login lockout. Defaults to on in
	// production mode, off in dev.
	LockoutEnabled      bool
	LockoutThreshold    int
	LockoutWindow       time.Duration
	RevokeCodesOnLogout bool

	Redis        Redis
	KafkaBrokers []string
	KafkaTopic   string

	ClientID              string
	ClientSecret          string
	ClientRedirectURI     string
	ClientPostLogoutURI   string
	SeedAdmin             SeedUser
	SeedHost              SeedUser
}

// Web is the relying-party web app configuration.
type Web struct {
	Addr   string
	Mode   Mode
	// Authority is the IdP issuer URL used for OIDC discovery.
	Authority             string
	ClientID              string
	ClientSecret          string
	RedirectURL           string
	PostLogoutRedirectURL string
	SessionSecret         string
	SessionTTL            time.Duration

	// DatabaseURL enables the Postgres-backed app authorization store.
	// Empty means in-memory (dev).
	DatabaseURL string

	KafkaBrokers []string
	KafkaTopic   string

	// Seed subjects for the dev app authorization table. Must match the
	// oids pinned on the IdP side.
	SeedAdminSubject string
	SeedHostSubject  string
}

// IdPFromEnv builds the IdP config from COHORT_IDP_* environment variables.
func IdPFromEnv() IdP {
	mode := modeFromEnv("COHORT_IDP_MODE")
	cfg := IdP{
		Addr:          envOr("COHORT_IDP_ADDR", ":5001"),
		Mode:          mode,
		Issuer:        envOr("COHORT_IDP_ISSUER", "http://localhost:5001"),
		TenantID:      envOr("COHORT_IDP_TENANT_ID", "00000000-0000-0000-0000-000000000000"),
		SigningKeyPEM: os.Getenv("COHORT_IDP_SIGNING_KEY_PEM"),
		SessionSecret: envOr("COHORT_IDP_SESSION_SECRET", "dev-idp-session-secret"),
		SessionTTL:    durationOr("COHORT_IDP_SESSION_TTL", 8*time.Hour),
		AuthCodeTTL:   durationOr("COHORT_IDP_AUTH_CODE_TTL", 120*time.Second),
		TokenTTL:      durationOr("COHORT_IDP_TOKEN_TTL", time.Hour),

		LockoutEnabled:      boolOr("COHORT_IDP_LOCKOUT_ENABLED", mode == ModeProduction),
		LockoutThreshold:    intOr("COHORT_IDP_LOCKOUT_THRESHOLD", 5),
		LockoutWindow:       durationOr("COHORT_IDP_LOCKOUT_WINDOW", 15*time.Minute),
		RevokeCodesOnLogout: boolOr("COHORT_IDP_REVOKE_CODES_ON_LOGOUT", mode == ModeProduction),

		Redis:        redisFromEnv("COHORT_IDP_REDIS_URL"),
		KafkaBrokers: splitList(os.Getenv("COHORT_IDP_KAFKA_BROKERS")),
		KafkaTopic:   envOr("COHORT_IDP_KAFKA_TOPIC", "cohort.audit"),

		ClientID:            envOr("COHORT_IDP_CLIENT_ID", "cohort-web"),
		ClientSecret:        envOr("COHORT_IDP_CLIENT_SECRET", "dev-secret"),
		ClientRedirectURI:   envOr("COHORT_IDP_CLIENT_REDIRECT_URI", "http://localhost:5003/auth/callback"),
		ClientPostLogoutURI: envOr("COHORT_IDP_CLIENT_POST_LOGOUT_URI", "http://localhost:5003/"),
		SeedAdmin: SeedUser{
			Email:     envOr("COHORT_SEED_ADMIN_EMAIL", "admin@example.com"),
			Password:  envOr("COHORT_SEED_ADMIN_PASSWORD", "Pass123$"),
			FirstName: envOr("COHORT_SEED_ADMIN_FIRST_NAME", "Admin"),
			LastName:  envOr("COHORT_SEED_ADMIN_LAST_NAME", "User"),
			EmpID:     envOr("COHORT_SEED_ADMIN_EMP_ID", "A001"),
			Oid:       envOr("COHORT_SEED_ADMIN_OID", "11111111-1111-1111-1111-111111111111"),
		},
		SeedHost: SeedUser{
			Email:     envOr("COHORT_SEED_HOST_EMAIL", "host@example.com"),
			Password:  envOr("COHORT_SEED_HOST_PASSWORD", "Pass123$"),
			FirstName: envOr("COHORT_SEED_HOST_FIRST_NAME", "Host"),
			LastName:  envOr("COHORT_SEED_HOST_LAST_NAME", "User"),
			EmpID:     envOr("COHORT_SEED_HOST_EMP_ID", "H001"),
			Oid:       envOr("COHORT_SEED_HOST_OID", "22222222-2222-2222-2222-222222222222"),
		},
	}
	return cfg
}

// WebFromEnv builds the web app config from COHORT_WEB_* environment variables.
func WebFromEnv() Web {
	return Web{
		Addr:                  envOr("COHORT_WEB_ADDR", ":5003"),
		Mode:                  modeFromEnv("COHORT_WEB_MODE"),
		Authority:             envOr("COHORT_WEB_OIDC_AUTHORITY", "http://localhost:5001"),
		ClientID:              envOr("COHORT_WEB_OIDC_CLIENT_ID", "cohort-web"),
		ClientSecret:          envOr("COHORT_WEB_OIDC_CLIENT_SECRET", "dev-secret"),
		RedirectURL:           envOr("COHORT_WEB_OIDC_REDIRECT_URL", "http://localhost:5003/auth/callback"),
		PostLogoutRedirectURL: envOr("COHORT_WEB_OIDC_POST_LOGOUT_URL", "http://localhost:5003/"),
		SessionSecret:         envOr("COHORT_WEB_SESSION_SECRET", "dev-web-session-secret"),
		SessionTTL:            durationOr("COHORT_WEB_SESSION_TTL", 8*time.Hour),
		DatabaseURL:           os.Getenv("COHORT_WEB_DATABASE_URL"),
		KafkaBrokers:          splitList(os.Getenv("COHORT_WEB_KAFKA_BROKERS")),
		KafkaTopic:            envOr("COHORT_WEB_KAFKA_TOPIC", "cohort.audit"),
		SeedAdminSubject:      envOr("COHORT_SEED_ADMIN_OID", "11111111-1111-1111-1111-111111111111"),
		SeedHostSubject:       envOr("COHORT_SEED_HOST_OID", "22222222-2222-2222-2222-222222222222"),
	}
}

func redisFromEnv(urlVar string) Redis {
	return Redis{
		URL:          os.Getenv(urlVar),
		PoolSize:     intOr("COHORT_REDIS_POOL_SIZE", 10),
		MinIdleConns: intOr("COHORT_REDIS_MIN_IDLE_CONNS", 2),
		DialTimeout:  durationOr("COHORT_REDIS_DIAL_TIMEOUT", 5*time.Second),
		ReadTimeout:  durationOr("COHORT_REDIS_READ_TIMEOUT", 3*time.Second),
		WriteTimeout: durationOr("COHORT_REDIS_WRITE_TIMEOUT", 3*time.Second),
	}
}

func modeFromEnv(key string) Mode {
	if os.Getenv(key) == string(ModeProduction) {
		return ModeProduction
	}
	return ModeDev
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func intOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func boolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
