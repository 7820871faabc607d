package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the application configuration
type Config struct {
	DatabaseURL string
	Port        string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret   string
	CacheSecret string

	// Token lifetimes as duration specifiers: <integer><unit>, unit in d/h/m/s.
	AccessTokenExpire  string
	RefreshTokenExpire string

	// CodeDebugMode must never be enabled in production: it swaps the
	// random verification code for a fixed one unless EmailDebugEnabled
	// forces real delivery.
	CodeDebugMode     bool
	EmailDebugEnabled bool

	// TesterEmails lists addresses that always receive the fixed tester
	// code. A trailing '*' makes an entry a prefix match.
	TesterEmails []string

	// ClientApps is a CLIENT_APPS entry list of id:secret:name triples.
	ClientApps []ClientApp
}

// ClientApp is an OAuth2-style application parsed from the environment.
type ClientApp struct {
	ClientID     string
	ClientSecret string
	Name         string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:               "8080",
		AccessTokenExpire:  "30d",
		RefreshTokenExpire: "90d",
		RedisAddr:          "localhost:6379",
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	if port := os.Getenv("PORT"); port != "" {
		cfg.Port = port
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.RedisAddr = addr
	}
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	if db := os.Getenv("REDIS_DB"); db != "" {
		n, err := strconv.Atoi(db)
		if err != nil {
			return nil, fmt.Errorf("REDIS_DB must be an integer: %w", err)
		}
		cfg.RedisDB = n
	}

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	cfg.CacheSecret = os.Getenv("CACHE_SECRET")
	if cfg.CacheSecret == "" {
		return nil, fmt.Errorf("CACHE_SECRET environment variable is required")
	}

	if v := os.Getenv("ACCESS_TOKEN_EXPIRE"); v != "" {
		cfg.AccessTokenExpire = v
	}
	if v := os.Getenv("REFRESH_TOKEN_EXPIRE"); v != "" {
		cfg.RefreshTokenExpire = v
	}

	cfg.CodeDebugMode = os.Getenv("CODE_DEBUG_MODE") == "true"
	cfg.EmailDebugEnabled = os.Getenv("EMAIL_DEBUG_ENABLED") == "true"

	if v := os.Getenv("TESTER_EMAILS"); v != "" {
		for _, e := range strings.Split(v, ",") {
			e = strings.ToLower(strings.TrimSpace(e))
			if e != "" {
				cfg.TesterEmails = append(cfg.TesterEmails, e)
			}
		}
	}

	if v := os.Getenv("CLIENT_APPS"); v != "" {
		apps, err := parseClientApps(v)
		if err != nil {
			return nil, err
		}
		cfg.ClientApps = apps
	}

	return cfg, nil
}

// parseClientApps parses "id:secret:name,id:secret:name" entries.
func parseClientApps(v string) ([]ClientApp, error) {
	var apps []ClientApp
	for _, entry := range strings.Split(v, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("CLIENT_APPS entry %q must be id:secret or id:secret:name", entry)
		}
		app := ClientApp{ClientID: parts[0], ClientSecret: parts[1]}
		if len(parts) == 3 {
			app.Name = parts[2]
		}
		apps = append(apps, app)
	}
	return apps, nil
}
