package config // package config loads application configuration from environment variables

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  It is loaded once at startup and passed
// explicitly to the components that need it.
type Config struct {
	Env         string        // application environment (e.g. "dev", "prod")
	Port        string        // HTTP port to listen on
	DBUser      string        // database username
	DBPass      string        // database password (optional)
	DBHost      string        // database host address
	DBPort      string        // database port number
	DBName      string        // database name
	JWTSecret   string        // secret used to sign session tokens
	AccessTTL   time.Duration // session token lifetime, 0 disables expiry
	BcryptCost  int           // bcrypt cost for password hashing
	LogLevel    string        // debug, info, warn or error
	CORSOrigins []string      // allowed browser origins
}

// MissingEnvError lists the required variables that were unset or empty.
type MissingEnvError struct {
	Keys []string
}

func (e *MissingEnvError) Error() string {
	return "missing required env vars: " + strings.Join(e.Keys, ", ")
}

// Load reads configuration values from environment variables.  Required
// variables that are missing are reported together in a *MissingEnvError;
// there are no fallback secrets.
func Load() (Config, error) {
	return load(true)
}

// LoadDB reads only what is needed to reach the database, so schema
// management works without JWT_SECRET.  Token and hashing settings are
// left zero.
func LoadDB() (Config, error) {
	return load(false)
}

func load(server bool) (Config, error) {
	r := &reader{}
	cfg := Config{
		Env:      envStr("APP_ENV", "dev"),
		Port:     envStr("APP_PORT", "5000"),
		DBUser:   r.must("DB_USER"),
		DBPass:   os.Getenv("DB_PASS"),
		DBHost:   r.must("DB_HOST"),
		DBPort:   envStr("DB_PORT", "3306"),
		DBName:   r.must("DB_NAME"),
		LogLevel: envStr("LOG_LEVEL", "info"),
	}
	if !server {
		if len(r.missing) > 0 {
			return Config{}, &MissingEnvError{Keys: r.missing}
		}
		return cfg, nil
	}

	cfg.JWTSecret = r.must("JWT_SECRET")
	cfg.BcryptCost = envInt("BCRYPT_COST", 10)
	cfg.CORSOrigins = splitList(envStr("CORS_ORIGINS", "*"))
	if len(r.missing) > 0 {
		return Config{}, &MissingEnvError{Keys: r.missing}
	}

	ttlMin, err := strconv.Atoi(envStr("ACCESS_TOKEN_TTL_MIN", "0"))
	if err != nil || ttlMin < 0 {
		return Config{}, fmt.Errorf("invalid int for ACCESS_TOKEN_TTL_MIN: %q", os.Getenv("ACCESS_TOKEN_TTL_MIN"))
	}
	cfg.AccessTTL = time.Duration(ttlMin) * time.Minute

	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return Config{}, fmt.Errorf("BCRYPT_COST out of range: %d", cfg.BcryptCost)
	}
	return cfg, nil
}

// reader collects the names of missing required variables.
type reader struct {
	missing []string
}

// must retrieves the value of a required environment variable, recording
// it as missing when unset or empty.
func (r *reader) must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		r.missing = append(r.missing, key)
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
