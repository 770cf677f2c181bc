package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment variables read by the client.
const (
	EnvBackendURL     = "PNEUMOSCAN_BACKEND_URL"
	EnvTimeout        = "PNEUMOSCAN_TIMEOUT"
	EnvModeTimeout    = "PNEUMOSCAN_MODE_TIMEOUT"
	EnvDemoDelay      = "PNEUMOSCAN_DEMO_DELAY"
	EnvPositiveMarker = "PNEUMOSCAN_POSITIVE_MARKER"
	EnvJWTSecret      = "PNEUMOSCAN_JWT_SECRET"
	EnvClientID       = "PNEUMOSCAN_CLIENT_ID"
	EnvDebug          = "PNEUMOSCAN_DEBUG"
	EnvColumns        = "COLUMNS"
)

// Environment variables read by the development backend.
const (
	EnvBackendAddr = "BACKEND_ADDR"
	EnvDemoMode    = "DEMO_MODE"
	EnvRedisAddr   = "REDIS_ADDR"
	EnvJWTSecretBE = "JWT_SECRET"
	EnvJWTAudience = "JWT_AUDIENCE"
)

// Client holds the settings of the submission client.
type Client struct {
	BackendURL     string
	Timeout        time.Duration
	ModeTimeout    time.Duration
	DemoDelay      time.Duration
	PositiveMarker string
	JWTSecret      string
	ClientID       string
	Debug          bool
	Columns        int
}

// Backend holds the settings of the development backend.
type Backend struct {
	Addr        string
	DemoMode    bool
	RedisAddr   string
	JWTSecret   string
	JWTAudience string
	Debug       bool
}

// LoadClient reads client settings from the environment.
func LoadClient() Client {
	return Client{
		BackendURL:     getEnv(EnvBackendURL, "http://localhost:8080"),
		Timeout:        getDuration(EnvTimeout, 30*time.Second),
		ModeTimeout:    getDuration(EnvModeTimeout, 5*time.Second),
		DemoDelay:      getDuration(EnvDemoDelay, 2*time.Second),
		PositiveMarker: getEnv(EnvPositiveMarker, "Pneumonia"),
		JWTSecret:      os.Getenv(EnvJWTSecret),
		ClientID:       getEnv(EnvClientID, defaultClientID()),
		Debug:          getBool(EnvDebug, false),
		Columns:        getInt(EnvColumns, 0),
	}
}

// LoadBackend reads development backend settings from the environment.
func LoadBackend() Backend {
	return Backend{
		Addr:        getEnv(EnvBackendAddr, ":8080"),
		DemoMode:    getBool(EnvDemoMode, true),
		RedisAddr:   os.Getenv(EnvRedisAddr),
		JWTSecret:   os.Getenv(EnvJWTSecretBE),
		JWTAudience: os.Getenv(EnvJWTAudience),
		Debug:       getBool(EnvDebug, false),
	}
}

func getEnv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d >= 0 {
		return d
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return fallback
}

func defaultClientID() string {
	if host, err := os.Hostname(); err == nil && host != "" {
		return "pneumoscan@" + host
	}
	return "pneumoscan"
}
