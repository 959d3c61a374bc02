// Package config provides configuration management for the WiFi manager.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration values for the server.
type Config struct {
	// Server configuration
	Port string
	Env  string

	// Database configuration
	DatabaseURL string

	// Persisted radio profiles (.json, .yaml or .yml)
	WiFiConfPath string

	// Radio driver: "nmcli" on a Pi, "sim" anywhere else
	RadioDriver     string
	WiFiInterface   string // empty = detect
	WiFiAPInterface string

	ConnectTimeout    time.Duration
	InternetCheckHost string
	STUNServers       []string
	StatusLogInterval time.Duration // 0 disables the periodic status log

	// Networks brought up at startup when nothing is persisted
	DefaultAPSSID  string
	DefaultAPKey   string
	DefaultAPIP    string
	DefaultSTASSID string
	DefaultSTAKey  string

	// CORS configuration
	CORSOrigin string

	// Logging
	LogVerbose bool
	LogDebug   bool
	LogFile    string
}

// Load loads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		// Server
		Port: getEnv("PORT", "4100"),
		Env:  getEnv("ENV", "development"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", "file:./wifi.db"),

		WiFiConfPath: getEnv("WIFI_CONF_PATH", "./conf/wifi.json"),

		// Radio
		RadioDriver:     getEnv("RADIO_DRIVER", "nmcli"),
		WiFiInterface:   getEnv("WIFI_INTERFACE", "wlan0"),
		WiFiAPInterface: getEnv("WIFI_AP_INTERFACE", "uap0"),

		ConnectTimeout:    time.Duration(getEnvInt("CONNECT_TIMEOUT_SEC", 10)) * time.Second,
		InternetCheckHost: getEnv("INTERNET_CHECK_HOST", "iana.org"),
		STUNServers:       getEnvList("STUN_SERVERS"),
		StatusLogInterval: time.Duration(getEnvInt("STATUS_LOG_INTERVAL_SEC", 3)) * time.Second,

		// Defaults
		DefaultAPSSID:  getEnv("DEFAULT_AP_SSID", ""),
		DefaultAPKey:   getEnv("DEFAULT_AP_KEY", ""),
		DefaultAPIP:    getEnv("DEFAULT_AP_IP", "192.168.0.254"),
		DefaultSTASSID: getEnv("DEFAULT_STA_SSID", ""),
		DefaultSTAKey:  getEnv("DEFAULT_STA_KEY", ""),

		// CORS
		CORSOrigin: getEnv("CORS_ORIGIN", "http://localhost:3000"),

		// Logging
		LogVerbose: getEnvBool("LOG_VERBOSE", true),
		LogDebug:   getEnvBool("LOG_DEBUG", false),
		LogFile:    getEnv("LOG_FILE", ""),
	}
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// UseSimulator returns true if the radio should be simulated.
func (c *Config) UseSimulator() bool {
	return strings.EqualFold(c.RadioDriver, "sim")
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt returns the integer value of an environment variable or a default value.
func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvBool returns the boolean value of an environment variable or a default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated environment variable, dropping blanks.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
