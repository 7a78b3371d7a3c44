// Package config loads process configuration from the environment. Values
// are read once at startup and never re-read; there is no hot reload.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all settings for the MCP server and the PVE connection.
type Config struct {
	// Proxmox connection
	ProxmoxHost string
	ProxmoxPort int
	ProxmoxUser string // user@realm
	TokenName   string
	TokenValue  string
	VerifySSL   bool
	Fingerprint string
	Timeout     time.Duration

	// Permission policy. When false, only read-only tools perform work;
	// mutating tools return an advisory instead of calling the API.
	AllowElevated bool

	// MCP server
	ListenAddr string

	// Logging
	LogLevel  string
	LogFormat string
}

// Load reads configuration from a .env file (when present) and the
// environment. PROXMOX_HOST, PROXMOX_USER, PROXMOX_TOKEN_NAME and
// PROXMOX_TOKEN_VALUE are required.
func Load() (*Config, error) {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
		log.Info().Str("file", envFile).Msg("Loaded environment file")
	} else if err := godotenv.Load(); err == nil {
		log.Debug().Msg("Loaded .env file")
	}

	cfg := &Config{
		ProxmoxHost:   os.Getenv("PROXMOX_HOST"),
		ProxmoxPort:   envInt("PROXMOX_PORT", 8006),
		ProxmoxUser:   os.Getenv("PROXMOX_USER"),
		TokenName:     os.Getenv("PROXMOX_TOKEN_NAME"),
		TokenValue:    os.Getenv("PROXMOX_TOKEN_VALUE"),
		VerifySSL:     envBool("PROXMOX_VERIFY_SSL", true),
		Fingerprint:   os.Getenv("PROXMOX_FINGERPRINT"),
		Timeout:       time.Duration(envInt("PROXMOX_TIMEOUT", 30)) * time.Second,
		AllowElevated: envBool("PROXMOX_ALLOW_ELEVATED", false),
		ListenAddr:    envString("MCP_LISTEN_ADDR", "127.0.0.1:8812"),
		LogLevel:      envString("LOG_LEVEL", "info"),
		LogFormat:     envString("LOG_FORMAT", "auto"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var missing []string
	if c.ProxmoxHost == "" {
		missing = append(missing, "PROXMOX_HOST")
	}
	if c.ProxmoxUser == "" {
		missing = append(missing, "PROXMOX_USER")
	}
	if c.TokenName == "" {
		missing = append(missing, "PROXMOX_TOKEN_NAME")
	}
	if c.TokenValue == "" {
		missing = append(missing, "PROXMOX_TOKEN_VALUE")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if c.ProxmoxPort < 1 || c.ProxmoxPort > 65535 {
		return fmt.Errorf("PROXMOX_PORT must be between 1 and 65535, got %d", c.ProxmoxPort)
	}
	return nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Str("key", key).Str("value", v).Msg("Invalid integer in environment, using default")
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		log.Warn().Str("key", key).Str("value", v).Msg("Invalid boolean in environment, using default")
		return fallback
	}
}
