package config

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	NATSURL     string // RELAY_NATS_URL (required)
	WSAddr      string // RELAY_WS_ADDR (default ":8081")
	DatabaseURL string // RELAY_DATABASE_URL (optional, empty = records not persisted)

	HeartbeatInterval time.Duration // RELAY_HEARTBEAT_INTERVAL (default 5s)
	LockDir           string        // RELAY_LOCK_DIR (default os.TempDir())

	// Push settings
	APNSCert    string // RELAY_APNS_CERT (PEM path; empty = push delivery disabled)
	APNSTopic   string // RELAY_APNS_TOPIC (bundle id)
	APNSSandbox bool   // RELAY_APNS_SANDBOX (any non-empty value = development endpoint)

	LocaleFile    string // RELAY_LOCALE_FILE (optional, empty = embedded table)
	DirectoryFile string // RELAY_DIRECTORY_FILE (optional roster path, empty = empty directory)
}

func Load() (*Config, error) {
	c := &Config{
		NATSURL:       os.Getenv("RELAY_NATS_URL"),
		WSAddr:        envOrDefault("RELAY_WS_ADDR", ":8081"),
		DatabaseURL:   os.Getenv("RELAY_DATABASE_URL"),
		LockDir:       envOrDefault("RELAY_LOCK_DIR", os.TempDir()),
		APNSCert:      os.Getenv("RELAY_APNS_CERT"),
		APNSTopic:     os.Getenv("RELAY_APNS_TOPIC"),
		APNSSandbox:   os.Getenv("RELAY_APNS_SANDBOX") != "",
		LocaleFile:    os.Getenv("RELAY_LOCALE_FILE"),
		DirectoryFile: os.Getenv("RELAY_DIRECTORY_FILE"),
	}
	if c.NATSURL == "" {
		return nil, fmt.Errorf("RELAY_NATS_URL is required")
	}

	intervalStr := envOrDefault("RELAY_HEARTBEAT_INTERVAL", "5s")
	d, err := time.ParseDuration(intervalStr)
	if err != nil {
		return nil, fmt.Errorf("RELAY_HEARTBEAT_INTERVAL: %w", err)
	}
	if d <= 0 {
		return nil, fmt.Errorf("RELAY_HEARTBEAT_INTERVAL must be positive, got %s", intervalStr)
	}
	c.HeartbeatInterval = d

	return c, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
