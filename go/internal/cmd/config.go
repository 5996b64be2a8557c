package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig holds the service tunables. Every field has an env override so a
// config file is optional in development.
type AppConfig struct {
	Port string `yaml:"port"`

	Draft struct {
		DriftToleranceMs int   `yaml:"drift_tolerance_ms"`
		LockTTLSec       int   `yaml:"lock_ttl_sec"`
		SchedulerBatch   int32 `yaml:"scheduler_batch"`
	} `yaml:"draft"`

	NATS struct {
		URL string `yaml:"url"`
	} `yaml:"nats"`
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func loadConfig() (*AppConfig, error) {
	var config AppConfig

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if config.Port == "" {
		config.Port = getEnv("PORT", "8080")
	}
	if config.Draft.DriftToleranceMs == 0 {
		config.Draft.DriftToleranceMs = getEnvAsInt("DRIFT_TOLERANCE_MS", 3000)
	}
	if config.Draft.LockTTLSec == 0 {
		config.Draft.LockTTLSec = getEnvAsInt("LOCK_TTL_SEC", 3)
	}
	if config.Draft.SchedulerBatch == 0 {
		config.Draft.SchedulerBatch = int32(getEnvAsInt("SCHEDULER_BATCH", 50))
	}
	if config.NATS.URL == "" {
		config.NATS.URL = getEnv("NATS_URL", "nats://localhost:4222")
	}
	return &config, nil
}

func (c *AppConfig) DriftTolerance() time.Duration {
	return time.Duration(c.Draft.DriftToleranceMs) * time.Millisecond
}

func (c *AppConfig) LockTTL() time.Duration {
	return time.Duration(c.Draft.LockTTLSec) * time.Second
}
