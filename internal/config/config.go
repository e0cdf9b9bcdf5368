package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port         int    `yaml:"port"`
	LogLevel     string `yaml:"log_level"`
	Marker       string `yaml:"marker"`
	OutputDir    string `yaml:"output_dir"`
	MaxUploadMB  int    `yaml:"max_upload_mb"`
	GCSBucket    string `yaml:"gcs_bucket"`
	NatsURL      string `yaml:"nats_url"`
	NatsToken    string `yaml:"nats_token"`
	SlackToken   string `yaml:"slack_bot_token"`
	SlackChannel string `yaml:"slack_channel"`
}

func Load() Config {
	return Config{
		Port:         envInt("HAR2CSV_PORT", 8760),
		LogLevel:     envStr("LOG_LEVEL", "info"),
		Marker:       envStr("HAR2CSV_MARKER", "orderSearch"),
		OutputDir:    envStr("HAR2CSV_OUTPUT_DIR", "."),
		MaxUploadMB:  envInt("HAR2CSV_MAX_UPLOAD_MB", 64),
		GCSBucket:    envStr("HAR2CSV_GCS_BUCKET", ""),
		NatsURL:      envStr("NATS_URL", ""),
		NatsToken:    envStr("NATS_TOKEN", ""),
		SlackToken:   envStr("SLACK_BOT_TOKEN", ""),
		SlackChannel: envStr("SLACK_CHANNEL", ""),
	}
}

// LoadFile reads the environment and then overlays every non-empty value set
// in the YAML file at path.
func LoadFile(path string) (Config, error) {
	cfg := Load()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	cfg.merge(file)
	return cfg, nil
}

// MaxUploadBytes is the upload limit in bytes.
func (c Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

func (c *Config) merge(o Config) {
	if o.Port != 0 {
		c.Port = o.Port
	}
	if o.MaxUploadMB != 0 {
		c.MaxUploadMB = o.MaxUploadMB
	}
	overlay(&c.LogLevel, o.LogLevel)
	overlay(&c.Marker, o.Marker)
	overlay(&c.OutputDir, o.OutputDir)
	overlay(&c.GCSBucket, o.GCSBucket)
	overlay(&c.NatsURL, o.NatsURL)
	overlay(&c.NatsToken, o.NatsToken)
	overlay(&c.SlackToken, o.SlackToken)
	overlay(&c.SlackChannel, o.SlackChannel)
}

func overlay(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
