package core

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jo-hoe/agerestore/internal/backend/commandstructure"
	"gopkg.in/yaml.v3"
)

// CommandConfig represents one configured photo pipeline step
type CommandConfig struct {
	Name   string         `yaml:"name"`
	Params map[string]any `yaml:",inline"`
}

type Database struct {
	Type             string `yaml:"type"`
	ConnectionString string `yaml:"connectionString"`
}

// Redis configures the optional upload guard; an empty address disables it
type Redis struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	LockTTL  time.Duration `yaml:"lockTTL"`
}

type Auth struct {
	JWTSecret string `yaml:"jwtSecret"`
}

type RateLimit struct {
	RequestsPerSecond float64 `yaml:"requestsPerSecond"`
	Burst             int     `yaml:"burst"`
}

type ServiceConfig struct {
	Port            int             `yaml:"port"`
	Database        Database        `yaml:"database"`
	Redis           Redis           `yaml:"redis"`
	Auth            Auth            `yaml:"auth"`
	Admins          []string        `yaml:"admins"`
	DefaultTimezone string          `yaml:"defaultTimezone"`
	MaxUploadBytes  int64           `yaml:"maxUploadBytes"`
	MaxPhotoBytes   int             `yaml:"maxPhotoBytes"`
	ThumbnailWidth  int             `yaml:"thumbnailWidth"`
	RateLimit       RateLimit       `yaml:"rateLimit"`
	PhotoPipeline   []CommandConfig `yaml:"photoPipeline"`
	AvatarPipeline  []CommandConfig `yaml:"avatarPipeline"`
}

// DefaultPhotoPipeline decodes any supported format, fits it into 800x800
// and compresses it to at most 0.5 MB.
func DefaultPhotoPipeline() []CommandConfig {
	return []CommandConfig{
		{Name: "NormalizeCommand", Params: map[string]any{"maxPixels": 40_000_000}},
		{Name: "FitCommand", Params: map[string]any{"maxWidth": 800, "maxHeight": 800}},
		{Name: "JpegCompressCommand", Params: map[string]any{"quality": 80, "maxBytes": 512 * 1024}},
	}
}

// DefaultAvatarPipeline fits avatars into 400x400 under the same size cap
func DefaultAvatarPipeline() []CommandConfig {
	return []CommandConfig{
		{Name: "NormalizeCommand", Params: map[string]any{"maxPixels": 40_000_000}},
		{Name: "FitCommand", Params: map[string]any{"maxWidth": 400, "maxHeight": 400}},
		{Name: "JpegCompressCommand", Params: map[string]any{"quality": 80, "maxBytes": 512 * 1024}},
	}
}

// LoadConfig loads configuration from the specified YAML file and applies
// environment overrides for secrets
func LoadConfig(configPath string) (*ServiceConfig, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	var config ServiceConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	config.applyEnv(os.Getenv)
	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", configPath, err)
	}
	return &config, nil
}

func (c *ServiceConfig) applyEnv(getenv func(string) string) {
	if v := getenv("AUTH_JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := getenv("ADMIN_EMAILS"); v != "" {
		c.Admins = nil
		for _, email := range strings.Split(v, ",") {
			if email = strings.TrimSpace(email); email != "" {
				c.Admins = append(c.Admins, email)
			}
		}
	}
}

func (c *ServiceConfig) applyDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.Database.Type == "" {
		c.Database.Type = "sqlite"
	}
	if c.Database.ConnectionString == "" {
		c.Database.ConnectionString = "agerestore.db"
	}
	if c.DefaultTimezone == "" {
		c.DefaultTimezone = "UTC"
	}
	if c.MaxUploadBytes == 0 {
		c.MaxUploadBytes = 20 * 1024 * 1024
	}
	if c.MaxPhotoBytes == 0 {
		c.MaxPhotoBytes = 1024 * 1024
	}
	if c.ThumbnailWidth == 0 {
		c.ThumbnailWidth = 240
	}
	if c.Redis.LockTTL == 0 {
		c.Redis.LockTTL = 30 * time.Second
	}
	if c.RateLimit.RequestsPerSecond == 0 {
		c.RateLimit.RequestsPerSecond = 1
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 5
	}
	if len(c.PhotoPipeline) == 0 {
		c.PhotoPipeline = DefaultPhotoPipeline()
	}
	if len(c.AvatarPipeline) == 0 {
		c.AvatarPipeline = DefaultAvatarPipeline()
	}
}

// Validate checks the loaded configuration
func (c *ServiceConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.Database.Type != "sqlite" {
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}
	if _, err := time.LoadLocation(c.DefaultTimezone); err != nil {
		return fmt.Errorf("invalid default timezone %q: %w", c.DefaultTimezone, err)
	}
	if len(NewAdminSet(c.Admins).Emails()) == 0 {
		return fmt.Errorf("at least one admin email must be configured")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwtSecret (or AUTH_JWT_SECRET) must be set")
	}
	if c.MaxPhotoBytes <= 0 || c.ThumbnailWidth <= 0 {
		return fmt.Errorf("maxPhotoBytes and thumbnailWidth must be positive")
	}
	if err := validateCommands(c.PhotoPipeline); err != nil {
		return fmt.Errorf("invalid photo pipeline: %w", err)
	}
	if err := validateCommands(c.AvatarPipeline); err != nil {
		return fmt.Errorf("invalid avatar pipeline: %w", err)
	}
	return nil
}

// validateCommands ensures all command configurations have required fields
func validateCommands(commands []CommandConfig) error {
	seenNames := make(map[string]bool)

	for i, cmd := range commands {
		if cmd.Name == "" {
			return fmt.Errorf("command at index %d has empty name", i)
		}
		if seenNames[cmd.Name] {
			return fmt.Errorf("duplicate command name: %s", cmd.Name)
		}
		seenNames[cmd.Name] = true
	}

	return nil
}

func toCommandConfigs(commands []CommandConfig) []commandstructure.CommandConfig {
	out := make([]commandstructure.CommandConfig, 0, len(commands))
	for _, cmd := range commands {
		out = append(out, commandstructure.CommandConfig{Name: cmd.Name, Params: cmd.Params})
	}
	return out
}
