package config

import (
	"fmt"
	"reflect"
	"strings"

	"schema-manager/core/database"
	"schema-manager/core/logger"
	"schema-manager/core/pocketbase"
	"schema-manager/core/schema"
	"schema-manager/core/server"
	"schema-manager/core/storage"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// It is divided into partial configurations for better modularity.
type Config struct {
	// Server holds configuration for the HTTP server.
	Server server.Config `mapstructure:"server"`
	// PocketBase holds configuration for the remote instance being reconciled.
	PocketBase pocketbase.Config `mapstructure:"pocketbase"`
	// Schema holds definition paths and reconcile settings.
	Schema schema.Config `mapstructure:"schema"`
	// Storage holds configuration for snapshot object storage (e.g., S3, Minio).
	Storage storage.Config `mapstructure:"storage"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Database holds configuration for the run history database.
	Database database.Config `mapstructure:"database"`
}

// envAliases lists extra environment variable names per key, checked in order.
var envAliases = map[string][]string{
	"pocketbase.url":            {"POCKETBASE_URL", "PUBLIC_POCKETBASE_URL"},
	"pocketbase.admin_email":    {"POCKETBASE_ADMIN_EMAIL", "PB_ADMIN_EMAIL"},
	"pocketbase.admin_password": {"POCKETBASE_ADMIN_PASSWORD", "PB_ADMIN_PASSWORD"},
	"schema.webhook_secret":     {"SCHEMA_WEBHOOK_SECRET", "WEBHOOK_SECRET", "PB_WEBHOOK_SECRET"},
}

// LoadConfig loads configuration from environment variables and .env file.
func LoadConfig(path string) (*Config, error) {
	envPath := path + "/.env"
	if path == "." {
		envPath = ".env"
	}

	// Ignore error if file doesn't exist (e.g. production)
	_ = godotenv.Overload(envPath)

	v := viper.New()

	// Recursively parse struct tags to set default values
	bindValues(v, Config{}, "")

	// Map environment variables to nested keys (e.g. POCKETBASE_URL -> pocketbase.url)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Names shared with the site's own .env take part as aliases.
	for key, names := range envAliases {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks values that would otherwise fail late, mid-run.
func (c *Config) Validate() error {
	if c.PocketBase.URL == "" {
		return fmt.Errorf("pocketbase.url is required")
	}
	if c.Database.Enabled && !c.Database.IsValidDriver() {
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	return nil
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	// If it's a pointer, get the element
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")

		// Skip if no tag
		if tag == "" {
			continue
		}

		// Build the key
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		// If it's a nested struct, recurse
		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		defaultValue := field.Tag.Get("default")
		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, defaultValue)
	}
}
