package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"taller-backend/billing"
	"taller-backend/models"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultJWTSecret = "change-this-jwt-secret-in-production"

// GetConfig read the configuration from environment variables or config files
func GetConfig() (*models.Config, error) {
	config, err := Load()
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	return config, nil
}

// Load builds the configuration from defaults, an optional config.json, a .env file and
// the environment, in increasing priority.
func Load() (*models.Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../")

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if v.IsSet("app") {
		flattenNestedConfig(v)
	}

	var config models.Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Application defaults
	v.SetDefault("app_name", "Taller Backend")
	v.SetDefault("app_version", "1.0.0")
	v.SetDefault("app_env", "development")
	v.SetDefault("app_host", "0.0.0.0")
	v.SetDefault("app_port", "8081")

	// JWT defaults
	v.SetDefault("jwt_secret", defaultJWTSecret)
	v.SetDefault("jwt_expires_in", 8*time.Hour)

	// AWS defaults
	v.SetDefault("aws_region", "us-east-1")
	v.SetDefault("aws_access_key_id", "")
	v.SetDefault("aws_secret_access_key", "")
	v.SetDefault("dynamodb_endpoint", "")
	v.SetDefault("dynamodb_table_prefix", "dev")

	// Photo storage
	v.SetDefault("minio_endpoint", "localhost:9000")
	v.SetDefault("minio_access_key", "")
	v.SetDefault("minio_secret_key", "")
	v.SetDefault("minio_bucket", "service-photos")
	v.SetDefault("minio_use_ssl", false)
	v.SetDefault("minio_presign_expiry", 15*time.Minute)

	// Workshop rules
	v.SetDefault("tax_rate", billing.DefaultTaxRate)
	v.SetDefault("max_photos_per_service", 15)
	v.SetDefault("image_transfer_timeout", 30*time.Second)

	// Tracing
	v.SetDefault("otlp_endpoint", "")
	v.SetDefault("otel_service_name", "")

	// Logging defaults
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")

	// CORS defaults
	v.SetDefault("cors_origins", []string{"*"})

	// Base Path default
	v.SetDefault("basePath", "/api/v1")

	// Orphan reaper
	v.SetDefault("orphan_reaper_schedule", "0 */10 * * * *")
	v.SetDefault("orphan_reaper_max_attempts", 5)
	v.SetDefault("orphan_reaper_lock_path", "")

	// Empty means every table in the schema
	v.SetDefault("tables", []string{})
}

// validate checks if all required configuration is provided
func validate(c *models.Config) error {
	if c.JWTSecret == defaultJWTSecret && c.AppEnv == "production" {
		return fmt.Errorf("JWT_SECRET must be set in production environment")
	}
	if c.TaxRate < 0 || c.TaxRate >= 1 {
		return fmt.Errorf("tax_rate must be in [0, 1), got %v", c.TaxRate)
	}
	if c.MaxPhotosPerService <= 0 {
		return fmt.Errorf("max_photos_per_service must be positive, got %d", c.MaxPhotosPerService)
	}
	if c.OrphanReaperMaxAttempts < 1 {
		return fmt.Errorf("orphan_reaper_max_attempts must be at least 1")
	}
	return nil
}

// flattenNestedConfig flattens the nested JSON structure to flat keys for easier mapping
func flattenNestedConfig(v *viper.Viper) {
	nested := map[string]string{
		"app.name":                  "app_name",
		"app.version":               "app_version",
		"app.env":                   "app_env",
		"app.host":                  "app_host",
		"app.port":                  "app_port",
		"jwt.secret":                "jwt_secret",
		"jwt.expires_in":            "jwt_expires_in",
		"aws.region":                "aws_region",
		"aws.access_key_id":         "aws_access_key_id",
		"aws.secret_access_key":     "aws_secret_access_key",
		"aws.dynamodb_endpoint":     "dynamodb_endpoint",
		"aws.dynamodb_table_prefix": "dynamodb_table_prefix",
		"minio.endpoint":            "minio_endpoint",
		"minio.access_key":          "minio_access_key",
		"minio.secret_key":          "minio_secret_key",
		"minio.bucket":              "minio_bucket",
		"minio.use_ssl":             "minio_use_ssl",
		"minio.presign_expiry":      "minio_presign_expiry",
		"workshop.tax_rate":         "tax_rate",
		"workshop.max_photos":       "max_photos_per_service",
		"logging.level":             "log_level",
		"logging.format":            "log_format",
		"cors.origins":              "cors_origins",
		"tracing.otlp_endpoint":     "otlp_endpoint",
		"reaper.schedule":           "orphan_reaper_schedule",
		"reaper.max_attempts":       "orphan_reaper_max_attempts",
		"reaper.lock_path":          "orphan_reaper_lock_path",
	}
	for from, to := range nested {
		if v.IsSet(from) {
			v.Set(to, v.Get(from))
		}
	}
}

// PrintPrettyJSON takes any struct or map and prints it as pretty JSON
func PrintPrettyJSON(data interface{}) string {
	prettyJSON, err := json.MarshalIndent(data, "", "    ")
	if err != nil {
		return ""
	}
	return string(prettyJSON)
}

// GenerateUUID returns a new UUID string
func GenerateUUID() string {
	return uuid.New().String()
}
