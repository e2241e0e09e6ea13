package models

import "time"

// Config holds all configuration for the application
type Config struct {
	// Application
	AppName    string `mapstructure:"app_name"`
	AppVersion string `mapstructure:"app_version"`
	AppEnv     string `mapstructure:"app_env"`
	AppHost    string `mapstructure:"app_host"`
	AppPort    string `mapstructure:"app_port"`

	// JWT
	JWTSecret    string        `mapstructure:"jwt_secret"`
	JWTExpiresIn time.Duration `mapstructure:"jwt_expires_in"`

	// AWS
	AWSRegion           string `mapstructure:"aws_region"`
	AWSAccessKeyID      string `mapstructure:"aws_access_key_id"`
	AWSSecretAccessKey  string `mapstructure:"aws_secret_access_key"`
	DynamoDBEndpoint    string `mapstructure:"dynamodb_endpoint"`
	DynamoDBTablePrefix string `mapstructure:"dynamodb_table_prefix"`

	// Object storage for service photos
	MinioEndpoint      string        `mapstructure:"minio_endpoint"`
	MinioAccessKey     string        `mapstructure:"minio_access_key"`
	MinioSecretKey     string        `mapstructure:"minio_secret_key"`
	MinioBucket        string        `mapstructure:"minio_bucket"`
	MinioUseSSL        bool          `mapstructure:"minio_use_ssl"`
	MinioPresignExpiry time.Duration `mapstructure:"minio_presign_expiry"`

	// Workshop rules
	TaxRate              float64       `mapstructure:"tax_rate"`
	MaxPhotosPerService  int           `mapstructure:"max_photos_per_service"`
	ImageTransferTimeout time.Duration `mapstructure:"image_transfer_timeout"`

	// Tracing
	OTLPEndpoint    string `mapstructure:"otlp_endpoint"`
	OTelServiceName string `mapstructure:"otel_service_name"`

	// Logging
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	// CORS
	CORSOrigins []string `mapstructure:"cors_origins"`

	// Base Path
	BasePath string `mapstructure:"basePath"`

	// Orphan reaper
	OrphanReaperSchedule    string `mapstructure:"orphan_reaper_schedule"`
	OrphanReaperMaxAttempts int    `mapstructure:"orphan_reaper_max_attempts"`
	OrphanReaperLockPath    string `mapstructure:"orphan_reaper_lock_path"`

	Tables []string `mapstructure:"tables"`
}

// TableName returns the prefixed DynamoDB table name for a base name
func (c *Config) TableName(base string) string {
	return c.DynamoDBTablePrefix + "_" + base
}
