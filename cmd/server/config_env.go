package main

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/tendant/simple-letters/pkg/letters/config"
)

// envConfig is the flat environment surface of the executable. The library
// keeps its structured ServerConfig; mapping between the two happens here so
// environment-specific logic stays out of the library.
type envConfig struct {
	Port        string `env:"PORT" env-default:"8080"`
	Environment string `env:"ENVIRONMENT" env-default:"development"`

	DatabaseURL  string `env:"DATABASE_URL" env-default:""`
	DatabaseType string `env:"DATABASE_TYPE" env-default:"memory"`
	DBSchema     string `env:"LETTERS_DB_SCHEMA" env-default:"letters"`

	AuthServiceURL     string `env:"AUTH_SERVICE_URL" env-default:"http://auth-service:8001/api/auth"`
	AuthTimeoutSeconds int    `env:"AUTH_TIMEOUT_SECONDS" env-default:"5"`

	StorageType       string `env:"STORAGE_TYPE" env-default:"memory"`
	S3Region          string `env:"S3_REGION" env-default:"us-east-1"`
	S3Bucket          string `env:"S3_BUCKET" env-default:""`
	S3AccessKeyID     string `env:"AWS_ACCESS_KEY_ID" env-default:""`
	S3SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" env-default:""`
	S3Endpoint        string `env:"S3_ENDPOINT" env-default:""`
	S3UsePathStyle    bool   `env:"S3_USE_PATH_STYLE" env-default:"false"`
	S3PresignSeconds  int    `env:"S3_PRESIGN_SECONDS" env-default:"3600"`
	S3TimeoutSeconds  int    `env:"S3_TIMEOUT_SECONDS" env-default:"10"`

	PublisherType string `env:"PUBLISHER_TYPE" env-default:"noop"`
	RedisAddr     string `env:"REDIS_ADDR" env-default:""`
	RedisPassword string `env:"REDIS_PASSWORD" env-default:""`
	RedisDB       int    `env:"REDIS_DB" env-default:"0"`
	RedisChannel  string `env:"REDIS_CHANNEL" env-default:"letters.submitted"`
	RedisTimeout  int    `env:"REDIS_TIMEOUT_SECONDS" env-default:"5"`
}

// loadServerConfigFromEnv constructs a ServerConfig by reading process
// environment variables.
func loadServerConfigFromEnv() (*config.ServerConfig, error) {
	var ec envConfig
	if err := cleanenv.ReadEnv(&ec); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	cfg := config.Default()
	cfg.Port = ec.Port
	cfg.Environment = ec.Environment
	cfg.DatabaseURL = ec.DatabaseURL
	cfg.DatabaseType = ec.DatabaseType
	cfg.DBSchema = ec.DBSchema
	cfg.AuthBaseURL = ec.AuthServiceURL
	cfg.AuthTimeout = time.Duration(ec.AuthTimeoutSeconds) * time.Second
	cfg.Storage = config.StorageConfig{
		Type:              ec.StorageType,
		S3Region:          ec.S3Region,
		S3Bucket:          ec.S3Bucket,
		S3AccessKeyID:     ec.S3AccessKeyID,
		S3SecretAccessKey: ec.S3SecretAccessKey,
		S3Endpoint:        ec.S3Endpoint,
		S3UsePathStyle:    ec.S3UsePathStyle,
		S3PresignSeconds:  ec.S3PresignSeconds,
		S3TimeoutSeconds:  ec.S3TimeoutSeconds,
	}
	cfg.Publisher = config.PublisherConfig{
		Type:          ec.PublisherType,
		RedisAddr:     ec.RedisAddr,
		RedisPassword: ec.RedisPassword,
		RedisDB:       ec.RedisDB,
		RedisChannel:  ec.RedisChannel,
		RedisTimeout:  time.Duration(ec.RedisTimeout) * time.Second,
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}
