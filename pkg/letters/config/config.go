package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-letters/pkg/letters"
	"github.com/tendant/simple-letters/pkg/letters/authsvc"
	redispub "github.com/tendant/simple-letters/pkg/letters/publish/redis"
	repomemory "github.com/tendant/simple-letters/pkg/letters/repo/memory"
	repopg "github.com/tendant/simple-letters/pkg/letters/repo/postgres"
	memorystorage "github.com/tendant/simple-letters/pkg/letters/storage/memory"
	s3storage "github.com/tendant/simple-letters/pkg/letters/storage/s3"
)

// ServerConfig represents server configuration for the letters service
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	// Database configuration
	DatabaseURL  string
	DatabaseType string // "memory", "postgres"
	DBSchema     string // Postgres schema to use (default: letters)

	// Identity service
	AuthBaseURL string
	AuthTimeout time.Duration

	// Blob storage for images
	Storage StorageConfig

	// Event publisher
	Publisher PublisherConfig
}

// StorageConfig represents configuration for the image blob store
type StorageConfig struct {
	Type string // "memory", "s3"

	// S3 options
	S3Region          string
	S3Bucket          string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Endpoint        string
	S3UsePathStyle    bool
	S3PresignSeconds  int
	S3TimeoutSeconds  int
}

// PublisherConfig represents configuration for the submitted-letter publisher
type PublisherConfig struct {
	Type string // "noop", "redis"

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisChannel  string
	RedisTimeout  time.Duration
}

// Default returns the development defaults: in-memory persistence and
// storage, no broker.
func Default() ServerConfig {
	return ServerConfig{
		Port:         "8080",
		Environment:  "development",
		DatabaseType: "memory",
		DBSchema:     "letters",
		AuthTimeout:  5 * time.Second,
		Storage:      StorageConfig{Type: "memory"},
		Publisher:    PublisherConfig{Type: "noop"},
	}
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	if c.DatabaseType != "memory" && c.DatabaseType != "postgres" {
		return errors.New("database_type must be 'memory' or 'postgres'")
	}
	if c.DatabaseType == "postgres" && c.DatabaseURL == "" {
		return errors.New("database_url is required when using postgres")
	}

	if c.AuthBaseURL == "" {
		return errors.New("auth service base URL is required")
	}

	switch c.Storage.Type {
	case "memory":
	case "s3":
		if c.Storage.S3Bucket == "" {
			return errors.New("s3 bucket is required when using s3 storage")
		}
	default:
		return fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}

	switch c.Publisher.Type {
	case "noop":
	case "redis":
		if c.Publisher.RedisAddr == "" {
			return errors.New("redis address is required when using redis publisher")
		}
	default:
		return fmt.Errorf("unsupported publisher type: %s", c.Publisher.Type)
	}

	return nil
}

// BuildService creates a letters.Service instance from the server configuration
func (c *ServerConfig) BuildService(logger *slog.Logger) (letters.Service, error) {
	repo, err := c.buildRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to build repository: %w", err)
	}

	verifier, err := authsvc.New(authsvc.Config{
		BaseURL: c.AuthBaseURL,
		Timeout: c.AuthTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build auth client: %w", err)
	}

	store, err := c.buildBlobStore()
	if err != nil {
		return nil, fmt.Errorf("failed to build blob store: %w", err)
	}

	publisher, err := c.buildPublisher()
	if err != nil {
		return nil, fmt.Errorf("failed to build publisher: %w", err)
	}

	return letters.New(
		letters.WithRepository(repo),
		letters.WithAuthVerifier(verifier),
		letters.WithBlobStore(store),
		letters.WithEventPublisher(publisher),
		letters.WithLogger(logger),
	)
}

// buildRepository creates a Repository based on the configuration
func (c *ServerConfig) buildRepository() (letters.Repository, error) {
	switch c.DatabaseType {
	case "memory":
		return repomemory.New(), nil
	case "postgres":
		cfg, err := pgxpool.ParseConfig(c.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %w", err)
		}
		schema := c.DBSchema
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			if schema == "" {
				return nil
			}
			// set search_path for this session
			_, err := conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s", schema))
			return err
		}
		pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create pgx pool: %w", err)
		}
		return repopg.NewWithPool(pool), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}
}

func (c *ServerConfig) buildBlobStore() (letters.BlobStore, error) {
	switch c.Storage.Type {
	case "memory":
		return memorystorage.New(), nil
	case "s3":
		return s3storage.New(s3storage.Config{
			Region:          c.Storage.S3Region,
			Bucket:          c.Storage.S3Bucket,
			AccessKeyID:     c.Storage.S3AccessKeyID,
			SecretAccessKey: c.Storage.S3SecretAccessKey,
			Endpoint:        c.Storage.S3Endpoint,
			UsePathStyle:    c.Storage.S3UsePathStyle,
			PresignDuration: c.Storage.S3PresignSeconds,
			RequestTimeout:  c.Storage.S3TimeoutSeconds,
		})
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}
}

func (c *ServerConfig) buildPublisher() (letters.EventPublisher, error) {
	switch c.Publisher.Type {
	case "noop":
		return letters.NewNoopEventPublisher(), nil
	case "redis":
		return redispub.New(redispub.Config{
			Addr:     c.Publisher.RedisAddr,
			Password: c.Publisher.RedisPassword,
			DB:       c.Publisher.RedisDB,
			Channel:  c.Publisher.RedisChannel,
			Timeout:  c.Publisher.RedisTimeout,
		})
	default:
		return nil, fmt.Errorf("unsupported publisher type: %s", c.Publisher.Type)
	}
}

// PingPostgres verifies connectivity to Postgres and optionally sets
// search_path for the session. It fails if the schema (when provided) does
// not exist.
func PingPostgres(databaseURL, schema string) error {
	if databaseURL == "" {
		return errors.New("database_url is required")
	}
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return fmt.Errorf("failed to parse DATABASE_URL: %w", err)
	}
	if schema != "" {
		cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			_, err := conn.Exec(ctx, fmt.Sprintf("SET search_path TO %s", schema))
			return err
		}
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("failed to create pgx pool: %w", err)
	}
	defer pool.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}
