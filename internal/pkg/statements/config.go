package statements

import (
	"errors"
	"fmt"

	"github.com/ManuelReschke/CreatorPay/internal/pkg/env"
)

// Config holds the object storage settings for statement exports.
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string // Optional for S3-compatible services
	Prefix          string
	Enabled         bool
}

// LoadConfig loads S3 configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
		Region:          env.GetEnv("S3_REGION", "eu-central-1"),
		BucketName:      env.GetEnv("S3_BUCKET_NAME", ""),
		EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
		Prefix:          env.GetEnv("S3_STATEMENT_PREFIX", "statements"),
		Enabled:         env.GetEnv("S3_STATEMENTS_ENABLED", "false") == "true",
	}

	if cfg.Enabled {
		if cfg.AccessKeyID == "" {
			return nil, errors.New("S3_ACCESS_KEY_ID is required when statement export is enabled")
		}
		if cfg.SecretAccessKey == "" {
			return nil, errors.New("S3_SECRET_ACCESS_KEY is required when statement export is enabled")
		}
		if cfg.BucketName == "" {
			return nil, errors.New("S3_BUCKET_NAME is required when statement export is enabled")
		}
	}

	return cfg, nil
}

// ObjectKey returns the key of a creator's monthly statement.
// Format: <prefix>/<creatorId>/<YYYY-MM>.csv
func (c *Config) ObjectKey(creatorID, month string) string {
	if c.Prefix == "" {
		return fmt.Sprintf("%s/%s.csv", creatorID, month)
	}
	return fmt.Sprintf("%s/%s/%s.csv", c.Prefix, creatorID, month)
}
