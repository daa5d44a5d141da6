package statements

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gofiber/fiber/v2/log"
)

// ObjectPutter is the subset of the S3 API the uploader needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader stores statements in a bucket.
type S3Uploader struct {
	client ObjectPutter
	bucket string
}

// NewS3Client builds an S3 client from cfg.
func NewS3Client(ctx context.Context, cfg *Config) (*s3.Client, error) {
	awsConfig, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			// S3-compatible stores (MinIO, B2) expect path-style URLs
			o.UsePathStyle = true
		}
	}), nil
}

func NewS3Uploader(client ObjectPutter, bucket string) *S3Uploader {
	return &S3Uploader{client: client, bucket: bucket}
}

// Upload writes data to key and returns the s3:// location.
func (u *S3Uploader) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
		Metadata: map[string]string{
			"upload-source": "creatorpay-statements",
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	location := fmt.Sprintf("s3://%s/%s", u.bucket, key)
	log.Infof("[Statements] Uploaded %s (%d bytes)", location, len(data))
	return location, nil
}
