package attachment

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/denttrack/denttrack/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PutObjectAPI is the part of the S3 client used for uploads.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config configures the S3 store.
type S3Config struct {
	Bucket string
	Prefix string
	// Endpoint overrides the AWS endpoint, for MinIO and similar.
	Endpoint  string
	PathStyle bool
}

// S3 uploads attachments to an S3 bucket and returns s3:// references.
type S3 struct {
	client PutObjectAPI
	bucket string
	prefix string
	logger *zap.Logger
}

// NewS3 builds a client from the default AWS configuration chain.
func NewS3(ctx context.Context, cfg S3Config, logger *zap.Logger) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("attachments.s3.bucket is required")
	}
	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	endpoint := awsCfg.BaseEndpoint
	if cfg.Endpoint != "" {
		endpoint = aws.String(cfg.Endpoint)
	}
	client := s3.New(s3.Options{
		Region:       awsCfg.Region,
		Credentials:  awsCfg.Credentials,
		HTTPClient:   awsCfg.HTTPClient,
		BaseEndpoint: endpoint,
		UsePathStyle: cfg.PathStyle,
	})
	return NewS3WithClient(client, cfg, logger), nil
}

// NewS3WithClient wraps an existing client.
func NewS3WithClient(client PutObjectAPI, cfg S3Config, logger *zap.Logger) *S3 {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &S3{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		logger: logger,
	}
}

// Put uploads data under <prefix>/<uuid>/<name>.
func (s *S3) Put(ctx context.Context, name, contentType string, data []byte) (model.Attachment, error) {
	if err := check(data); err != nil {
		return model.Attachment{}, err
	}
	name = cleanName(name)
	id := uuid.NewString()
	key := path.Join(s.prefix, id, name)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(detect(contentType, data)),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return model.Attachment{}, fmt.Errorf("failed to upload %s: %w", key, err)
	}
	s.logger.Debug("uploaded attachment", zap.String("bucket", s.bucket), zap.String("key", key), zap.Int("bytes", len(data)))

	return model.Attachment{
		ID:   id,
		Name: name,
		URL:  "s3://" + s.bucket + "/" + key,
	}, nil
}
