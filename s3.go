package delay

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type (
	// S3Store persists the Archive as a JSONL object in an S3-compatible
	// bucket
	S3Store struct {
		client S3API
		bucket string
		key    string
	}

	// S3API is the subset of the S3 client used by S3Store
	S3API interface {
		PutObject(
			context.Context, *s3.PutObjectInput, ...func(*s3.Options),
		) (*s3.PutObjectOutput, error)
		GetObject(
			context.Context, *s3.GetObjectInput, ...func(*s3.Options),
		) (*s3.GetObjectOutput, error)
	}
)

const jsonlContentType = "application/x-ndjson"

var _ Store = (*S3Store)(nil)

// NewS3Store creates an S3Store using the default AWS credential chain. If
// an endpoint is configured, path-style addressing is enabled (for MinIO and
// similar)
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, opts...)
	return NewS3StoreWithClient(client, cfg.Bucket, cfg.Key), nil
}

// NewS3StoreWithClient creates an S3Store around an existing client
func NewS3StoreWithClient(client S3API, bucket, key string) *S3Store {
	if key == "" {
		key = DefaultS3Key
	}
	return &S3Store{
		client: client,
		bucket: bucket,
		key:    key,
	}
}

// Save uploads the Archive, replacing the previous object
func (s *S3Store) Save(ctx context.Context, a *Archive) error {
	var buf bytes.Buffer
	if err := WriteJSONL(&buf, a); err != nil {
		return err
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String(jsonlContentType),
	})
	if err != nil {
		return fmt.Errorf("s3 put object: %w", err)
	}
	return nil
}

// Load downloads the Archive, returning an empty one if the object does not
// exist
func (s *S3Store) Load(ctx context.Context) (*Archive, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			return emptyArchive(), nil
		}
		return nil, fmt.Errorf("s3 get object: %w", err)
	}
	defer func() { _ = out.Body.Close() }()

	return ReadJSONL(out.Body)
}

func (s *S3Store) Close() error {
	return nil
}
