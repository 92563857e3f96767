package files

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	apperrors "allocdash/internal/errors"
)

const s3Scheme = "s3://"

// ObjectGetter is the subset of the S3 client used to fetch workbooks
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads workbooks stored in S3
type S3Source struct {
	client ObjectGetter
}

// NewS3Source wraps an existing client
func NewS3Source(client ObjectGetter) *S3Source {
	return &S3Source{client: client}
}

// NewS3SourceFromEnv builds a client from the default AWS credential chain
func NewS3SourceFromEnv(ctx context.Context, region string) (*S3Source, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, apperrors.NewConfigError("failed to load AWS configuration", err)
	}
	return NewS3Source(s3.NewFromConfig(cfg)), nil
}

// Open implements Source
func (s *S3Source) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	bucket, key, err := ParseS3Location(location)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("workbook %s", location)).
				WithContext("location", location)
		}
		return nil, apperrors.NewStorageError(fmt.Sprintf("failed to fetch %s", location), err)
	}
	return out.Body, nil
}

// ParseS3Location splits s3://bucket/key into bucket and key
func ParseS3Location(location string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(location, s3Scheme)
	if !ok {
		return "", "", apperrors.NewAppValidationError(fmt.Sprintf("not an s3 location: %q", location))
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", apperrors.NewAppValidationError(fmt.Sprintf("s3 location needs bucket and key: %q", location))
	}
	return bucket, key, nil
}
