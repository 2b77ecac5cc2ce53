package export

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3API is the subset of the S3 client the publisher uses.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Publisher publishes exported files to an S3 bucket.
//
// Example usage:
//
//	cfg, _ := config.LoadDefaultConfig(context.Background())
//	pub := export.NewS3Publisher(s3.NewFromConfig(cfg), "my-site", "v2/")
type S3Publisher struct {
	client s3API
	bucket string
	prefix string
}

// NewS3Publisher creates a publisher writing to bucket under the given key
// prefix.
func NewS3Publisher(client *s3.Client, bucket, prefix string) *S3Publisher {
	return newS3Publisher(client, bucket, prefix)
}

func newS3Publisher(client s3API, bucket, prefix string) *S3Publisher {
	return &S3Publisher{client: client, bucket: bucket, prefix: prefix}
}

// Publish implements Publisher.
func (p *S3Publisher) Publish(ctx context.Context, name string, data []byte) error {
	key := p.prefix + name

	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentTypeFor(name)),
	})
	if err != nil {
		return fmt.Errorf("s3 put %s: %w", key, err)
	}
	return nil
}

func contentTypeFor(name string) string {
	switch {
	case strings.HasSuffix(name, ".html"):
		return "text/html; charset=utf-8"
	case strings.HasSuffix(name, ".json"):
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
