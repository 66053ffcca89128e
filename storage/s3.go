package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// S3Backend stores the sealed blob as a single object in Amazon S3 or a
// compatible service.
type S3Backend struct {
	client      *s3.S3
	bucketName  string
	objectKey   string
	log         *slog.Logger
	locationURI string
}

// NewS3Backend creates an S3 storage backend. If accessKey and secretKey
// are empty, credentials are resolved from the environment and shared
// config, which is the expected setup on provisioned hosts.
func NewS3Backend(bucketName, prefix, region, endpoint, accessKey, secretKey string, log *slog.Logger) (*S3Backend, error) {
	cfg := aws.Config{
		Region: aws.String(region),
	}
	if endpoint != "" {
		cfg.Endpoint = aws.String(endpoint)
		cfg.S3ForcePathStyle = aws.Bool(true)
	}
	if accessKey != "" && secretKey != "" {
		cfg.Credentials = credentials.NewStaticCredentials(accessKey, secretKey, "")
	}

	sess, err := session.NewSession(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	objectKey := "keystore.sealed"
	if prefix != "" {
		objectKey = path.Join(strings.Trim(prefix, "/"), objectKey)
	}

	uri := fmt.Sprintf("s3://%s/%s?region=%s", bucketName, objectKey, region)
	if endpoint != "" {
		uri += fmt.Sprintf("&endpoint=%s", endpoint)
	}

	return &S3Backend{
		client:      s3.New(sess),
		bucketName:  bucketName,
		objectKey:   objectKey,
		log:         log,
		locationURI: uri,
	}, nil
}

// Read retrieves the sealed blob object from S3.
// Returns ErrBlobNotFound if the object doesn't exist.
func (b *S3Backend) Read(ctx context.Context) ([]byte, error) {
	start := time.Now()

	result, err := b.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucketName),
		Key:    aws.String(b.objectKey),
	})
	if err != nil {
		if isS3NotFound(err) {
			b.log.Debug("Sealed blob not found in S3",
				slog.String("bucket", b.bucketName),
				slog.String("key", b.objectKey))
			return nil, ErrBlobNotFound
		}

		b.log.Error("Failed to get object from S3",
			slog.String("bucket", b.bucketName),
			slog.String("key", b.objectKey),
			"err", err)
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}

	b.log.Debug("Read sealed blob from S3",
		slog.String("bucket", b.bucketName),
		slog.String("key", b.objectKey),
		slog.Int("size", len(data)),
		slog.Duration("duration", time.Since(start)))

	return data, nil
}

// Write replaces the sealed blob object in S3. The object is written
// private; the blob only ever contains passphrase-sealed ciphertext, but
// there is no reason to expose it.
func (b *S3Backend) Write(ctx context.Context, data []byte) error {
	_, err := b.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucketName),
		Key:    aws.String(b.objectKey),
		Body:   bytes.NewReader(data),
		ACL:    aws.String("private"),
	})
	if err != nil {
		b.log.Error("Failed to upload object to S3",
			slog.String("bucket", b.bucketName),
			slog.String("key", b.objectKey),
			"err", err)
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	b.log.Debug("Stored sealed blob in S3",
		slog.String("bucket", b.bucketName),
		slog.String("key", b.objectKey),
		slog.Int("size", len(data)))

	return nil
}

// Exists reports whether the sealed blob object is present.
func (b *S3Backend) Exists(ctx context.Context) (bool, error) {
	_, err := b.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucketName),
		Key:    aws.String(b.objectKey),
	})
	if err != nil {
		if isS3NotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return true, nil
}

// Available checks if the S3 backend is accessible by attempting to head the bucket.
func (b *S3Backend) Available(ctx context.Context) bool {
	_, err := b.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(b.bucketName),
	})
	if err != nil {
		b.log.Warn("S3 backend unavailable",
			slog.String("bucket", b.bucketName),
			"err", err)
		return false
	}
	return true
}

// Name returns a unique identifier for this storage backend.
func (b *S3Backend) Name() string {
	return fmt.Sprintf("s3-%s", b.bucketName)
}

// LocationURI returns the URI that identifies this storage backend.
func (b *S3Backend) LocationURI() string {
	return b.locationURI
}

// isS3NotFound matches the error shapes S3 returns for a missing object.
func isS3NotFound(err error) bool {
	if aerr, ok := err.(awserr.Error); ok {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return true
		}
	}
	return strings.Contains(err.Error(), "NoSuchKey") || strings.Contains(err.Error(), "404")
}
