package export

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Sink stores exported files. key is slash-separated and relative, e.g.
// "products/42/index.html".
type Sink interface {
	Write(ctx context.Context, key, contentType string, body []byte) error
}

// DirSink writes files under a directory.
type DirSink struct {
	Root string
}

// NewDirSink creates a sink rooted at dir.
func NewDirSink(dir string) *DirSink {
	return &DirSink{Root: dir}
}

// Write stores body at Root/key, creating parent directories.
func (d *DirSink) Write(_ context.Context, key, _ string, body []byte) error {
	name := filepath.Join(d.Root, filepath.FromSlash(key))
	if rel, err := filepath.Rel(d.Root, name); err != nil || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("export: key %q escapes %s", key, d.Root)
	}
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if err := os.WriteFile(name, body, 0o644); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return nil
}

// PutObjectAPI is the part of *s3.Client the S3 sink uses.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink uploads files to a bucket.
//
//	client := s3.NewFromConfig(cfg)
//	sink := export.NewS3Sink(client, "my-site", "v42/")
type S3Sink struct {
	client       PutObjectAPI
	bucket       string
	prefix       string
	cacheControl string
}

// NewS3Sink creates a sink that writes bucket/prefix+key.
func NewS3Sink(client PutObjectAPI, bucket, prefix string) *S3Sink {
	return &S3Sink{
		client:       client,
		bucket:       bucket,
		prefix:       prefix,
		cacheControl: "public, max-age=0, must-revalidate",
	}
}

// WithCacheControl sets the Cache-Control stored on each object.
func (s *S3Sink) WithCacheControl(v string) *S3Sink {
	s.cacheControl = v
	return s
}

// Write uploads body.
func (s *S3Sink) Write(ctx context.Context, key, contentType string, body []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(s.prefix + key),
		Body:         bytes.NewReader(body),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String(s.cacheControl),
	})
	if err != nil {
		return fmt.Errorf("export: s3 put %s: %w", key, err)
	}
	return nil
}
