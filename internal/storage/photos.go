// Package storage stores profile photos in S3 (or an S3-compatible service).
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"

	"github.com/pageza/fitcheck/backend/config"
	"github.com/pageza/fitcheck/backend/internal/logging"
)

// ErrForeignURL is returned for URLs that do not point into the configured bucket
var ErrForeignURL = errors.New("url is not managed by this photo store")

// S3PhotoStore puts, deletes and presigns photo objects
type S3PhotoStore struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	baseURL string
	log     logrus.FieldLogger
}

// NewS3PhotoStore creates a store on top of an initialized S3 client
func NewS3PhotoStore(s3Config *config.S3Config, logger logrus.FieldLogger) *S3PhotoStore {
	return &S3PhotoStore{
		client:  s3Config.Client,
		presign: s3.NewPresignClient(s3Config.Client),
		bucket:  s3Config.BucketName,
		baseURL: strings.TrimRight(s3Config.PublicBaseURL, "/"),
		log:     logging.Component(logger, "photo-store"),
	}
}

// Put uploads data under key and returns its public URL
func (s *S3PhotoStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	url := s.URLFor(key)
	s.log.WithFields(logrus.Fields{"key": key, "bytes": len(data)}).Info("uploaded photo")
	return url, nil
}

// Delete removes the object behind a URL returned by Put
func (s *S3PhotoStore) Delete(ctx context.Context, url string) error {
	key, err := s.KeyFor(url)
	if err != nil {
		return err
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s from S3: %w", key, err)
	}

	s.log.WithField("key", key).Info("deleted photo")
	return nil
}

// PresignGet returns a temporary download URL for the object behind url
func (s *S3PhotoStore) PresignGet(ctx context.Context, url string, ttl time.Duration) (string, error) {
	key, err := s.KeyFor(url)
	if err != nil {
		return "", err
	}

	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", key, err)
	}
	return req.URL, nil
}

// URLFor returns the public URL of key
func (s *S3PhotoStore) URLFor(key string) string {
	return s.baseURL + "/" + strings.TrimLeft(key, "/")
}

// KeyFor extracts the object key from a URL produced by URLFor
func (s *S3PhotoStore) KeyFor(url string) (string, error) {
	prefix := s.baseURL + "/"
	if !strings.HasPrefix(url, prefix) || len(url) == len(prefix) {
		return "", ErrForeignURL
	}
	return strings.TrimPrefix(url, prefix), nil
}
