package repository

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/imageforge/imageforge/internal/config"
	"github.com/imageforge/imageforge/internal/convert"
	"github.com/imageforge/imageforge/internal/jobs"
)

type storageRepo struct {
	client        *s3.Client
	presignClient *s3.PresignClient
	cfg           *config.Config
}

func NewStorageRepository(client *s3.Client, presignClient *s3.PresignClient, cfg *config.Config) jobs.StorageRepository {
	return &storageRepo{client: client, presignClient: presignClient, cfg: cfg}
}

func (s *storageRepo) PutObject(ctx context.Context, key string, contentType string, body []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.S3.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return convert.StorageErr("uploading "+key, err)
	}
	return nil
}

func (s *storageRepo) GetObject(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.S3.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, convert.StorageErr("fetching "+key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, convert.StorageErr("reading "+key, err)
	}
	return data, nil
}

func (s *storageRepo) GetPresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.S3.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", convert.StorageErr("presigning "+key, err)
	}
	return req.URL, nil
}

func (s *storageRepo) RemoveObject(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.S3.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return convert.StorageErr("deleting "+key, err)
	}
	return nil
}
