package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/logging"
)

// S3ImageStore uploads images to a public-read bucket
type S3ImageStore struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

func NewS3ImageStore(cfg *config.S3Config) *S3ImageStore {
	return &S3ImageStore{
		client:  cfg.Client,
		bucket:  cfg.BucketName,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
	}
}

func (s *S3ImageStore) Save(ctx context.Context, img *Image) (string, error) {
	key := objectKey(img)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(img.Data),
		ContentType: aws.String(img.ContentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	publicURL := s.baseURL + "/" + key
	logging.Ctx(ctx).Debug().Str("url", publicURL).Msg("uploaded image to s3")
	return publicURL, nil
}

func (s *S3ImageStore) Delete(ctx context.Context, url string) error {
	key, ok := strings.CutPrefix(url, s.baseURL+"/")
	if !ok || key == "" {
		return ErrForeignImageURL
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}
	return nil
}
