// Package objectstore keeps image assets in an S3 compatible bucket.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/lysyi3m/news-digest/app/database"
)

var _ database.ImageStore = (*ImageBucket)(nil)

type Options struct {
	Bucket    string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
}

// ImageBucket stores images as objects named images/<id>.
type ImageBucket struct {
	client *s3.Client
	bucket string
	prefix string
}

func NewImageBucket(ctx context.Context, opts Options) (*ImageBucket, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(opts.Region),
	}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 configuration: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &ImageBucket{
		client: client,
		bucket: opts.Bucket,
		prefix: "images/",
	}, nil
}

func (b *ImageBucket) Key(id string) string {
	return b.prefix + id
}

func (b *ImageBucket) Get(ctx context.Context, id string) (*database.Image, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.Key(id)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("image %s: %w", id, database.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get image %s: %w", id, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", id, err)
	}

	img := &database.Image{
		ID:          id,
		ContentType: aws.ToString(out.ContentType),
		Data:        data,
	}
	if out.LastModified != nil {
		img.CreatedAt = out.LastModified.UTC()
	}
	return img, nil
}

func (b *ImageBucket) Put(ctx context.Context, image database.Image) error {
	exists, err := b.Exists(ctx, image.ID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(b.bucket),
		Key:          aws.String(b.Key(image.ID)),
		Body:         bytes.NewReader(image.Data),
		ContentType:  aws.String(image.ContentType),
		CacheControl: aws.String(fmt.Sprintf("public, max-age=%d", int((10 * 24 * time.Hour).Seconds()))),
	})
	if err != nil {
		return fmt.Errorf("failed to store image %s: %w", image.ID, err)
	}
	return nil
}

func (b *ImageBucket) Exists(ctx context.Context, id string) (bool, error) {
	_, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.Key(id)),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check image %s: %w", id, err)
	}
	return true, nil
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	// HeadObject on some S3 compatible stores surfaces a bare 404.
	return strings.Contains(err.Error(), "StatusCode: 404")
}
