package mediaclient

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// Storage stores images and returns their public URLs
type Storage interface {
	UploadImage(ctx context.Context, reader io.Reader, filename, contentType string, size int64) (key string, publicURL string, err error)
	DeleteImage(ctx context.Context, imageURL string) error
}

// Client stores blog and event images in a MinIO/S3 bucket
type Client struct {
	client         *minio.Client
	bucketName     string
	publicEndpoint string
	useSSL         bool
	logger         *zap.Logger
	now            func() time.Time
}

var _ Storage = (*Client)(nil)

// Options configure NewClient
type Options struct {
	Endpoint       string
	PublicEndpoint string
	AccessKey      string
	SecretKey      string
	Bucket         string
	UseSSL         bool
}

// NewClient connects to the object store. When the bucket does not exist it
// is created with a public-read policy; a failing existence check is logged
// and does not stop startup.
func NewClient(ctx context.Context, opts Options, logger *zap.Logger) (*Client, error) {
	minioClient, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	c := newClient(minioClient, opts, logger)

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	c.ensureBucket(checkCtx)

	logger.Info("Media storage initialised",
		zap.String("endpoint", opts.Endpoint),
		zap.String("publicEndpoint", c.publicEndpoint),
		zap.String("bucket", opts.Bucket))

	return c, nil
}

func newClient(minioClient *minio.Client, opts Options, logger *zap.Logger) *Client {
	publicEndpoint := opts.PublicEndpoint
	if publicEndpoint == "" {
		publicEndpoint = opts.Endpoint
	}
	publicEndpoint = strings.TrimSuffix(strings.Trim(strings.TrimSpace(publicEndpoint), `"'`), "/")

	return &Client{
		client:         minioClient,
		bucketName:     opts.Bucket,
		publicEndpoint: publicEndpoint,
		useSSL:         opts.UseSSL,
		logger:         logger,
		now:            time.Now,
	}
}

func (c *Client) ensureBucket(ctx context.Context) {
	exists, err := c.client.BucketExists(ctx, c.bucketName)
	if err != nil {
		c.logger.Warn("Failed to check bucket, continuing", zap.String("bucket", c.bucketName), zap.Error(err))
		return
	}
	if exists {
		return
	}

	if err := c.client.MakeBucket(ctx, c.bucketName, minio.MakeBucketOptions{}); err != nil {
		c.logger.Error("Failed to create bucket", zap.String("bucket", c.bucketName), zap.Error(err))
		return
	}
	c.logger.Info("Bucket created", zap.String("bucket", c.bucketName))

	policy := fmt.Sprintf(`{"Version": "2012-10-17","Statement": [{"Action": ["s3:GetObject"],"Effect": "Allow","Principal": {"AWS": ["*"]},"Resource": ["arn:aws:s3:::%s/*"],"Sid": ""}]}`, c.bucketName)
	if err := c.client.SetBucketPolicy(ctx, c.bucketName, policy); err != nil {
		c.logger.Error("Failed to set bucket policy", zap.String("bucket", c.bucketName), zap.Error(err))
	}
}

// UploadImage stores an image under images/<date>/<uuid><ext> and returns
// the object key and its public URL
func (c *Client) UploadImage(ctx context.Context, reader io.Reader, filename, contentType string, size int64) (string, string, error) {
	key := c.objectKey(filename)

	_, err := c.client.PutObject(ctx, c.bucketName, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to upload image: %w", err)
	}

	publicURL := c.GetImageURL(key)
	c.logger.Info("Image uploaded",
		zap.String("filename", filename),
		zap.String("key", key),
		zap.String("url", publicURL))

	return key, publicURL, nil
}

// DeleteImage removes the object behind a public URL
func (c *Client) DeleteImage(ctx context.Context, imageURL string) error {
	key := c.KeyFromURL(imageURL)
	if key == "" {
		return fmt.Errorf("could not extract object key from %q", imageURL)
	}

	if err := c.client.RemoveObject(ctx, c.bucketName, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete image: %w", err)
	}

	c.logger.Info("Image deleted", zap.String("key", key))
	return nil
}

func (c *Client) objectKey(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("images/%s/%s%s", c.now().UTC().Format("2006-01-02"), uuid.New().String(), ext)
}

// GetImageURL returns the public URL of an object. An endpoint without a
// scheme gets https, or http when the client does not use SSL.
func (c *Client) GetImageURL(key string) string {
	if strings.Contains(c.publicEndpoint, "://") {
		return fmt.Sprintf("%s/%s/%s", c.publicEndpoint, c.bucketName, key)
	}
	scheme := "https"
	if !c.useSSL {
		scheme = "http"
	}
	return fmt.Sprintf("%s://%s/%s/%s", scheme, c.publicEndpoint, c.bucketName, key)
}

// KeyFromURL extracts the object key from a public URL, or "" when the URL
// does not point into the bucket
func (c *Client) KeyFromURL(imageURL string) string {
	u, err := url.Parse(imageURL)
	if err != nil {
		return ""
	}

	path := strings.TrimPrefix(u.Path, "/")
	prefix := c.bucketName + "/"
	if idx := strings.LastIndex(path, prefix); idx != -1 {
		return path[idx+len(prefix):]
	}
	return ""
}

// HealthCheck verifies the bucket is reachable
func (c *Client) HealthCheck(ctx context.Context) error {
	exists, err := c.client.BucketExists(ctx, c.bucketName)
	if err != nil {
		return fmt.Errorf("media health check failed: %w", err)
	}
	if !exists {
		return fmt.Errorf("bucket %q does not exist", c.bucketName)
	}
	return nil
}
