// Package storage keeps uploaded tour and user images, either in an S3
// compatible bucket or on local disk under the static assets directory.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"natours/internal/apperror"
	"natours/internal/config"
)

// Image directories.
const (
	DirTours = "tours"
	DirUsers = "users"
)

type Upload struct {
	ContentType string
	Size        int64
	Body        io.Reader
}

// Validate rejects anything that is not an image.
func (u Upload) Validate() error {
	if !strings.HasPrefix(u.ContentType, "image/") {
		return apperror.New(http.StatusBadRequest, "Not an image! Please upload only images.")
	}
	return nil
}

// Ext is the file extension for the upload's content type.
func (u Upload) Ext() string {
	switch u.ContentType {
	case "image/png":
		return "png"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	default:
		return "jpeg"
	}
}

type ImageStore interface {
	Put(ctx context.Context, dir, name string, up Upload) error
	// URL is where a stored image is served from.
	URL(dir, name string) string
}

// New returns the S3 store when a bucket is configured, local disk otherwise.
func New(ctx context.Context, cfg config.StorageConfig, staticDir string) (ImageStore, error) {
	if cfg.S3Bucket != "" {
		return NewS3Store(ctx, cfg)
	}
	return NewLocalStore(filepath.Join(staticDir, "img"), "/img"), nil
}

type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) s3API {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

type S3Store struct {
	client     s3API
	bucket     string
	publicBase string
}

func NewS3Store(ctx context.Context, cfg config.StorageConfig) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.S3Region)}
	if cfg.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")))
	}
	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	base := cfg.PublicBaseURL
	if base == "" {
		base = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.S3Bucket, cfg.S3Region)
	}
	return &S3Store{client: client, bucket: cfg.S3Bucket, publicBase: strings.TrimSuffix(base, "/")}, nil
}

func (s *S3Store) Put(ctx context.Context, dir, name string, up Upload) error {
	key := path.Join("img", dir, name)
	in := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        up.Body,
		ContentType: aws.String(up.ContentType),
	}
	if up.Size > 0 {
		in.ContentLength = aws.Int64(up.Size)
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}

func (s *S3Store) URL(dir, name string) string {
	return s.publicBase + "/" + path.Join("img", dir, name)
}

// LocalStore writes images below root and serves them from urlPrefix.
type LocalStore struct {
	root      string
	urlPrefix string
}

func NewLocalStore(root, urlPrefix string) *LocalStore {
	return &LocalStore{root: root, urlPrefix: strings.TrimSuffix(urlPrefix, "/")}
}

func (s *LocalStore) Put(_ context.Context, dir, name string, up Upload) error {
	if name != filepath.Base(name) {
		return fmt.Errorf("invalid image name %q", name)
	}
	target := filepath.Join(s.root, dir)
	if err := os.MkdirAll(target, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", target, err)
	}
	f, err := os.Create(filepath.Join(target, name))
	if err != nil {
		return fmt.Errorf("create image: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, up.Body); err != nil {
		return fmt.Errorf("write image: %w", err)
	}
	return f.Close()
}

func (s *LocalStore) URL(dir, name string) string {
	return s.urlPrefix + "/" + path.Join(dir, name)
}
