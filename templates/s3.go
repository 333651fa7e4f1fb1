package templates

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/ruteri/arch-demo-provisioner/interfaces"
)

// S3Source fetches per-template archives <prefix>/<name>.tar.gz from an S3
// bucket and serves the extracted trees.
type S3Source struct {
	client      *s3.S3
	bucket      string
	prefix      string
	log         *slog.Logger
	locationURI string

	mu        sync.Mutex
	extracted map[string]string
}

// NewS3Source creates a template source reading from an S3 or S3-compatible
// bucket. Credentials are optional for publicly readable buckets.
func NewS3Source(bucket, prefix, region, endpoint, accessKey, secretKey string, log *slog.Logger) (*S3Source, error) {
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

	uri := fmt.Sprintf("s3://%s/%s?region=%s", bucket, prefix, region)
	if endpoint != "" {
		uri += fmt.Sprintf("&endpoint=%s", endpoint)
	}

	return &S3Source{
		client:      s3.New(sess),
		bucket:      bucket,
		prefix:      strings.TrimSuffix(prefix, "/"),
		log:         log,
		locationURI: uri,
		extracted:   make(map[string]string),
	}, nil
}

// Template fetches and extracts <prefix>/<name>.tar.gz.
// Returns ErrTemplateNotFound when the bucket has no such object.
func (s *S3Source) Template(ctx context.Context, name string) (fs.FS, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dir, ok := s.extracted[name]; ok {
		return os.DirFS(dir), nil
	}

	key := name + ".tar.gz"
	if s.prefix != "" {
		key = path.Join(s.prefix, key)
	}

	result, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if strings.Contains(err.Error(), "NoSuchKey") || strings.Contains(err.Error(), "404") {
			return nil, fmt.Errorf("%w: %s", interfaces.ErrTemplateNotFound, name)
		}
		return nil, fmt.Errorf("failed to get template from S3: %w", err)
	}
	defer result.Body.Close()

	dir, err := os.MkdirTemp("", "archdemo-template-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create extraction directory: %w", err)
	}
	if err := extractTarGz(result.Body, dir, false); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to extract template %s: %w", name, err)
	}

	s.log.Debug("Extracted template from S3",
		slog.String("bucket", s.bucket),
		slog.String("key", key),
		slog.String("dir", dir))

	s.extracted[name] = dir
	return os.DirFS(dir), nil
}

// Name returns a unique identifier for this template source.
func (s *S3Source) Name() string {
	return fmt.Sprintf("s3-%s", s.bucket)
}

// LocationURI returns the URI that identifies this template source.
func (s *S3Source) LocationURI() string {
	return s.locationURI
}

// Close removes the extracted archives.
func (s *S3Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for name, dir := range s.extracted {
		if err := os.RemoveAll(dir); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to remove %s: %w", dir, err)
		}
		delete(s.extracted, name)
	}
	return firstErr
}
