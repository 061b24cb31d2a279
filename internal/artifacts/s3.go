package artifacts

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// S3Config configures the durable artifact bucket. Leaving the bucket or
// credentials empty disables uploads; Persist then passes URLs through.
type S3Config struct {
	Bucket        string
	Region        string
	Endpoint      string
	AccessKeyID   string
	SecretKey     string
	UsePathStyle  bool
	PublicBaseURL string

	// InternalHosts lists hostnames whose URLs are already durable and
	// must not be re-uploaded.
	InternalHosts []string

	DownloadTimeout time.Duration
}

// S3Store copies provider artifacts into an S3-compatible bucket.
type S3Store struct {
	cfg      S3Config
	client   *s3.Client
	http     *http.Client
	log      zerolog.Logger
	disabled bool
}

func NewS3Store(ctx context.Context, cfg S3Config, log zerolog.Logger) (*S3Store, error) {
	logger := log.With().Str("component", "artifact-store").Logger()
	store := &S3Store{
		cfg:  cfg,
		log:  logger,
		http: &http.Client{Timeout: cfg.DownloadTimeout},
	}
	if store.http.Timeout <= 0 {
		store.http.Timeout = 60 * time.Second
	}

	if strings.TrimSpace(cfg.Bucket) == "" || strings.TrimSpace(cfg.AccessKeyID) == "" || strings.TrimSpace(cfg.SecretKey) == "" {
		logger.Warn().Msg("artifact bucket or credentials not set; artifact persistence disabled")
		store.disabled = true
		return store, nil
	}

	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		if cfg.Endpoint != "" {
			return aws.Endpoint{
				URL:           cfg.Endpoint,
				PartitionID:   "aws",
				SigningRegion: cfg.Region,
			}, nil
		}
		return aws.Endpoint{}, &aws.EndpointNotFoundError{}
	})

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, "")),
		awsconfig.WithEndpointResolverWithOptions(resolver),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	store.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})
	return store, nil
}

// Persist downloads srcURL and uploads a copy to the bucket, returning
// the stored object's public URL. Internal-host URLs and disabled stores
// pass the source URL through unchanged.
func (s *S3Store) Persist(ctx context.Context, srcURL string) (string, error) {
	if s.disabled || internalHost(srcURL, s.cfg.InternalHosts) {
		return srcURL, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srcURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("download artifact: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download artifact: unexpected status %d from %s", resp.StatusCode, srcURL)
	}

	key := objectKey(srcURL)
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        resp.Body,
		ContentType: aws.String(contentType),
	}
	if resp.ContentLength > 0 {
		input.ContentLength = aws.Int64(resp.ContentLength)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("upload artifact: %w", err)
	}

	s.log.Debug().Str("src", srcURL).Str("key", key).Msg("artifact persisted")
	return s.publicURL(key), nil
}

// Health performs a HeadBucket request; disabled stores are healthy.
func (s *S3Store) Health(ctx context.Context) error {
	if s.disabled {
		return nil
	}
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.cfg.Bucket)})
	return err
}

// objectKey derives a unique bucket key, keeping the source extension so
// CDNs serve a sensible content type.
func objectKey(srcURL string) string {
	ext := path.Ext(strings.SplitN(srcURL, "?", 2)[0])
	if len(ext) > 8 {
		ext = ""
	}
	now := time.Now().UTC()
	return fmt.Sprintf("generations/%s/%s%s", now.Format("2006/01/02"), uuid.NewString(), ext)
}

func (s *S3Store) publicURL(key string) string {
	base := strings.TrimRight(s.cfg.PublicBaseURL, "/")
	if base == "" {
		if s.cfg.Endpoint != "" {
			base = strings.TrimRight(s.cfg.Endpoint, "/") + "/" + s.cfg.Bucket
		} else {
			base = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", s.cfg.Bucket, s.cfg.Region)
		}
	}
	return base + "/" + key
}
