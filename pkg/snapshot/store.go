package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/dd0wney/flowsim/pkg/logging"
	"github.com/dd0wney/flowsim/pkg/metrics"
	"github.com/dd0wney/flowsim/pkg/network"
)

// Archiver copies an encoded snapshot to durable storage after the local
// write succeeds.
type Archiver interface {
	Archive(ctx context.Context, name string, data []byte) error
}

// Store writes snapshots to a local directory and, when an archiver is
// configured, mirrors them off-host.
type Store struct {
	dir      string
	logger   logging.Logger
	registry *metrics.Registry
	archiver Archiver
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the store's logger.
func WithLogger(l logging.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// WithMetrics sets the registry snapshot metrics are recorded against.
func WithMetrics(r *metrics.Registry) StoreOption {
	return func(s *Store) { s.registry = r }
}

// WithArchiver enables off-host archival of each written snapshot.
func WithArchiver(a Archiver) StoreOption {
	return func(s *Store) { s.archiver = a }
}

// NewStore creates a snapshot store rooted at dir.
func NewStore(dir string, opts ...StoreOption) *Store {
	s := &Store{
		dir:    dir,
		logger: logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Write captures a flowsheet, persists it locally, and archives the encoded
// bytes if an archiver is configured. It returns the local file path.
func (s *Store) Write(ctx context.Context, fs *network.Flowsheet, runID string) (string, error) {
	start := time.Now()

	snap := Capture(fs, runID)
	data, err := Encode(snap)
	if err != nil {
		s.record("error", 0, start)
		return "", err
	}
	filePath, err := WriteFile(s.dir, snap)
	if err != nil {
		s.record("error", 0, start)
		return "", err
	}
	s.record("ok", len(data), start)
	s.logger.Info("snapshot written",
		logging.String("run_id", runID),
		logging.String("path", filePath),
		logging.Int("ports", len(snap.Ports)),
		logging.Int("size_bytes", len(data)))

	if s.archiver != nil {
		if err := s.archiver.Archive(ctx, FileName(runID), data); err != nil {
			if s.registry != nil {
				s.registry.SnapshotArchivesTotal.WithLabelValues("error").Inc()
			}
			return filePath, fmt.Errorf("archiving snapshot: %w", err)
		}
		if s.registry != nil {
			s.registry.SnapshotArchivesTotal.WithLabelValues("ok").Inc()
		}
		s.logger.Info("snapshot archived", logging.String("run_id", runID))
	}
	return filePath, nil
}

func (s *Store) record(status string, size int, start time.Time) {
	if s.registry != nil {
		s.registry.RecordSnapshotWrite(status, size, time.Since(start))
	}
}

// ObjectPutter is the slice of the S3 client the archiver needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver uploads snapshots to an S3 bucket under a key prefix.
type S3Archiver struct {
	client ObjectPutter
	bucket string
	prefix string
}

// NewS3Archiver builds an archiver from the ambient AWS configuration.
// When accessKey and secretKey are both set they override the default
// credential chain.
func NewS3Archiver(ctx context.Context, bucket, prefix, accessKey, secretKey string) (*S3Archiver, error) {
	if bucket == "" {
		return nil, fmt.Errorf("archive bucket not set")
	}
	var opts []func(*awsconfig.LoadOptions) error
	if accessKey != "" && secretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return &S3Archiver{client: s3.NewFromConfig(cfg), bucket: bucket, prefix: prefix}, nil
}

// NewS3ArchiverWithClient is the injection point for tests.
func NewS3ArchiverWithClient(client ObjectPutter, bucket, prefix string) *S3Archiver {
	return &S3Archiver{client: client, bucket: bucket, prefix: prefix}
}

// Archive uploads one encoded snapshot.
func (a *S3Archiver) Archive(ctx context.Context, name string, data []byte) error {
	key := name
	if a.prefix != "" {
		key = path.Join(a.prefix, name)
	}
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &a.bucket,
		Key:    &key,
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("uploading %s: %w", key, err)
	}
	return nil
}
