package catalog

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"eatdecider/backend/internal/domain"
)

const maxSnapshotSize = 16 << 20

// ObjectGetter is the slice of the S3 API the snapshot source needs.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// SnapshotSource reads a published catalog snapshot from object storage.
type SnapshotSource struct {
	client ObjectGetter
	bucket string
	key    string
}

func NewSnapshotSource(client ObjectGetter, bucket, key string) *SnapshotSource {
	return &SnapshotSource{client: client, bucket: bucket, key: key}
}

// NewS3SnapshotSource builds a client from the default AWS credential chain.
func NewS3SnapshotSource(ctx context.Context, region, bucket, key string) (*SnapshotSource, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewSnapshotSource(s3.NewFromConfig(cfg), bucket, key), nil
}

func (s *SnapshotSource) Name() string { return "snapshot" }

func (s *SnapshotSource) GetCatalog(ctx context.Context) ([]domain.MenuItem, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", s.bucket, s.key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(io.LimitReader(out.Body, maxSnapshotSize))
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	format := "json"
	switch strings.ToLower(filepath.Ext(s.key)) {
	case ".yaml", ".yml":
		format = "yaml"
	}
	return DecodeItems(data, format, SourceSnapshot)
}
