package storage

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"
)

// ObjectAPI is the subset of the S3 client used by Bucket.
type ObjectAPI interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	DeleteObjects(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// Bucket wraps the S3 bucket used as the staging area between the
// export and load steps of a table migration.
type Bucket struct {
	api    ObjectAPI
	name   string
	logger *zap.Logger
}

// NewBucket returns a new Bucket instance.
func NewBucket(api ObjectAPI, name string, logger *zap.Logger) *Bucket {
	return &Bucket{
		api:    api,
		name:   name,
		logger: logger,
	}
}

// URL returns the s3:// location of prefix.
func (b *Bucket) URL(prefix string) string {
	return fmt.Sprintf("s3://%s/%s", b.name, prefix)
}

// ClearPrefix deletes every object stored under prefix, so a re-run
// never loads stale exports alongside fresh ones.
func (b *Bucket) ClearPrefix(ctx context.Context, prefix string) error {
	paginator := s3.NewListObjectsV2Paginator(b.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.name),
		Prefix: aws.String(prefix),
	})

	deleted := 0
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("unable to list objects under %s: %w", b.URL(prefix), err)
		}

		if len(page.Contents) == 0 {
			continue
		}

		objects := make([]types.ObjectIdentifier, len(page.Contents))
		for i := range page.Contents {
			objects[i] = types.ObjectIdentifier{Key: page.Contents[i].Key}
		}

		if _, err := b.api.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(b.name),
			Delete: &types.Delete{
				Objects: objects,
				Quiet:   aws.Bool(true),
			},
		}); err != nil {
			return fmt.Errorf("unable to delete objects under %s: %w", b.URL(prefix), err)
		}

		deleted += len(objects)
	}

	if deleted > 0 {
		b.logger.Info("Cleared storage prefix",
			zap.String("url", b.URL(prefix)),
			zap.Int("objects", deleted))
	}

	return nil
}
