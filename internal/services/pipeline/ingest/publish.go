package ingest

import (
	"context"

	s3pub "reviewprep/internal/adapters/publish/s3"
	"reviewprep/internal/services/pipeline/domain"
)

// publisher adapts the S3 publisher to domain.Publisher
type publisher struct {
	p *s3pub.Publisher
}

// NewPublisher wraps p; a nil p yields a nil port so the stage is skipped
func NewPublisher(p *s3pub.Publisher) domain.Publisher {
	if p == nil {
		return nil
	}
	return &publisher{p: p}
}

func (a *publisher) Publish(ctx context.Context, runID, path string) (domain.Upload, error) {
	obj, err := a.p.Upload(ctx, runID, path)
	if err != nil {
		return domain.Upload{}, err
	}
	return domain.Upload{Bucket: obj.Bucket, Key: obj.Key, Bytes: obj.Bytes}, nil
}
