package storage

import (
	"context"
	"io"
)

type PutResult struct {
	Key  string
	ETag string
}

// ObjectStore is the write side of an S3 compatible bucket, used to keep
// JSON snapshots of data before destructive maintenance.
type ObjectStore interface {
	Put(ctx context.Context, key string, contentType string, body io.Reader) (*PutResult, error)
}
