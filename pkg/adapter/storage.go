package adapter

import (
	"context"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
)

// Storage writes exported memories to an object store
type Storage interface {
	// Put returns a writer for the object. The object is committed on Close.
	Put(ctx context.Context, key string) (io.WriteCloser, error)
}

// storageClient implements Storage interface using Cloud Storage
type storageClient struct {
	bucketName string
	client     *storage.Client
}

// NewStorage creates a new Cloud Storage client
func NewStorage(ctx context.Context, bucketName string) (Storage, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client")
	}

	return &storageClient{
		bucketName: bucketName,
		client:     client,
	}, nil
}

func (s *storageClient) Put(ctx context.Context, key string) (io.WriteCloser, error) {
	if key == "" {
		return nil, goerr.New("object key is empty", goerr.V("bucket", s.bucketName))
	}

	writer := s.client.Bucket(s.bucketName).Object(key).NewWriter(ctx)
	writer.ContentType = "application/x-ndjson"
	return writer, nil
}

// ParseObjectURL splits "gs://bucket/path/to/object" into bucket and key.
// ok is false when url does not use the gs scheme.
func ParseObjectURL(url string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(url, "gs://")
	if !found {
		return "", "", false
	}
	bucket, key, _ = strings.Cut(rest, "/")
	return bucket, key, true
}
