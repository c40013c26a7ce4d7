package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSObjectStore implements ObjectStore on top of a Google Cloud Storage bucket.
type GCSObjectStore struct {
	client *gcs.Client
	bucket string
}

// NewGCSObjectStore creates a bucket-scoped store with credentials from environment.
// It expects either GOOGLE_APPLICATION_CREDENTIALS path or GOOGLE_CREDENTIALS JSON in env.
func NewGCSObjectStore(ctx context.Context, bucket string) (*GCSObjectStore, error) {
	const op = "NewGCSObjectStore"

	if bucket == "" {
		return nil, WrapStorageError(op, "", errors.New("bucket name must not be empty"))
	}

	var client *gcs.Client
	var err error

	// Check for inline credentials first
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		client, err = gcs.NewClient(ctx, option.WithCredentialsJSON([]byte(credJSON)))
		if err != nil {
			return nil, WrapStorageError(op, "", fmt.Errorf("failed to create client with GOOGLE_CREDENTIALS: %w", err))
		}
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		client, err = gcs.NewClient(ctx, option.WithCredentialsFile(credFile))
		if err != nil {
			return nil, WrapStorageError(op, "", fmt.Errorf("failed to create client with GOOGLE_APPLICATION_CREDENTIALS: %w", err))
		}
	} else {
		// Try default credentials as fallback
		client, err = gcs.NewClient(ctx)
		if err != nil {
			return nil, WrapStorageError(op, "", ErrMissingCredentials)
		}
	}

	return &GCSObjectStore{
		client: client,
		bucket: bucket,
	}, nil
}

// NewGCSObjectStoreWithClient creates a store with an explicit client (for testing).
func NewGCSObjectStoreWithClient(client *gcs.Client, bucket string) *GCSObjectStore {
	return &GCSObjectStore{
		client: client,
		bucket: bucket,
	}
}

// List returns all object names in the bucket in listing order.
func (s *GCSObjectStore) List(ctx context.Context) ([]string, error) {
	const op = "List"

	var names []string
	it := s.client.Bucket(s.bucket).Objects(ctx, nil)
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, WrapStorageError(op, "", err)
		}
		names = append(names, attrs.Name)
	}
	return names, nil
}

// Download returns the full content of the named object.
func (s *GCSObjectStore) Download(ctx context.Context, name string) ([]byte, error) {
	const op = "Download"

	r, err := s.client.Bucket(s.bucket).Object(name).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, WrapStorageError(op, name, ErrObjectNotFound)
		}
		return nil, WrapStorageError(op, name, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, WrapStorageError(op, name, err)
	}
	return data, nil
}

// Upload writes data under the given name, overwriting any existing object.
func (s *GCSObjectStore) Upload(ctx context.Context, name string, data []byte, contentType string) error {
	const op = "Upload"

	w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		w.Close()
		return WrapStorageError(op, name, err)
	}
	if err := w.Close(); err != nil {
		return WrapStorageError(op, name, err)
	}
	return nil
}

// Delete removes the named object.
func (s *GCSObjectStore) Delete(ctx context.Context, name string) error {
	const op = "Delete"

	if err := s.client.Bucket(s.bucket).Object(name).Delete(ctx); err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return WrapStorageError(op, name, ErrObjectNotFound)
		}
		return WrapStorageError(op, name, err)
	}
	return nil
}

// SetPublic grants the AllUsers reader role on the named object.
func (s *GCSObjectStore) SetPublic(ctx context.Context, name string) error {
	const op = "SetPublic"

	acl := s.client.Bucket(s.bucket).Object(name).ACL()
	if err := acl.Set(ctx, gcs.AllUsers, gcs.RoleReader); err != nil {
		return WrapStorageError(op, name, err)
	}
	return nil
}

// PublicURL returns the canonical public URL for the named object.
func (s *GCSObjectStore) PublicURL(name string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, name)
}

// Close closes the underlying client.
func (s *GCSObjectStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

var _ ObjectStore = (*GCSObjectStore)(nil)
