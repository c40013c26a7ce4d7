// Package storage provides access to the image bucket backing the annotation
// pipeline.
//
// The ObjectStore interface is the only thing the rest of the application
// depends on; the Google Cloud Storage implementation in gcs.go is wired in at
// startup and can be replaced with a test double.
//
// Required Environment Variables:
//   - GOOGLE_APPLICATION_CREDENTIALS: Path to service account JSON file, OR
//   - GOOGLE_CREDENTIALS: Inline JSON credentials string
//
// If neither is set, Application Default Credentials are used.
package storage

import "context"

// ObjectStore captures the bucket operations the annotation workflow needs.
type ObjectStore interface {
	// List returns the names of all objects currently in the bucket,
	// in bucket listing order.
	List(ctx context.Context) ([]string, error)

	// Download returns the full content of the named object.
	Download(ctx context.Context, name string) ([]byte, error)

	// Upload writes data under the given name with an explicit content type,
	// overwriting any existing object.
	Upload(ctx context.Context, name string, data []byte, contentType string) error

	// Delete removes the named object.
	Delete(ctx context.Context, name string) error

	// SetPublic marks the named object as publicly readable.
	SetPublic(ctx context.Context, name string) error

	// PublicURL returns the browser-accessible URL for the named object.
	PublicURL(name string) string
}
