// Package blob abstracts binary media storage. The production backend is
// an S3-compatible object store; tests substitute fakes.
package blob

import "context"

// Store is the narrow blob-store contract the lifecycle manager consumes.
//
// Put stores the payload under key and returns a durable fetch locator for
// it. Delete removes the payload; deleting a key that no longer exists is
// not an error.
type Store interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}
