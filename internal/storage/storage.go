package storage

import "context"

// Object is a stored binary plus its content type.
type Object struct {
	Data        []byte
	ContentType string
}

// ObjectStore persists profile image binaries. Implementations must be safe
// for concurrent use.
type ObjectStore interface {
	Put(ctx context.Context, key string, obj Object) error
	Get(ctx context.Context, key string) (Object, error)
	Delete(ctx context.Context, key string) error
}
