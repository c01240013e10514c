package types

import (
	"fmt"
	"io"
)

// ObjectNotFoundErr reports a missing object. It matches `NotFoundErr` under
// `errors.Is`.
type ObjectNotFoundErr struct {
	Bucket string
	Key    string
}

func (err *ObjectNotFoundErr) Error() string {
	return fmt.Sprintf("object `%s/%s` not found", err.Bucket, err.Key)
}

func (err *ObjectNotFoundErr) Is(target error) bool {
	return target == NotFoundErr
}

// ObjectStore holds image snapshots.
type ObjectStore interface {
	PutObject(bucket, key string, data io.ReadSeeker) error
	GetObject(bucket, key string) (io.ReadCloser, error)
	ListObjects(bucket, prefix string) ([]string, error)
	DeleteObject(bucket, key string) error
}
