package objectstore

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"

	"github.com/weberc2/snfs/pkg/types"
)

// GzipObjectStore compresses objects on the way in and decompresses them on
// the way out. Images are mostly zero blocks and shrink well.
type GzipObjectStore struct {
	types.ObjectStore
}

func (os *GzipObjectStore) PutObject(
	bucket string,
	key string,
	data io.ReadSeeker,
) error {
	var b bytes.Buffer
	w, err := gzip.NewWriterLevel(&b, gzip.BestCompression)
	if err != nil {
		return fmt.Errorf("creating gzip writer: %w", err)
	}
	if _, err := io.Copy(w, data); err != nil {
		return fmt.Errorf("compressing object `%s/%s`: %w", bucket, key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing gzip writer: %w", err)
	}
	return os.ObjectStore.PutObject(bucket, key, bytes.NewReader(b.Bytes()))
}

type gzipReadCloser struct {
	body io.Closer
	*gzip.Reader
}

func (grc *gzipReadCloser) Close() error {
	if err := grc.Reader.Close(); err != nil {
		grc.body.Close()
		return err
	}
	return grc.body.Close()
}

func (os *GzipObjectStore) GetObject(
	bucket string,
	key string,
) (io.ReadCloser, error) {
	body, err := os.ObjectStore.GetObject(bucket, key)
	if err != nil {
		return nil, err
	}
	r, err := gzip.NewReader(body)
	if err != nil {
		body.Close()
		return nil, fmt.Errorf(
			"decompressing object `%s/%s`: %w",
			bucket,
			key,
			err,
		)
	}
	return &gzipReadCloser{body: body, Reader: r}, nil
}
