// Package backup copies whole device images to and from an object store.
package backup

import (
	"bytes"
	"fmt"
	"io"
	"io/ioutil"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/weberc2/snfs/pkg/blocks"
	"github.com/weberc2/snfs/pkg/objectstore"
	. "github.com/weberc2/snfs/pkg/types"
)

const (
	ImageSizeMismatchErr ConstError = "image size does not match device"
)

// Store keeps gzipped images under `<slug(name)>/<id>.img` in one bucket.
type Store struct {
	ObjectStore ObjectStore
	Bucket      string
	NewID       func() string
}

func NewStore(objectStore ObjectStore, bucket string) *Store {
	return &Store{
		ObjectStore: &objectstore.GzipObjectStore{ObjectStore: objectStore},
		Bucket:      bucket,
		NewID:       uuid.NewString,
	}
}

func Prefix(name string) string { return slug.Make(name) + "/" }

func Key(name, id string) string { return Prefix(name) + id + ".img" }

// Push uploads every block of `device` and returns the new object's key.
// Buffered blocks are flushed first so that the image is complete.
func (s *Store) Push(name string, device blocks.Device) (string, error) {
	if err := blocks.Flush(device); err != nil {
		return "", fmt.Errorf("pushing image `%s`: %w", name, err)
	}

	var image bytes.Buffer
	image.Grow(int(Byte(device.BlockCount()) * BlockSize))
	var buf [BlockSize]byte
	for b := Block(0); b < device.BlockCount(); b++ {
		if err := device.ReadBlock(b, &buf); err != nil {
			return "", fmt.Errorf("pushing image `%s`: %w", name, err)
		}
		image.Write(buf[:])
	}

	key := Key(name, s.NewID())
	if err := s.ObjectStore.PutObject(
		s.Bucket,
		key,
		bytes.NewReader(image.Bytes()),
	); err != nil {
		return "", fmt.Errorf("pushing image `%s`: %w", name, err)
	}
	return key, nil
}

// Pull overwrites `device` with the image stored at `key`. The image must
// hold exactly as many blocks as the device; it is downloaded and checked in
// full before the first block is written, so a rejected image leaves the
// device untouched.
func (s *Store) Pull(key string, device blocks.Device) error {
	body, err := s.ObjectStore.GetObject(s.Bucket, key)
	if err != nil {
		return fmt.Errorf("pulling image `%s`: %w", key, err)
	}
	defer body.Close()

	size := Byte(device.BlockCount()) * BlockSize
	image, err := ioutil.ReadAll(io.LimitReader(body, int64(size)+1))
	if err != nil {
		return fmt.Errorf("pulling image `%s`: %w", key, err)
	}
	if Byte(len(image)) != size {
		return fmt.Errorf(
			"pulling image `%s`: image holds `%d` bytes; device holds `%d`: %w",
			key,
			len(image),
			size,
			ImageSizeMismatchErr,
		)
	}

	var buf [BlockSize]byte
	for b := Block(0); b < device.BlockCount(); b++ {
		copy(buf[:], image[Byte(b)*BlockSize:])
		if err := device.WriteBlock(b, &buf); err != nil {
			return fmt.Errorf("pulling image `%s`: %w", key, err)
		}
	}
	return blocks.Flush(device)
}

// List returns the keys of every image pushed under `name`.
func (s *Store) List(name string) ([]string, error) {
	keys, err := s.ObjectStore.ListObjects(s.Bucket, Prefix(name))
	if err != nil {
		return nil, fmt.Errorf("listing images `%s`: %w", name, err)
	}
	return keys, nil
}

func (s *Store) Delete(key string) error {
	if err := s.ObjectStore.DeleteObject(s.Bucket, key); err != nil {
		return fmt.Errorf("deleting image `%s`: %w", key, err)
	}
	return nil
}
