package io

import (
	"encoding/binary"
	"fmt"

	bolt "go.etcd.io/bbolt"

	. "github.com/weberc2/snfs/pkg/types"
)

var boltBlocksBucket = []byte("blocks")

// BoltVolume stores a volume in a bbolt database, one key per block-sized
// chunk. Missing chunks read as zeros.
type BoltVolume struct {
	db *bolt.DB
}

func OpenBoltVolume(path string) (*BoltVolume, error) {
	db, err := bolt.Open(path, 0644, nil)
	if err != nil {
		return nil, fmt.Errorf("opening bolt db `%s`: %w", path, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBlocksBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating bucket in `%s`: %w", path, err)
	}
	return &BoltVolume{db: db}, nil
}

func (volume *BoltVolume) ReadAt(offset Byte, p []byte) error {
	if err := volume.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(boltBlocksBucket)
		return forEachChunk(offset, p, func(key []byte, lo Byte, chunk []byte) {
			// bolt values are only valid for the life of the transaction;
			// copy out immediately.
			if value := bucket.Get(key); value != nil {
				copy(chunk, value[lo:])
			} else {
				for i := range chunk {
					chunk[i] = 0
				}
			}
		})
	}); err != nil {
		return fmt.Errorf(
			"reading `%d` bytes from bolt volume at offset `%d`: %w",
			len(p),
			offset,
			err,
		)
	}
	return nil
}

func (volume *BoltVolume) WriteAt(offset Byte, p []byte) error {
	if err := volume.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(boltBlocksBucket)
		var putErr error
		if err := forEachChunk(
			offset,
			p,
			func(key []byte, lo Byte, chunk []byte) {
				if putErr != nil {
					return
				}
				value := make([]byte, BlockSize)
				if existing := bucket.Get(key); existing != nil {
					copy(value, existing)
				}
				copy(value[lo:], chunk)
				putErr = bucket.Put(key, value)
			},
		); err != nil {
			return err
		}
		return putErr
	}); err != nil {
		return fmt.Errorf(
			"writing `%d` bytes to bolt volume at offset `%d`: %w",
			len(p),
			offset,
			err,
		)
	}
	return nil
}

func (volume *BoltVolume) Close() error {
	return volume.db.Close()
}

// forEachChunk splits `p` at block boundaries and invokes `f` with the
// chunk key, the offset within the chunk and the corresponding slice of `p`.
func forEachChunk(
	offset Byte,
	p []byte,
	f func(key []byte, lo Byte, chunk []byte),
) error {
	if offset < 0 {
		return fmt.Errorf("negative offset `%d`", offset)
	}
	for done := Byte(0); done < Byte(len(p)); {
		at := offset + done
		lo := at % BlockSize
		n := BlockSize - lo
		if rest := Byte(len(p)) - done; rest < n {
			n = rest
		}
		var key [8]byte
		binary.BigEndian.PutUint64(key[:], uint64(at/BlockSize))
		f(key[:], lo, p[done:done+n])
		done += n
	}
	return nil
}
