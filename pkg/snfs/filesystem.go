// Package snfs is the storage engine: it owns a block device and its
// metadata mirror and exposes the file system operations, each of which is
// atomic with respect to the mirror and serialized against defragmentation.
package snfs

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/weberc2/snfs/pkg/blocks"
	"github.com/weberc2/snfs/pkg/data"
	"github.com/weberc2/snfs/pkg/metadata"
	. "github.com/weberc2/snfs/pkg/types"
)

type FileSystem struct {
	device   blocks.Device
	metadata *metadata.Metadata
	logger   logrus.FieldLogger

	// opLock serializes mutations against each other and against readers.
	opLock sync.RWMutex

	// defragLock is held shared by every operation and exclusively by
	// defrag, so a defrag pass waits for in-flight calls and blocks new ones
	// until it is done.
	defragLock sync.RWMutex
}

type Option func(*FileSystem)

// WithLogger replaces the default `logrus.StandardLogger()`.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(fs *FileSystem) { fs.logger = logger }
}

func newFileSystem(
	device blocks.Device,
	md *metadata.Metadata,
	options []Option,
) *FileSystem {
	fs := FileSystem{
		device:   device,
		metadata: md,
		logger:   logrus.StandardLogger(),
	}
	for _, option := range options {
		option(&fs)
	}
	return &fs
}

// Format writes an empty file system to `device` and returns an engine over
// it.
func Format(device blocks.Device, options ...Option) (*FileSystem, error) {
	md, err := metadata.Format(device)
	if err != nil {
		return nil, err
	}
	return newFileSystem(device, md, options), nil
}

// Open loads the metadata of an existing image. The root inode must be an
// allocated directory.
func Open(device blocks.Device, options ...Option) (*FileSystem, error) {
	md, err := metadata.Load(device)
	if err != nil {
		return nil, err
	}

	var root Inode
	if err := md.Get(InoRoot, &root); err != nil {
		return nil, fmt.Errorf(
			"opening file system: root: %w: %v",
			CorruptInodeErr,
			err,
		)
	}
	if root.FileType != FileTypeDir {
		return nil, fmt.Errorf(
			"opening file system: root has type `%s`: %w",
			root.FileType,
			CorruptInodeErr,
		)
	}
	return newFileSystem(device, md, options), nil
}

// WithDevice runs `f` with exclusive access to the device, e.g. to copy the
// image out or to overwrite it with a restored one. The metadata mirror is
// reloaded from the device once `f` succeeds.
func (fs *FileSystem) WithDevice(f func(blocks.Device) error) error {
	fs.defragLock.Lock()
	defer fs.defragLock.Unlock()
	fs.opLock.Lock()
	defer fs.opLock.Unlock()

	if err := f(fs.device); err != nil {
		return err
	}
	md, err := metadata.Load(fs.device)
	if err != nil {
		return fmt.Errorf("reloading metadata: %w", err)
	}
	fs.metadata = md
	return nil
}

func (fs *FileSystem) data() *data.FileSystem {
	return &data.FileSystem{Device: fs.device, Metadata: fs.metadata}
}

// read runs `f` under both shared locks.
func (fs *FileSystem) read(f func(*data.FileSystem) error) error {
	fs.defragLock.RLock()
	defer fs.defragLock.RUnlock()
	fs.opLock.RLock()
	defer fs.opLock.RUnlock()
	return f(fs.data())
}

// mutate runs `f` with the metadata mirror locked for writing and flushes
// the mirror afterwards. If `f` or the flush fails, the mirror is restored
// to its state before the call, and after a failed flush the restored
// mirror is written back over blocks 0..9. Data blocks written by a failed
// call are never referenced by the restored metadata.
func (fs *FileSystem) mutate(op string, f func(*data.FileSystem) error) error {
	fs.defragLock.RLock()
	defer fs.defragLock.RUnlock()
	fs.opLock.Lock()
	defer fs.opLock.Unlock()
	return fs.commit(op, f)
}

// commit must be called with `opLock` held exclusively.
func (fs *FileSystem) commit(op string, f func(*data.FileSystem) error) error {
	snapshot := fs.metadata.Snapshot()
	if err := f(fs.data()); err != nil {
		fs.metadata.Restore(&snapshot)
		return err
	}
	if err := fs.metadata.Flush(fs.device); err != nil {
		fs.metadata.Restore(&snapshot)
		logger := fs.logger.WithField("op", op)
		logger.WithError(err).Error("flushing metadata")

		// blocks 0..9 may now hold (or a cache may still buffer) the
		// rejected state; put the restored state back in its place
		if err := fs.metadata.Store(fs.device); err != nil {
			logger.WithError(err).Error(
				"restoring metadata blocks; on-disk image may be " +
					"partially written",
			)
		}
		return fmt.Errorf("%s: flushing metadata: %w", op, err)
	}
	return nil
}
