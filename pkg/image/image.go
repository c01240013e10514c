// Package image opens the block device stack that backs a file system: a
// volume (memory, image file or bbolt database), optional simulated latency
// and an optional write-back block cache.
package image

import (
	"fmt"
	"os"
	"time"

	"github.com/weberc2/snfs/pkg/blocks"
	"github.com/weberc2/snfs/pkg/io"
	. "github.com/weberc2/snfs/pkg/types"
)

type Backend string

const (
	BackendMemory Backend = "memory"
	BackendFile   Backend = "file"
	BackendBolt   Backend = "bolt"

	UnknownBackendErr ConstError = "unknown backend"
)

type Options struct {
	Backend   Backend
	Path      string
	Blocks    Block
	CacheSize int
	Delay     time.Duration
}

type Image struct {
	Device blocks.Device

	// Fresh is true when the backing store did not exist before opening,
	// so the image needs formatting.
	Fresh bool

	// Delayed is the latency simulator, or nil when `Delay` is zero.
	Delayed *blocks.Delayed

	closer func() error
}

func Open(options Options) (*Image, error) {
	if options.Blocks <= FirstDataBlock {
		return nil, fmt.Errorf(
			"opening `%s` image with `%d` blocks: too few blocks",
			options.Backend,
			options.Blocks,
		)
	}

	var image Image
	var volume io.Volume
	switch options.Backend {
	case BackendMemory:
		image.Fresh = true
		volume = io.NewBuffer(make([]byte, Byte(options.Blocks)*BlockSize))
		image.closer = func() error { return nil }
	case BackendFile:
		image.Fresh = !exists(options.Path)
		fileVolume, err := io.OpenFileVolume(
			options.Path,
			Byte(options.Blocks)*BlockSize,
		)
		if err != nil {
			return nil, err
		}
		volume, image.closer = fileVolume, fileVolume.Close
	case BackendBolt:
		image.Fresh = !exists(options.Path)
		boltVolume, err := io.OpenBoltVolume(options.Path)
		if err != nil {
			return nil, err
		}
		volume, image.closer = boltVolume, boltVolume.Close
	default:
		return nil, fmt.Errorf(
			"opening image: `%s`: %w",
			options.Backend,
			UnknownBackendErr,
		)
	}

	image.Device = blocks.NewVolumeDevice(volume, options.Blocks)
	if options.Delay > 0 {
		image.Delayed = blocks.NewDelayed(image.Device, options.Delay)
		image.Delayed.SetEnabled(true)
		image.Device = image.Delayed
	}
	if options.CacheSize > 0 {
		image.Device = blocks.NewCache(image.Device, options.CacheSize)
	}
	return &image, nil
}

// Close flushes buffered blocks and releases the backing store.
func (image *Image) Close() error {
	if err := blocks.Flush(image.Device); err != nil {
		image.closer()
		return fmt.Errorf("closing image: %w", err)
	}
	return image.closer()
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
