package blocks

import (
	"fmt"

	"github.com/weberc2/snfs/pkg/io"
	. "github.com/weberc2/snfs/pkg/types"
)

type Device interface {
	ReadBlock(b Block, out *[BlockSize]byte) error
	WriteBlock(b Block, data *[BlockSize]byte) error
	BlockCount() Block
}

// Flusher is implemented by devices that buffer writes.
type Flusher interface {
	Flush() error
}

var (
	_ Device  = (*VolumeDevice)(nil)
	_ Device  = (*Delayed)(nil)
	_ Device  = (*Cache)(nil)
	_ Flusher = (*Cache)(nil)
	_ Flusher = (*Delayed)(nil)
	_ Flusher = (*VolumeDevice)(nil)
)

// VolumeDevice addresses a volume in block-sized units.
type VolumeDevice struct {
	volume io.Volume
	count  Block
}

func NewVolumeDevice(volume io.Volume, count Block) *VolumeDevice {
	return &VolumeDevice{volume: volume, count: count}
}

// NewMemoryDevice returns a zeroed in-memory device of `count` blocks.
func NewMemoryDevice(count Block) *VolumeDevice {
	return NewVolumeDevice(
		io.NewBuffer(make([]byte, Byte(count)*BlockSize)),
		count,
	)
}

func (d *VolumeDevice) BlockCount() Block { return d.count }

func (d *VolumeDevice) ReadBlock(b Block, out *[BlockSize]byte) error {
	if b >= d.count {
		return fmt.Errorf("reading block `%d`: %w", b, BlockOutOfRangeErr)
	}
	if err := d.volume.ReadAt(Byte(b)*BlockSize, out[:]); err != nil {
		return fmt.Errorf("reading block `%d`: %w", b, err)
	}
	return nil
}

func (d *VolumeDevice) WriteBlock(b Block, data *[BlockSize]byte) error {
	if b >= d.count {
		return fmt.Errorf("writing block `%d`: %w", b, BlockOutOfRangeErr)
	}
	if err := d.volume.WriteAt(Byte(b)*BlockSize, data[:]); err != nil {
		return fmt.Errorf("writing block `%d`: %w", b, err)
	}
	return nil
}

type syncer interface {
	Sync() error
}

// Flush syncs the volume if it supports syncing.
func (d *VolumeDevice) Flush() error {
	if s, ok := d.volume.(syncer); ok {
		return s.Sync()
	}
	return nil
}

// Flush flushes `d` if it buffers writes.
func Flush(d Device) error {
	if f, ok := d.(Flusher); ok {
		return f.Flush()
	}
	return nil
}
