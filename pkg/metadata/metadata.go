// Package metadata keeps the in-memory mirror of the block bitmap, the
// inode bitmap and the inode table, and moves it to and from blocks 0–9.
package metadata

import (
	"fmt"

	"github.com/weberc2/snfs/pkg/alloc"
	"github.com/weberc2/snfs/pkg/blocks"
	"github.com/weberc2/snfs/pkg/encode"
	"github.com/weberc2/snfs/pkg/math"
	. "github.com/weberc2/snfs/pkg/types"
)

// Metadata holds only values so that a plain copy is a complete snapshot.
type Metadata struct {
	BlockBitmap [BlockSize]byte
	InoBitmap   [BlockSize]byte
	Inodes      [InodeCount]Inode

	// BlockCount is the number of blocks addressable by the block bitmap.
	BlockCount Block
}

var _ InodeStore = (*Metadata)(nil)

const (
	TooFewBlocksErr ConstError = "device too small"
)

func usableBlocks(d blocks.Device) Block {
	return math.Min(d.BlockCount(), MaxBlocks)
}

// Format zeroes the device and writes an empty file system containing only
// the root directory.
func Format(d blocks.Device) (*Metadata, error) {
	if d.BlockCount() <= FirstDataBlock {
		return nil, fmt.Errorf(
			"formatting device with `%d` blocks: %w",
			d.BlockCount(),
			TooFewBlocksErr,
		)
	}

	var zero [BlockSize]byte
	for b := Block(0); b < d.BlockCount(); b++ {
		if err := d.WriteBlock(b, &zero); err != nil {
			return nil, fmt.Errorf("formatting device: %w", err)
		}
	}

	md := Metadata{BlockCount: usableBlocks(d)}
	for i := range md.Inodes {
		md.Inodes[i].Ino = Ino(i)
	}

	blockAllocator := md.Blocks()
	for b := Block(0); b < FirstDataBlock; b++ {
		blockAllocator.Reserve(b)
	}

	inoAllocator := md.Inos()
	inoAllocator.Reserve(InoNil)
	inoAllocator.Reserve(InoRoot)
	md.Inodes[InoRoot].FileType = FileTypeDir

	if err := md.Flush(d); err != nil {
		return nil, fmt.Errorf("formatting device: %w", err)
	}
	return &md, nil
}

// Load reads the metadata regions of an existing image.
func Load(d blocks.Device) (*Metadata, error) {
	if d.BlockCount() <= FirstDataBlock {
		return nil, fmt.Errorf(
			"loading metadata from device with `%d` blocks: %w",
			d.BlockCount(),
			TooFewBlocksErr,
		)
	}

	md := Metadata{BlockCount: usableBlocks(d)}
	if err := d.ReadBlock(BlockBitmapBlock, &md.BlockBitmap); err != nil {
		return nil, fmt.Errorf("loading block bitmap: %w", err)
	}
	if err := d.ReadBlock(InoBitmapBlock, &md.InoBitmap); err != nil {
		return nil, fmt.Errorf("loading inode bitmap: %w", err)
	}

	var buf [BlockSize]byte
	for b := InodeTableStart; b < InodeTableEnd; b++ {
		if err := d.ReadBlock(b, &buf); err != nil {
			return nil, fmt.Errorf("loading inode table: %w", err)
		}
		for i := Byte(0); i < inodesPerBlock; i++ {
			ino := Ino(Byte(b-InodeTableStart)*inodesPerBlock + i)
			encode.DecodeInode(
				&md.Inodes[ino],
				(*[InodeSize]byte)(buf[i*InodeSize:]),
			)
			md.Inodes[ino].Ino = ino
		}
	}

	return &md, nil
}

// Flush writes the bitmaps and the inode table together, then flushes the
// device if it buffers writes.
func (md *Metadata) Flush(d blocks.Device) error {
	if err := md.Store(d); err != nil {
		return err
	}
	if err := blocks.Flush(d); err != nil {
		return fmt.Errorf("flushing device: %w", err)
	}
	return nil
}

// Store writes the bitmaps and the inode table to blocks 0..9 without
// flushing `d`.
func (md *Metadata) Store(d blocks.Device) error {
	if err := d.WriteBlock(BlockBitmapBlock, &md.BlockBitmap); err != nil {
		return fmt.Errorf("storing block bitmap: %w", err)
	}
	if err := d.WriteBlock(InoBitmapBlock, &md.InoBitmap); err != nil {
		return fmt.Errorf("storing inode bitmap: %w", err)
	}

	var buf [BlockSize]byte
	for b := InodeTableStart; b < InodeTableEnd; b++ {
		for i := Byte(0); i < inodesPerBlock; i++ {
			ino := Ino(Byte(b-InodeTableStart)*inodesPerBlock + i)
			encode.EncodeInode(
				&md.Inodes[ino],
				(*[InodeSize]byte)(buf[i*InodeSize:]),
			)
		}
		if err := d.WriteBlock(b, &buf); err != nil {
			return fmt.Errorf("storing inode table block `%d`: %w", b, err)
		}
	}
	return nil
}

const inodesPerBlock = BlockSize / InodeSize

func (md *Metadata) Blocks() alloc.BlockAllocator {
	return alloc.BlockAllocator{
		Allocator: alloc.View(md.BlockBitmap[:], uint64(md.BlockCount)),
	}
}

func (md *Metadata) Inos() alloc.InoAllocator {
	return alloc.InoAllocator{
		Allocator: alloc.View(md.InoBitmap[:], uint64(InodeCount)),
	}
}

// Get copies an in-use inode into `out`. The slot must be in range and
// allocated, and must carry a known file type.
func (md *Metadata) Get(ino Ino, out *Inode) error {
	if ino == InoNil || ino >= InodeCount {
		return fmt.Errorf("getting inode `%d`: %w", ino, InvalidInoErr)
	}
	if !md.Inos().InUse(ino) {
		return fmt.Errorf("getting inode `%d`: %w", ino, InoNotInUseErr)
	}
	inode := &md.Inodes[ino]
	if err := inode.FileType.Validate(); err != nil {
		return fmt.Errorf(
			"getting inode `%d`: %w: %v",
			ino,
			CorruptInodeErr,
			err,
		)
	}
	if inode.Size < 0 || inode.Size > MaxFileSize {
		return fmt.Errorf(
			"getting inode `%d`: size `%d` exceeds capacity: %w",
			ino,
			inode.Size,
			CorruptInodeErr,
		)
	}
	*out = *inode
	return nil
}

func (md *Metadata) Put(inode *Inode) error {
	if inode.Ino >= InodeCount {
		return fmt.Errorf("putting inode `%d`: %w", inode.Ino, InvalidInoErr)
	}
	md.Inodes[inode.Ino] = *inode
	return nil
}

// Snapshot returns a copy of the mirror; see `Restore`.
func (md *Metadata) Snapshot() Metadata { return *md }

func (md *Metadata) Restore(snapshot *Metadata) { *md = *snapshot }
