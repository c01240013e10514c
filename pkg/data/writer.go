package data

import (
	"fmt"

	"github.com/weberc2/snfs/pkg/math"
	. "github.com/weberc2/snfs/pkg/types"
)

// Write stores `p` in `inode` at `offset` and updates the inode's block list
// and size in place; the caller persists the inode. An offset past the end
// is clamped to the end: writes only ever extend a file contiguously.
//
// Blocks needed beyond the current size are reserved first-fit before any
// data is written. On error, every block reserved by this call is released
// and the inode is left as it was.
func Write(fs *FileSystem, inode *Inode, offset Byte, p []byte) (Byte, error) {
	if offset < 0 {
		return 0, fmt.Errorf(
			"writing inode `%d` at offset `%d`: negative offset",
			inode.Ino,
			offset,
		)
	}
	offset = math.Min(offset, inode.Size)
	end := offset + Byte(len(p))

	used := inode.BlocksUsed()
	wantedBlocks := Block(math.DivRoundUp(end, BlockSize))
	needed := math.Max(wantedBlocks, used) - used
	if used+needed > DirectBlocksCount {
		return 0, fmt.Errorf(
			"writing `%d` bytes to inode `%d` at offset `%d`: %w",
			len(p),
			inode.Ino,
			offset,
			FileTooLargeErr,
		)
	}

	blockAllocator := fs.Metadata.Blocks()
	allocated, err := blockAllocator.AllocN(needed)
	if err != nil {
		return 0, fmt.Errorf(
			"writing `%d` bytes to inode `%d` at offset `%d`: %w",
			len(p),
			inode.Ino,
			offset,
			err,
		)
	}

	original := *inode
	for i, b := range allocated {
		inode.DirectBlocks[used+Block(i)] = b
	}

	if err := writeChunks(fs, inode, used, offset, p); err != nil {
		for _, b := range allocated {
			blockAllocator.Free(b)
		}
		*inode = original
		return 0, fmt.Errorf(
			"writing `%d` bytes to inode `%d` at offset `%d`: %w",
			len(p),
			inode.Ino,
			offset,
			err,
		)
	}

	inode.Size = math.Max(end, inode.Size)
	return Byte(len(p)), nil
}

// writeChunks copies `p` into the block list block by block. Blocks below
// `used` already hold content and are read-modify-written when only partly
// covered; newer blocks are written directly, zero-padded.
func writeChunks(
	fs *FileSystem,
	inode *Inode,
	used Block,
	offset Byte,
	p []byte,
) error {
	var buf [BlockSize]byte
	var chunkBegin Byte = 0
	for chunkBegin < Byte(len(p)) {
		at := offset + chunkBegin
		logical := Block(at / BlockSize)
		b, err := blockAt(inode, logical)
		if err != nil {
			return err
		}

		lo := at % BlockSize
		n := math.Min(BlockSize-lo, Byte(len(p))-chunkBegin)

		if logical < used && n < BlockSize {
			if err := fs.Device.ReadBlock(b, &buf); err != nil {
				return err
			}
		} else {
			buf = [BlockSize]byte{}
		}

		copy(buf[lo:lo+n], p[chunkBegin:chunkBegin+n])
		if err := fs.Device.WriteBlock(b, &buf); err != nil {
			return err
		}
		chunkBegin += n
	}
	return nil
}

// Truncate shrinks `inode` to `size`, releasing blocks no longer covered.
// Sizes larger than the current size are rejected; use `Write` to grow.
func Truncate(fs *FileSystem, inode *Inode, size Byte) error {
	if size < 0 || size > inode.Size {
		return fmt.Errorf(
			"truncating inode `%d` from `%d` to `%d` bytes: invalid size",
			inode.Ino,
			inode.Size,
			size,
		)
	}

	keep := Block(math.DivRoundUp(size, BlockSize))
	blockAllocator := fs.Metadata.Blocks()
	for i := keep; i < inode.BlocksUsed(); i++ {
		blockAllocator.Free(inode.DirectBlocks[i])
		inode.DirectBlocks[i] = BlockNil
	}
	inode.Size = size
	return nil
}
