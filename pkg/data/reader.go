package data

import (
	"fmt"

	"github.com/weberc2/snfs/pkg/math"
	. "github.com/weberc2/snfs/pkg/types"
)

// Read copies content of `inode` starting at `offset` into `p` and returns
// the number of bytes copied. Reading at or past the end yields `0`.
func Read(fs *FileSystem, inode *Inode, offset Byte, p []byte) (Byte, error) {
	if offset < 0 {
		return 0, fmt.Errorf(
			"reading inode `%d` at offset `%d`: negative offset",
			inode.Ino,
			offset,
		)
	}
	if offset >= inode.Size {
		return 0, nil
	}

	total := math.Min(Byte(len(p)), inode.Size-offset)
	var buf [BlockSize]byte
	var chunkBegin Byte = 0
	for chunkBegin < total {
		at := offset + chunkBegin
		b, err := blockAt(inode, Block(at/BlockSize))
		if err != nil {
			return chunkBegin, fmt.Errorf(
				"reading inode `%d` at offset `%d`: %w",
				inode.Ino,
				at,
				err,
			)
		}
		if err := fs.Device.ReadBlock(b, &buf); err != nil {
			return chunkBegin, fmt.Errorf(
				"reading inode `%d` at offset `%d`: %w",
				inode.Ino,
				at,
				err,
			)
		}
		lo := at % BlockSize
		n := math.Min(BlockSize-lo, total-chunkBegin)
		copy(p[chunkBegin:chunkBegin+n], buf[lo:lo+n])
		chunkBegin += n
	}
	return total, nil
}

// blockAt returns the physical block behind logical block `i`, which must
// lie inside the inode's size.
func blockAt(inode *Inode, i Block) (Block, error) {
	if i >= DirectBlocksCount {
		return BlockNil, FileTooLargeErr
	}
	b := inode.DirectBlocks[i]
	if b < FirstDataBlock {
		return BlockNil, fmt.Errorf(
			"logical block `%d` maps to non-data block `%d`: %w",
			i,
			b,
			CorruptInodeErr,
		)
	}
	return b, nil
}
