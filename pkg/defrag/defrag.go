// Package defrag compacts the data region of a file system in place.
package defrag

import (
	"fmt"

	"github.com/weberc2/snfs/pkg/data"
	. "github.com/weberc2/snfs/pkg/types"
)

type FileSystem = data.FileSystem

// Relocation records one block move. `Ino` is `InoNil` for an allocated
// block that no inode references.
type Relocation struct {
	Ino   Ino   `json:"ino"`
	Index Block `json:"index"`
	From  Block `json:"from"`
	To    Block `json:"to"`
}

type owner struct {
	ino   Ino
	index Block
}

// Defrag moves every allocated data block down to the lowest free data
// position, scanning upward, so that allocated blocks end up contiguous from
// `FirstDataBlock`. Each moved block keeps its logical position in its
// owner's block list. Running it again without intervening writes moves
// nothing. Only the in-memory metadata is updated; the caller flushes it.
func Defrag(fs *FileSystem) ([]Relocation, error) {
	owners, err := ownership(fs)
	if err != nil {
		return nil, fmt.Errorf("defragmenting: %w", err)
	}

	blockAllocator := fs.Metadata.Blocks()
	var relocations []Relocation
	var buf [BlockSize]byte
	cursor := FirstDataBlock
	for pos := FirstDataBlock; pos < fs.Metadata.BlockCount; pos++ {
		if !blockAllocator.InUse(pos) {
			continue
		}
		if pos == cursor {
			cursor++
			continue
		}

		if err := fs.Device.ReadBlock(pos, &buf); err != nil {
			return relocations, fmt.Errorf(
				"defragmenting: moving block `%d` to `%d`: %w",
				pos,
				cursor,
				err,
			)
		}
		if err := fs.Device.WriteBlock(cursor, &buf); err != nil {
			return relocations, fmt.Errorf(
				"defragmenting: moving block `%d` to `%d`: %w",
				pos,
				cursor,
				err,
			)
		}

		relocation := Relocation{From: pos, To: cursor}
		if o, found := owners[pos]; found {
			var inode Inode
			if err := fs.Metadata.Get(o.ino, &inode); err != nil {
				return relocations, fmt.Errorf("defragmenting: %w", err)
			}
			inode.DirectBlocks[o.index] = cursor
			if err := fs.Metadata.Put(&inode); err != nil {
				return relocations, fmt.Errorf("defragmenting: %w", err)
			}
			relocation.Ino = o.ino
			relocation.Index = o.index
		}

		blockAllocator.Free(pos)
		blockAllocator.Reserve(cursor)
		relocations = append(relocations, relocation)
		cursor++
	}

	return relocations, nil
}

// ownership maps every referenced data block to the inode slot that holds
// it. A block referenced twice, or a referenced block that the bitmap marks
// free, is reported as corruption.
func ownership(fs *FileSystem) (map[Block]owner, error) {
	owners := make(map[Block]owner)
	blockAllocator := fs.Metadata.Blocks()
	inoAllocator := fs.Metadata.Inos()
	for ino := InoRoot; ino < InodeCount; ino++ {
		if !inoAllocator.InUse(ino) {
			continue
		}

		var inode Inode
		if err := fs.Metadata.Get(ino, &inode); err != nil {
			return nil, err
		}

		for i := Block(0); i < inode.BlocksUsed(); i++ {
			b := inode.DirectBlocks[i]
			if b < FirstDataBlock || !blockAllocator.InUse(b) {
				return nil, fmt.Errorf(
					"inode `%d` references unallocated block `%d`: %w",
					ino,
					b,
					CorruptInodeErr,
				)
			}
			if prev, found := owners[b]; found {
				return nil, fmt.Errorf(
					"block `%d` referenced by inodes `%d` and `%d`: %w",
					b,
					prev.ino,
					ino,
					CorruptInodeErr,
				)
			}
			owners[b] = owner{ino: ino, index: i}
		}
	}
	return owners, nil
}
