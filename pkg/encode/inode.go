package encode

import (
	. "github.com/weberc2/snfs/pkg/types"
)

func EncodeInode(inode *Inode, b *[InodeSize]byte) {
	p := b[:]

	putU32(p, inodeFileTypeStart, uint32(inode.FileType))
	putU32(p, inodeSizeStart, uint32(inode.Size))

	for i := Byte(0); i < Byte(DirectBlocksCount); i++ {
		blockPointerStart := inodeDirectBlocksStart + i*BlockPointerSize
		EncodeBlock(
			inode.DirectBlocks[i],
			(*[BlockPointerSize]byte)(p[blockPointerStart:]),
		)
	}

	for i := Byte(0); i < ReservedCount; i++ {
		putU32(p, inodeReservedStart+i*4, inode.Reserved[i])
	}
}

// DecodeInode does not validate the file type: free slots are legitimately
// zeroed (or stale) on disk. Callers validate in-use inodes.
func DecodeInode(inode *Inode, b *[InodeSize]byte) {
	p := b[:]

	inode.FileType = FileType(getU32(p, inodeFileTypeStart))
	inode.Size = Byte(getU32(p, inodeSizeStart))

	for i := Byte(0); i < Byte(DirectBlocksCount); i++ {
		blockPointerStart := inodeDirectBlocksStart + i*BlockPointerSize
		inode.DirectBlocks[i] = DecodeBlock(
			(*[BlockPointerSize]byte)(p[blockPointerStart:]),
		)
	}

	for i := Byte(0); i < ReservedCount; i++ {
		inode.Reserved[i] = getU32(p, inodeReservedStart+i*4)
	}
}

const (
	inodeFileTypeStart = 0
	inodeFileTypeSize  = 4
	inodeFileTypeEnd   = inodeFileTypeStart + inodeFileTypeSize

	inodeSizeStart = inodeFileTypeEnd
	inodeSizeSize  = 4
	inodeSizeEnd   = inodeSizeStart + inodeSizeSize

	inodeDirectBlocksStart = inodeSizeEnd
	inodeDirectBlocksSize  = Byte(DirectBlocksCount) * BlockPointerSize
	inodeDirectBlocksEnd   = inodeDirectBlocksStart + inodeDirectBlocksSize

	inodeReservedStart = inodeDirectBlocksEnd
	inodeReservedSize  = ReservedCount * 4
	inodeReservedEnd   = inodeReservedStart + inodeReservedSize
)
