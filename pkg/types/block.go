package types

type Block uint32

type Byte int64

const (
	BlockSize        Byte = 512
	BlockPointerSize Byte = 4

	BlockNil Block = 0

	BlockBitmapBlock Block = 0
	InoBitmapBlock   Block = 1
	InodeTableStart  Block = 2
	InodeTableBlocks Block = 8
	InodeTableEnd    Block = InodeTableStart + InodeTableBlocks

	// FirstDataBlock is the lowest block number that may hold file or
	// directory content.
	FirstDataBlock Block = InodeTableEnd

	// MaxBlocks is the number of blocks a single-block bitmap can address.
	MaxBlocks Block = Block(BlockSize) * 8

	DefaultBlockCount Block = 8 * 1024 * 2
)
