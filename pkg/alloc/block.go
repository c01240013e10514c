package alloc

import (
	"fmt"

	. "github.com/weberc2/snfs/pkg/types"
)

type BlockAllocator struct {
	Allocator
}

func (ba BlockAllocator) Alloc() (Block, error) {
	if b, ok := ba.Allocator.Alloc(); ok {
		return Block(b), nil
	}
	return BlockNil, fmt.Errorf("allocating block: %w", OutOfBlocksErr)
}

// AllocN reserves `n` blocks first-fit. Either all `n` are reserved or, on
// exhaustion, none are.
func (ba BlockAllocator) AllocN(n Block) ([]Block, error) {
	blocks := make([]Block, 0, n)
	for i := Block(0); i < n; i++ {
		b, err := ba.Alloc()
		if err != nil {
			for _, reserved := range blocks {
				ba.Free(reserved)
			}
			return nil, fmt.Errorf(
				"allocating `%d` blocks (reserved `%d`): %w",
				n,
				i,
				err,
			)
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}

func (ba BlockAllocator) Free(b Block) {
	ba.Allocator.Free(uint64(b))
}

func (ba BlockAllocator) Reserve(b Block) {
	ba.Allocator.Reserve(uint64(b))
}

func (ba BlockAllocator) InUse(b Block) bool {
	return ba.Allocator.IsSet(uint64(b))
}
