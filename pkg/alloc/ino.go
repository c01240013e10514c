package alloc

import (
	"fmt"

	. "github.com/weberc2/snfs/pkg/types"
)

type InoAllocator struct {
	Allocator
}

func (ia InoAllocator) Alloc() (Ino, error) {
	if ino, ok := ia.Allocator.Alloc(); ok {
		return Ino(ino), nil
	}
	return InoNil, fmt.Errorf("allocating ino: %w", OutOfInosErr)
}

func (ia InoAllocator) Free(ino Ino) {
	ia.Allocator.Free(uint64(ino))
}

func (ia InoAllocator) Reserve(ino Ino) {
	ia.Allocator.Reserve(uint64(ino))
}

func (ia InoAllocator) InUse(ino Ino) bool {
	return ia.Allocator.IsSet(uint64(ino))
}
