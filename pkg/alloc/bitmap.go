package alloc

import (
	"github.com/weberc2/snfs/pkg/math"
)

const bitsPerByte = 8

// Bitmap is a view over a byte slice in which bit `n` lives at
// `bytes[n/8] & (1 << n%8)`. Only the first `size` bits are addressable.
type Bitmap struct {
	bytes []byte
	size  uint64
}

func New(size uint64) Bitmap {
	return Bitmap{
		bytes: make([]byte, math.DivRoundUp(size, bitsPerByte)),
		size:  size,
	}
}

// View wraps existing storage. `size` is clamped to the number of bits the
// storage can hold.
func View(bytes []byte, size uint64) Bitmap {
	return Bitmap{
		bytes: bytes,
		size:  math.Min(size, uint64(len(bytes))*bitsPerByte),
	}
}

func (bm Bitmap) Size() uint64 { return bm.size }

func (bm Bitmap) Bytes() []byte { return bm.bytes }

// FindFree returns the lowest clear bit without reserving it.
func (bm Bitmap) FindFree() (uint64, bool) {
	for i, byt := range bm.bytes {
		if byt == 0xff {
			continue
		}
		for bit := uint8(0); bit < bitsPerByte; bit++ {
			value := uint64(i)*bitsPerByte + uint64(bit)
			if value >= bm.size {
				return 0, false
			}
			if byteIsZero(byt, bit) {
				return value, true
			}
		}
	}
	return 0, false
}

func (bm Bitmap) Alloc() (uint64, bool) {
	value, ok := bm.FindFree()
	if !ok {
		return 0, false
	}
	bm.Reserve(value)
	return value, true
}

func (bm Bitmap) Free(value uint64) {
	b := &bm.bytes[value/bitsPerByte]
	*b = byteSetLow(*b, uint8(value%bitsPerByte))
}

func (bm Bitmap) Reserve(value uint64) {
	b := &bm.bytes[value/bitsPerByte]
	*b = byteSetHigh(*b, uint8(value%bitsPerByte))
}

func (bm Bitmap) IsSet(value uint64) bool {
	if value >= bm.size {
		return false
	}
	return !byteIsZero(bm.bytes[value/bitsPerByte], uint8(value%bitsPerByte))
}

// Count returns the number of set bits.
func (bm Bitmap) Count() uint64 {
	var n uint64
	for value := uint64(0); value < bm.size; value++ {
		if bm.IsSet(value) {
			n++
		}
	}
	return n
}

func byteIsZero(byt byte, bit uint8) bool {
	return byt&(1<<bit) == 0
}

func byteSetHigh(byt byte, bit uint8) byte {
	return byt | (1 << bit)
}

func byteSetLow(byt byte, bit uint8) byte {
	return byt & ^(1 << bit)
}
