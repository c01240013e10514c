package encode

import (
	"encoding/binary"

	. "github.com/weberc2/snfs/pkg/types"
)

func putIno(b []byte, start Byte, u Ino) {
	putU16(b, start, uint16(u))
}

func getIno(b []byte, start Byte) Ino {
	return Ino(getU16(b, start))
}

func putU32(b []byte, start Byte, u uint32) {
	binary.LittleEndian.PutUint32(b[start:start+4], u)
}

func getU32(b []byte, start Byte) uint32 {
	return binary.LittleEndian.Uint32(b[start : start+4])
}

func putU16(b []byte, start Byte, u uint16) {
	binary.LittleEndian.PutUint16(b[start:start+2], u)
}

func getU16(b []byte, start Byte) uint16 {
	return binary.LittleEndian.Uint16(b[start : start+2])
}
