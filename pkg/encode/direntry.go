package encode

import (
	"bytes"

	. "github.com/weberc2/snfs/pkg/types"
)

// EncodeDirEntry writes the NUL-padded name followed by the ino. Names
// longer than `MaxNameLen` are truncated; callers validate beforehand.
func EncodeDirEntry(entry *DirEntry, b *[DirEntrySize]byte) {
	p := b[:]
	name := p[dirEntryNameStart:dirEntryNameEnd]
	for i := range name {
		name[i] = 0
	}
	n := len(entry.Name)
	if n > MaxNameLen {
		n = MaxNameLen
	}
	copy(name, entry.Name[:n])
	putIno(p, dirEntryInoStart, entry.Ino)
}

func DecodeDirEntry(entry *DirEntry, b *[DirEntrySize]byte) {
	p := b[:]
	name := p[dirEntryNameStart:dirEntryNameEnd]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	entry.Name = string(name)
	entry.Ino = getIno(p, dirEntryInoStart)
}

const (
	dirEntryNameStart = 0
	dirEntryNameSize  = NameSize
	dirEntryNameEnd   = dirEntryNameStart + dirEntryNameSize

	dirEntryInoStart = dirEntryNameEnd
	dirEntryInoSize  = InoSize
	dirEntryInoEnd   = dirEntryInoStart + dirEntryInoSize
)
