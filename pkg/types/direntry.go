package types

const (
	DirEntrySize Byte = 16
	NameSize     Byte = DirEntrySize - InoSize

	// MaxNameLen leaves room for the terminating NUL.
	MaxNameLen = int(NameSize) - 1

	DirEntriesPerBlock = BlockSize / DirEntrySize
)

type DirEntry struct {
	Name string
	Ino  Ino
}
