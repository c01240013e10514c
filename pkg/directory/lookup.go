package directory

import (
	"fmt"

	. "github.com/weberc2/snfs/pkg/types"
)

// Lookup scans `dirIno` for `name` and fills `out` with the match.
// `NotFoundErr` is returned when no entry carries that name.
func Lookup(fs *FileSystem, dirIno Ino, name string, out *FileInfo) error {
	var dir Inode
	if err := Open(fs, dirIno, &dir); err != nil {
		return fmt.Errorf("looking up `%s` in dir `%d`: %w", name, dirIno, err)
	}

	index, entry, err := search(fs, &dir, name)
	if err != nil {
		return fmt.Errorf("looking up `%s` in dir `%d`: %w", name, dirIno, err)
	}
	if index < 0 {
		return fmt.Errorf(
			"looking up `%s` in dir `%d`: %w",
			name,
			dirIno,
			NotFoundErr,
		)
	}

	var inode Inode
	if err := fs.Metadata.Get(entry.Ino, &inode); err != nil {
		return fmt.Errorf(
			"looking up `%s` in dir `%d`: %w: %v",
			name,
			dirIno,
			CorruptInodeErr,
			err,
		)
	}

	*out = FileInfo{Ino: entry.Ino, FileType: inode.FileType, Name: name}
	return nil
}

// search returns the index and value of the entry named `name`, or `-1`
// when absent.
func search(fs *FileSystem, dir *Inode, name string) (int, DirEntry, error) {
	entries, err := readEntries(fs, dir, 0)
	if err != nil {
		return -1, DirEntry{}, err
	}
	for i, entry := range entries {
		if entry.Name == name {
			return i, entry, nil
		}
	}
	return -1, DirEntry{}, nil
}
