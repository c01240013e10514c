package directory

import (
	"fmt"

	. "github.com/weberc2/snfs/pkg/types"
)

// Open loads the inode for `ino` into `out` and checks that it is a
// directory.
func Open(fs *FileSystem, ino Ino, out *Inode) error {
	if err := fs.Metadata.Get(ino, out); err != nil {
		return fmt.Errorf("opening dir `%d`: %w", ino, err)
	}
	if out.FileType != FileTypeDir {
		return fmt.Errorf("opening dir `%d`: %w", ino, NotADirErr)
	}
	if out.Size%DirEntrySize != 0 {
		return fmt.Errorf(
			"opening dir `%d`: size `%d` is not a multiple of `%d`: %w",
			ino,
			out.Size,
			DirEntrySize,
			CorruptInodeErr,
		)
	}
	return nil
}

func entryCount(dir *Inode) int {
	return int(dir.Size / DirEntrySize)
}
