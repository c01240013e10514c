package directory

import (
	"fmt"

	"github.com/weberc2/snfs/pkg/data"
	. "github.com/weberc2/snfs/pkg/types"
)

// Remove unlinks `name` from `dirIno` and releases the target. The last
// entry of the directory moves into the vacated slot, so removal does not
// preserve entry order. Directories are released with all of their
// descendants.
func Remove(fs *FileSystem, dirIno Ino, name string) error {
	if err := ValidateName(name); err != nil {
		return fmt.Errorf("removing `%s` from dir `%d`: %w", name, dirIno, err)
	}

	var dir Inode
	if err := Open(fs, dirIno, &dir); err != nil {
		return fmt.Errorf("removing `%s` from dir `%d`: %w", name, dirIno, err)
	}

	index, entry, err := search(fs, &dir, name)
	if err != nil {
		return fmt.Errorf("removing `%s` from dir `%d`: %w", name, dirIno, err)
	}
	if index < 0 {
		return fmt.Errorf(
			"removing `%s` from dir `%d`: %w",
			name,
			dirIno,
			NotFoundErr,
		)
	}

	if err := unlink(fs, &dir, index); err != nil {
		return fmt.Errorf("removing `%s` from dir `%d`: %w", name, dirIno, err)
	}
	if err := RemoveTree(fs, entry.Ino); err != nil {
		return fmt.Errorf("removing `%s` from dir `%d`: %w", name, dirIno, err)
	}
	return nil
}

// unlink compacts `dir` over the entry at `index` and persists it.
func unlink(fs *FileSystem, dir *Inode, index int) error {
	last := entryCount(dir) - 1
	if index != last {
		var moved DirEntry
		if err := ReadEntry(fs, dir, last, &moved); err != nil {
			return err
		}
		if err := writeEntry(fs, dir, index, &moved); err != nil {
			return err
		}
	}

	// releases the trailing block once it holds no entries
	if err := data.Truncate(fs, dir, dir.Size-DirEntrySize); err != nil {
		return err
	}
	return fs.Metadata.Put(dir)
}

// RemoveTree releases `ino` and, if it is a directory, everything beneath
// it. Children are released before their parent.
func RemoveTree(fs *FileSystem, ino Ino) error {
	return removeTree(fs, ino, 0)
}

func removeTree(fs *FileSystem, ino Ino, depth int) error {
	// a well-formed tree cannot be deeper than the inode table
	if depth > int(InodeCount) {
		return fmt.Errorf(
			"releasing inode `%d`: tree deeper than `%d`: %w",
			ino,
			InodeCount,
			CorruptInodeErr,
		)
	}

	var inode Inode
	if err := fs.Metadata.Get(ino, &inode); err != nil {
		return fmt.Errorf("releasing inode `%d`: %w", ino, err)
	}
	if ino == InoRoot {
		return fmt.Errorf(
			"releasing inode `%d`: root is never released: %w",
			ino,
			CorruptInodeErr,
		)
	}

	if inode.FileType == FileTypeDir {
		children, err := readEntries(fs, &inode, 0)
		if err != nil {
			return fmt.Errorf("releasing inode `%d`: %w", ino, err)
		}
		for _, child := range children {
			if err := removeTree(fs, child.Ino, depth+1); err != nil {
				return fmt.Errorf("releasing inode `%d`: %w", ino, err)
			}
		}
	}

	if err := data.Truncate(fs, &inode, 0); err != nil {
		return fmt.Errorf("releasing inode `%d`: %w", ino, err)
	}
	fs.Metadata.Inos().Free(ino)
	return fs.Metadata.Put(&Inode{Ino: ino})
}
