package directory

import (
	"fmt"
	"strings"

	. "github.com/weberc2/snfs/pkg/types"
)

// ValidateName checks that `name` fits a directory entry.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("validating name: %w", EmptyNameErr)
	}
	if len(name) > MaxNameLen {
		return fmt.Errorf(
			"validating name `%s` (max `%d` bytes): %w",
			name,
			MaxNameLen,
			NameTooLongErr,
		)
	}
	if strings.ContainsAny(name, "/\x00") {
		return fmt.Errorf("validating name `%q`: %w", name, InvalidNameErr)
	}
	return nil
}

// Add allocates a new inode of type `ft` and links it into `dirIno` under
// `name`. The directory grows by one block when its last block is full.
// Nothing is modified if any step fails.
func Add(fs *FileSystem, dirIno Ino, name string, ft FileType) (Ino, error) {
	if err := ft.Validate(); err != nil {
		return InoNil, fmt.Errorf(
			"adding `%s` to dir `%d`: %w",
			name,
			dirIno,
			err,
		)
	}

	var dir Inode
	if err := Open(fs, dirIno, &dir); err != nil {
		return InoNil, fmt.Errorf(
			"adding `%s` to dir `%d`: %w",
			name,
			dirIno,
			err,
		)
	}

	if err := ValidateName(name); err != nil {
		return InoNil, fmt.Errorf(
			"adding `%s` to dir `%d`: %w",
			name,
			dirIno,
			err,
		)
	}

	index, _, err := search(fs, &dir, name)
	if err != nil {
		return InoNil, fmt.Errorf(
			"adding `%s` to dir `%d`: %w",
			name,
			dirIno,
			err,
		)
	}
	if index >= 0 {
		return InoNil, fmt.Errorf(
			"adding `%s` to dir `%d`: %w",
			name,
			dirIno,
			ExistsErr,
		)
	}

	inoAllocator := fs.Metadata.Inos()
	ino, err := inoAllocator.Alloc()
	if err != nil {
		return InoNil, fmt.Errorf(
			"adding `%s` to dir `%d`: %w",
			name,
			dirIno,
			err,
		)
	}

	if err := writeEntry(
		fs,
		&dir,
		entryCount(&dir),
		&DirEntry{Name: name, Ino: ino},
	); err != nil {
		inoAllocator.Free(ino)
		return InoNil, fmt.Errorf(
			"adding `%s` to dir `%d`: %w",
			name,
			dirIno,
			err,
		)
	}

	if err := fs.Metadata.Put(&Inode{Ino: ino, FileType: ft}); err != nil {
		return InoNil, fmt.Errorf(
			"adding `%s` to dir `%d`: %w",
			name,
			dirIno,
			err,
		)
	}
	if err := fs.Metadata.Put(&dir); err != nil {
		return InoNil, fmt.Errorf(
			"adding `%s` to dir `%d`: %w",
			name,
			dirIno,
			err,
		)
	}
	return ino, nil
}
