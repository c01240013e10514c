package directory

import (
	"fmt"

	"github.com/weberc2/snfs/pkg/data"
	"github.com/weberc2/snfs/pkg/encode"
	. "github.com/weberc2/snfs/pkg/types"
)

// ReadEntry decodes the `index`th entry of `dir` into `out`.
func ReadEntry(fs *FileSystem, dir *Inode, index int, out *DirEntry) error {
	var buf [DirEntrySize]byte
	offset := Byte(index) * DirEntrySize
	n, err := data.Read(fs, dir, offset, buf[:])
	if err != nil {
		return fmt.Errorf(
			"reading entry `%d` of dir `%d`: %w",
			index,
			dir.Ino,
			err,
		)
	}
	if n != DirEntrySize {
		return fmt.Errorf(
			"reading entry `%d` of dir `%d`: short read of `%d` bytes: %w",
			index,
			dir.Ino,
			n,
			CorruptInodeErr,
		)
	}
	encode.DecodeDirEntry(out, &buf)
	return nil
}

// writeEntry overwrites the `index`th entry of `dir`, or appends when
// `index` is one past the last entry.
func writeEntry(fs *FileSystem, dir *Inode, index int, entry *DirEntry) error {
	var buf [DirEntrySize]byte
	encode.EncodeDirEntry(entry, &buf)
	if _, err := data.Write(
		fs,
		dir,
		Byte(index)*DirEntrySize,
		buf[:],
	); err != nil {
		return fmt.Errorf(
			"writing entry `%d` of dir `%d`: %w",
			index,
			dir.Ino,
			err,
		)
	}
	return nil
}

// readEntries decodes up to `max` entries of `dir` from a single read of its
// content. A non-positive `max` reads every entry.
func readEntries(fs *FileSystem, dir *Inode, max int) ([]DirEntry, error) {
	count := entryCount(dir)
	if max > 0 && max < count {
		count = max
	}

	buf := make([]byte, Byte(count)*DirEntrySize)
	n, err := data.Read(fs, dir, 0, buf)
	if err != nil {
		return nil, fmt.Errorf("reading entries of dir `%d`: %w", dir.Ino, err)
	}
	if n != Byte(len(buf)) {
		return nil, fmt.Errorf(
			"reading entries of dir `%d`: short read of `%d` bytes: %w",
			dir.Ino,
			n,
			CorruptInodeErr,
		)
	}

	entries := make([]DirEntry, count)
	for i := range entries {
		encode.DecodeDirEntry(
			&entries[i],
			(*[DirEntrySize]byte)(buf[Byte(i)*DirEntrySize:]),
		)
	}
	return entries, nil
}

// ReadDir returns up to `max` entries of `dirIno` in storage order with
// their file types resolved from the inode table. A non-positive `max`
// returns every entry.
func ReadDir(fs *FileSystem, dirIno Ino, max int) ([]FileInfo, error) {
	var dir Inode
	if err := Open(fs, dirIno, &dir); err != nil {
		return nil, fmt.Errorf("reading dir `%d`: %w", dirIno, err)
	}

	entries, err := readEntries(fs, &dir, max)
	if err != nil {
		return nil, fmt.Errorf("reading dir `%d`: %w", dirIno, err)
	}

	infos := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		var inode Inode
		if err := fs.Metadata.Get(entry.Ino, &inode); err != nil {
			return nil, fmt.Errorf(
				"reading dir `%d`: resolving entry `%s`: %w: %v",
				dirIno,
				entry.Name,
				CorruptInodeErr,
				err,
			)
		}

		infos = append(infos, FileInfo{
			Ino:      entry.Ino,
			FileType: inode.FileType,
			Name:     entry.Name,
		})
	}
	return infos, nil
}
