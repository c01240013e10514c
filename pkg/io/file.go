package io

import (
	"fmt"
	"os"

	. "github.com/weberc2/snfs/pkg/types"
)

// FileVolume is a volume backed by an image file on the host file system.
type FileVolume struct {
	file *os.File
}

// OpenFileVolume opens (creating if necessary) the image at `path` and
// grows it to at least `size` bytes.
func OpenFileVolume(path string, size Byte) (*FileVolume, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening image file `%s`: %w", path, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat-ing image file `%s`: %w", path, err)
	}

	if Byte(info.Size()) < size {
		if err := file.Truncate(int64(size)); err != nil {
			file.Close()
			return nil, fmt.Errorf(
				"growing image file `%s` to `%d` bytes: %w",
				path,
				size,
				err,
			)
		}
	}

	return &FileVolume{file: file}, nil
}

func (volume *FileVolume) ReadAt(offset Byte, buffer []byte) error {
	if _, err := volume.file.ReadAt(buffer, int64(offset)); err != nil {
		return fmt.Errorf(
			"reading file `%s` at offset `%d`: %w",
			volume.file.Name(),
			offset,
			err,
		)
	}
	return nil
}

func (volume *FileVolume) WriteAt(offset Byte, buffer []byte) error {
	if _, err := volume.file.WriteAt(buffer, int64(offset)); err != nil {
		return fmt.Errorf(
			"writing file `%s` at offset `%d`: %w",
			volume.file.Name(),
			offset,
			err,
		)
	}
	return nil
}

func (volume *FileVolume) Sync() error {
	if err := volume.file.Sync(); err != nil {
		return fmt.Errorf("syncing file `%s`: %w", volume.file.Name(), err)
	}
	return nil
}

func (volume *FileVolume) Close() error {
	return volume.file.Close()
}
