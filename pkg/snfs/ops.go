package snfs

import (
	"errors"
	"fmt"

	"github.com/weberc2/snfs/pkg/data"
	"github.com/weberc2/snfs/pkg/directory"
	"github.com/weberc2/snfs/pkg/filesystem"
	. "github.com/weberc2/snfs/pkg/types"
)

type FileInfo = directory.FileInfo

// Attrs describes an inode. `Entries` is only set for directories.
type Attrs struct {
	Ino      Ino      `json:"ino"`
	FileType FileType `json:"fileType"`
	Size     Byte     `json:"size"`
	Entries  *int     `json:"entries,omitempty"`
}

// Lookup resolves an absolute path and returns the inode it names along
// with that inode's size.
func (fs *FileSystem) Lookup(path string) (Ino, Byte, error) {
	var ino Ino
	var size Byte
	err := fs.read(func(dfs *data.FileSystem) error {
		var info FileInfo
		if err := filesystem.Lookup(dfs, path, &info); err != nil {
			return err
		}
		var inode Inode
		if err := dfs.Metadata.Get(info.Ino, &inode); err != nil {
			return fmt.Errorf("looking up path `%s`: %w", path, err)
		}
		ino, size = inode.Ino, inode.Size
		return nil
	})
	return ino, size, err
}

func (fs *FileSystem) GetAttrs(ino Ino) (Attrs, error) {
	var attrs Attrs
	err := fs.read(func(dfs *data.FileSystem) error {
		var inode Inode
		if err := dfs.Metadata.Get(ino, &inode); err != nil {
			return fmt.Errorf("getting attributes: %w", err)
		}
		attrs = Attrs{Ino: ino, FileType: inode.FileType, Size: inode.Size}
		if inode.FileType == FileTypeDir {
			entries := int(inode.Size / DirEntrySize)
			attrs.Entries = &entries
		}
		return nil
	})
	return attrs, err
}

// Read returns up to `count` bytes of the file starting at `offset`. Reading
// at or past the end of the file returns no bytes and no error.
func (fs *FileSystem) Read(ino Ino, offset, count Byte) ([]byte, error) {
	if offset < 0 || count < 0 {
		return nil, fmt.Errorf(
			"reading `%d` bytes from inode `%d` at offset `%d`: %w",
			count,
			ino,
			offset,
			NegativeOffsetErr,
		)
	}

	var out []byte
	err := fs.read(func(dfs *data.FileSystem) error {
		var inode Inode
		if err := openFile(dfs, ino, &inode); err != nil {
			return fmt.Errorf("reading inode `%d`: %w", ino, err)
		}
		if offset >= inode.Size {
			out = []byte{}
			return nil
		}
		if remaining := inode.Size - offset; count > remaining {
			count = remaining
		}
		buf := make([]byte, count)
		n, err := data.Read(dfs, &inode, offset, buf)
		if err != nil {
			return err
		}
		out = buf[:n]
		return nil
	})
	return out, err
}

// Write stores `p` at `offset` and returns the file's new size. Offsets past
// the end of the file are clamped to the end.
func (fs *FileSystem) Write(ino Ino, offset Byte, p []byte) (Byte, error) {
	if offset < 0 {
		return 0, fmt.Errorf(
			"writing `%d` bytes to inode `%d` at offset `%d`: %w",
			len(p),
			ino,
			offset,
			NegativeOffsetErr,
		)
	}

	var size Byte
	err := fs.mutate("write", func(dfs *data.FileSystem) error {
		var inode Inode
		if err := openFile(dfs, ino, &inode); err != nil {
			return fmt.Errorf("writing inode `%d`: %w", ino, err)
		}
		if _, err := data.Write(dfs, &inode, offset, p); err != nil {
			return err
		}
		if err := dfs.Metadata.Put(&inode); err != nil {
			return err
		}
		size = inode.Size
		return nil
	})
	if err == nil {
		fs.logger.WithField("ino", ino).Debugf(
			"wrote `%d` bytes at offset `%d`; size `%d`",
			len(p),
			offset,
			size,
		)
	}
	return size, err
}

func (fs *FileSystem) Create(dir Ino, name string) (Ino, error) {
	return fs.add("create", dir, name, FileTypeRegular)
}

func (fs *FileSystem) Mkdir(dir Ino, name string) (Ino, error) {
	return fs.add("mkdir", dir, name, FileTypeDir)
}

func (fs *FileSystem) add(
	op string,
	dir Ino,
	name string,
	ft FileType,
) (Ino, error) {
	var ino Ino
	err := fs.mutate(op, func(dfs *data.FileSystem) error {
		var err error
		ino, err = directory.Add(dfs, dir, name, ft)
		return err
	})
	if err != nil {
		return InoNil, err
	}
	fs.logger.WithField("ino", ino).Debugf(
		"%s `%s` in dir `%d`",
		op,
		name,
		dir,
	)
	return ino, nil
}

// ReadDir lists up to `max` entries of `dir` in storage order. A `max` of
// zero or less lists every entry.
func (fs *FileSystem) ReadDir(dir Ino, max int) ([]FileInfo, error) {
	var infos []FileInfo
	err := fs.read(func(dfs *data.FileSystem) error {
		var err error
		infos, err = directory.ReadDir(dfs, dir, max)
		return err
	})
	return infos, err
}

// Remove unlinks `name` from `dir` and reclaims it. Directories are removed
// with everything beneath them.
func (fs *FileSystem) Remove(dir Ino, name string) error {
	if err := fs.mutate("remove", func(dfs *data.FileSystem) error {
		return directory.Remove(dfs, dir, name)
	}); err != nil {
		return err
	}
	fs.logger.WithField("ino", dir).Debugf("removed `%s`", name)
	return nil
}

// Append appends the content of file `src` in `srcDir` to the end of file
// `dst` in `dstDir` and returns the destination's new size. A file may be
// appended to itself.
func (fs *FileSystem) Append(
	srcDir Ino,
	src string,
	dstDir Ino,
	dst string,
) (Byte, error) {
	var size Byte
	err := fs.mutate("append", func(dfs *data.FileSystem) error {
		content, err := readNamed(dfs, srcDir, src)
		if err != nil {
			return fmt.Errorf("appending `%s` to `%s`: %w", src, dst, err)
		}

		var target Inode
		if err := openNamed(dfs, dstDir, dst, &target); err != nil {
			return fmt.Errorf("appending `%s` to `%s`: %w", src, dst, err)
		}
		if _, err := data.Write(dfs, &target, target.Size, content); err != nil {
			return fmt.Errorf("appending `%s` to `%s`: %w", src, dst, err)
		}
		if err := dfs.Metadata.Put(&target); err != nil {
			return err
		}
		size = target.Size
		return nil
	})
	return size, err
}

// Copy replaces the content of file `dst` in `dstDir` with the content of
// file `src` in `srcDir`, creating `dst` if it does not exist, and returns
// the destination inode.
func (fs *FileSystem) Copy(
	srcDir Ino,
	src string,
	dstDir Ino,
	dst string,
) (Ino, error) {
	var ino Ino
	err := fs.mutate("copy", func(dfs *data.FileSystem) error {
		content, err := readNamed(dfs, srcDir, src)
		if err != nil {
			return fmt.Errorf("copying `%s` to `%s`: %w", src, dst, err)
		}

		var target Inode
		err = openNamed(dfs, dstDir, dst, &target)
		if errors.Is(err, NotFoundErr) {
			if ino, err = directory.Add(
				dfs,
				dstDir,
				dst,
				FileTypeRegular,
			); err != nil {
				return fmt.Errorf("copying `%s` to `%s`: %w", src, dst, err)
			}
			err = openFile(dfs, ino, &target)
		}
		if err != nil {
			return fmt.Errorf("copying `%s` to `%s`: %w", src, dst, err)
		}

		if err := data.Truncate(dfs, &target, 0); err != nil {
			return err
		}
		if _, err := data.Write(dfs, &target, 0, content); err != nil {
			return fmt.Errorf("copying `%s` to `%s`: %w", src, dst, err)
		}
		ino = target.Ino
		return dfs.Metadata.Put(&target)
	})
	if err != nil {
		return InoNil, err
	}
	return ino, nil
}

func openFile(dfs *data.FileSystem, ino Ino, out *Inode) error {
	if err := dfs.Metadata.Get(ino, out); err != nil {
		return err
	}
	if out.FileType != FileTypeRegular {
		return fmt.Errorf(
			"inode `%d` has type `%s`: %w",
			ino,
			out.FileType,
			NotARegularFileErr,
		)
	}
	return nil
}

func openNamed(dfs *data.FileSystem, dir Ino, name string, out *Inode) error {
	var info FileInfo
	if err := directory.Lookup(dfs, dir, name, &info); err != nil {
		return err
	}
	return openFile(dfs, info.Ino, out)
}

func readNamed(dfs *data.FileSystem, dir Ino, name string) ([]byte, error) {
	var inode Inode
	if err := openNamed(dfs, dir, name, &inode); err != nil {
		return nil, err
	}
	content := make([]byte, inode.Size)
	if _, err := data.Read(dfs, &inode, 0, content); err != nil {
		return nil, err
	}
	return content, nil
}
