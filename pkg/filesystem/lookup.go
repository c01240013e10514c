package filesystem

import (
	"errors"
	"fmt"
	"strings"

	"github.com/weberc2/snfs/pkg/directory"
	. "github.com/weberc2/snfs/pkg/types"
)

type FileSystem = directory.FileSystem
type FileInfo = directory.FileInfo

const (
	MalformedPathErr ConstError = "malformed path"
)

// Lookup resolves an absolute path starting at the root directory.
// Malformed paths (relative, containing an empty component, or walking
// through something other than a directory) fail with `MalformedPathErr`
// or `NotAbsolutePathErr`; well-formed paths naming nothing fail with
// `NotFoundErr`. A single trailing slash is accepted for directories.
func Lookup(fs *FileSystem, path string, out *FileInfo) error {
	if path == "" || path[0] != '/' {
		return fmt.Errorf("looking up path `%s`: %w", path, NotAbsolutePathErr)
	}

	chunks := strings.Split(path[1:], "/")
	trailingSlash := false
	if n := len(chunks); n > 1 && chunks[n-1] == "" && chunks[n-2] != "" {
		chunks = chunks[:n-1]
		trailingSlash = true
	}

	info := FileInfo{Ino: InoRoot, FileType: FileTypeDir, Name: "/"}
	if len(chunks) == 1 && chunks[0] == "" {
		*out = info
		return nil
	}

	for _, chunk := range chunks {
		if chunk == "" {
			return fmt.Errorf(
				"looking up path `%s`: %w: %v",
				path,
				MalformedPathErr,
				EmptyPathChunkErr,
			)
		}
		if err := directory.ValidateName(chunk); err != nil {
			return fmt.Errorf(
				"looking up path `%s`: %w: %v",
				path,
				MalformedPathErr,
				err,
			)
		}

		parent := info.Ino
		if err := directory.Lookup(fs, parent, chunk, &info); err != nil {
			if errors.Is(err, NotADirErr) || errors.Is(err, InoNotInUseErr) {
				return fmt.Errorf(
					"looking up path `%s`: %w: %v",
					path,
					MalformedPathErr,
					err,
				)
			}
			return fmt.Errorf("looking up path `%s`: %w", path, err)
		}
	}

	if trailingSlash && info.FileType != FileTypeDir {
		return fmt.Errorf(
			"looking up path `%s`: %w: %v",
			path,
			MalformedPathErr,
			NotADirErr,
		)
	}

	*out = info
	return nil
}
