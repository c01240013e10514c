package types

type ConstError string

func (err ConstError) Error() string { return string(err) }

const (
	InvalidFileTypeErr ConstError = "invalid file type"
	CorruptInodeErr    ConstError = "corrupt inode"
	InvalidInoErr      ConstError = "invalid ino"
	InoNotInUseErr     ConstError = "ino not in use"
	NotADirErr         ConstError = "not a directory"
	NotARegularFileErr ConstError = "not a regular file"
	NameTooLongErr     ConstError = "name too long"
	EmptyNameErr       ConstError = "empty name"
	InvalidNameErr     ConstError = "invalid name"
	NotAbsolutePathErr ConstError = "not an absolute path"
	EmptyPathChunkErr  ConstError = "empty path component"
	NotFoundErr        ConstError = "not found"
	ExistsErr          ConstError = "already exists"
	OutOfInosErr       ConstError = "out of inos"
	OutOfBlocksErr     ConstError = "out of blocks"
	FileTooLargeErr    ConstError = "file exceeds direct block capacity"
	BlockOutOfRangeErr ConstError = "block out of range"
)
