package types

import (
	"fmt"
)

type Ino uint16

const (
	DirectBlocksCount Block = 10
	ReservedCount           = 4
	InodeSize         Byte  = 64
	InoSize           Byte  = 2
	InodeCount        Ino   = Ino((Byte(InodeTableBlocks) * BlockSize) / InodeSize)
	InoNil            Ino   = 0
	InoRoot           Ino   = 1

	// MaxFileSize is the capacity of the direct block list.
	MaxFileSize Byte = Byte(DirectBlocksCount) * BlockSize
)

type Inode struct {
	// Ino is the inode's slot in the inode table; it is not persisted.
	Ino          Ino
	FileType     FileType
	Size         Byte
	DirectBlocks [DirectBlocksCount]Block
	Reserved     [ReservedCount]uint32
}

// BlocksUsed returns the number of direct blocks needed to hold the inode's
// content.
func (inode *Inode) BlocksUsed() Block {
	return Block((inode.Size + BlockSize - 1) / BlockSize)
}

type FileType uint32

const (
	FileTypeInvalid FileType = iota
	FileTypeDir
	FileTypeRegular
)

func (ft FileType) String() string {
	switch ft {
	case FileTypeInvalid:
		return "Invalid"
	case FileTypeDir:
		return "Dir"
	case FileTypeRegular:
		return "Regular"
	default:
		return fmt.Sprintf("Unknown(%d)", uint32(ft))
	}
}

func (ft FileType) MarshalJSON() ([]byte, error) {
	s := ft.String()
	out := make([]byte, len(s)+2)
	out[0] = '"'
	out[len(out)-1] = '"'
	copy(out[1:], s)
	return out, nil
}

func (ft FileType) Validate() error {
	if ft != FileTypeDir && ft != FileTypeRegular {
		return fmt.Errorf(
			"validating file type `%d`: %w",
			ft,
			InvalidFileTypeErr,
		)
	}
	return nil
}
