package data

import (
	"github.com/weberc2/snfs/pkg/blocks"
	"github.com/weberc2/snfs/pkg/metadata"
)

// FileSystem is the state shared by the data, directory and path layers.
type FileSystem struct {
	Device   blocks.Device
	Metadata *metadata.Metadata
}
