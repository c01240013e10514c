package snfs

import (
	"fmt"

	"github.com/weberc2/snfs/pkg/blocks"
	"github.com/weberc2/snfs/pkg/data"
	"github.com/weberc2/snfs/pkg/defrag"
	. "github.com/weberc2/snfs/pkg/types"
)

// Defrag left-packs the data region and returns the number of blocks moved.
// It waits for every in-flight operation and holds off new ones until the
// pass is flushed.
func (fs *FileSystem) Defrag() (Block, error) {
	fs.defragLock.Lock()
	defer fs.defragLock.Unlock()
	fs.opLock.Lock()
	defer fs.opLock.Unlock()

	var relocations []defrag.Relocation
	if err := fs.commit("defrag", func(dfs *data.FileSystem) error {
		var err error
		relocations, err = defrag.Defrag(dfs)
		return err
	}); err != nil {
		return 0, err
	}

	for _, r := range relocations {
		fs.logger.WithField("ino", r.Ino).Debugf(
			"relocated block index `%d` from `%d` to `%d`",
			r.Index,
			r.From,
			r.To,
		)
	}
	fs.logger.Infof("defrag relocated `%d` blocks", len(relocations))
	return Block(len(relocations)), nil
}

type Usage struct {
	BlockCount Block   `json:"blockCount"`
	DataBlocks Block   `json:"dataBlocks"`
	FreeBlocks Block   `json:"freeBlocks"`
	UsedBlocks []Block `json:"usedBlocks"`
	InodeCount Ino     `json:"inodeCount"`
	UsedInodes Ino     `json:"usedInodes"`
	FreeInodes Ino     `json:"freeInodes"`
}

// DiskUsage reports the allocated data blocks in ascending order together
// with block and inode totals. Inode counts exclude the never-used slot 0.
func (fs *FileSystem) DiskUsage() (Usage, error) {
	var usage Usage
	err := fs.read(func(dfs *data.FileSystem) error {
		usage = Usage{
			BlockCount: dfs.Metadata.BlockCount,
			DataBlocks: dfs.Metadata.BlockCount - FirstDataBlock,
			UsedBlocks: []Block{},
			InodeCount: InodeCount - 1,
		}

		blockAllocator := dfs.Metadata.Blocks()
		for b := FirstDataBlock; b < dfs.Metadata.BlockCount; b++ {
			if blockAllocator.InUse(b) {
				usage.UsedBlocks = append(usage.UsedBlocks, b)
			}
		}
		usage.FreeBlocks = usage.DataBlocks - Block(len(usage.UsedBlocks))

		inoAllocator := dfs.Metadata.Inos()
		for ino := InoRoot; ino < InodeCount; ino++ {
			if inoAllocator.InUse(ino) {
				usage.UsedInodes++
			}
		}
		usage.FreeInodes = usage.InodeCount - usage.UsedInodes
		return nil
	})
	return usage, err
}

type cacheDumper interface {
	Dump() []blocks.CachedBlock
}

// DumpCache lists the blocks held by the device's block cache, most
// recently used first. It is empty when the device has no cache.
func (fs *FileSystem) DumpCache() []blocks.CachedBlock {
	fs.opLock.RLock()
	defer fs.opLock.RUnlock()
	if dumper, ok := fs.device.(cacheDumper); ok {
		return dumper.Dump()
	}
	return []blocks.CachedBlock{}
}

func (fs *FileSystem) Ping(msg string) string {
	fs.logger.WithField("msg", msg).Debug("ping")
	return fmt.Sprintf("hello, %s", msg)
}
