package main

import (
	"github.com/urfave/cli/v2"
	"github.com/weberc2/snfs/pkg/image"
	. "github.com/weberc2/snfs/pkg/types"
)

const (
	flagImage   = "image"
	flagBackend = "backend"
	flagBlocks  = "blocks"
	flagBucket  = "bucket"
	flagName    = "name"
	flagMax     = "max"
	flagOffset  = "offset"
)

func newApp() *cli.App {
	return &cli.App{
		Name:        "snfsctl",
		Usage:       "inspect and modify an snfs image",
		Description: "inspect and modify an snfs image without a server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagImage,
				Aliases: []string{"i"},
				Usage:   "path to the image file or bolt database",
				Value:   "snfs.img",
				EnvVars: []string{"SNFS_IMAGE"},
			},
			&cli.StringFlag{
				Name:    flagBackend,
				Usage:   "image backend: `file` or `bolt`",
				Value:   string(image.BackendFile),
				EnvVars: []string{"SNFS_BACKEND"},
			},
			&cli.UintFlag{
				Name:    flagBlocks,
				Usage:   "number of 512-byte blocks in the image",
				Value:   uint(DefaultBlockCount),
				EnvVars: []string{"SNFS_BLOCKS"},
			},
		},
		Commands: []*cli.Command{{
			Name:        "format",
			Aliases:     []string{"mkfs"},
			Usage:       "write an empty file system to the image",
			Description: "write an empty file system to the image",
			Action:      format,
		}, {
			Name:        "ls",
			Aliases:     []string{"readdir"},
			Usage:       "list a directory",
			Description: "list the entries of the directory at PATH",
			ArgsUsage:   "PATH",
			Flags: []cli.Flag{&cli.IntFlag{
				Name:  flagMax,
				Usage: "list at most this many entries (0 for all)",
			}},
			Action: withFileSystem(ls),
		}, {
			Name:        "stat",
			Usage:       "show the attributes of a path",
			Description: "show the inode, type and size behind PATH",
			ArgsUsage:   "PATH",
			Action:      withFileSystem(stat),
		}, {
			Name:        "mkdir",
			Usage:       "create a directory",
			Description: "create a directory at PATH",
			ArgsUsage:   "PATH",
			Action:      withFileSystem(mkdir),
		}, {
			Name:        "touch",
			Aliases:     []string{"create"},
			Usage:       "create an empty file",
			Description: "create an empty file at PATH",
			ArgsUsage:   "PATH",
			Action:      withFileSystem(touch),
		}, {
			Name:        "put",
			Aliases:     []string{"write"},
			Usage:       "copy a local file into the image",
			Description: "replace PATH with the content of LOCAL (- for stdin)",
			ArgsUsage:   "LOCAL PATH",
			Flags: []cli.Flag{&cli.Int64Flag{
				Name:  flagOffset,
				Usage: "write at this offset instead of replacing the file",
				Value: -1,
			}},
			Action: withFileSystem(put),
		}, {
			Name:        "cat",
			Aliases:     []string{"read"},
			Usage:       "print a file",
			Description: "print the content of the file at PATH",
			ArgsUsage:   "PATH",
			Action:      withFileSystem(cat),
		}, {
			Name:        "append",
			Usage:       "append one file to another",
			Description: "append the content of SRC to the end of DST",
			ArgsUsage:   "SRC DST",
			Action:      withFileSystem(appendFile),
		}, {
			Name:        "cp",
			Aliases:     []string{"copy"},
			Usage:       "copy a file",
			Description: "replace DST (creating it if needed) with SRC",
			ArgsUsage:   "SRC DST",
			Action:      withFileSystem(cp),
		}, {
			Name:        "rm",
			Aliases:     []string{"remove"},
			Usage:       "remove a file or directory tree",
			Description: "remove PATH and, for directories, everything below",
			ArgsUsage:   "PATH",
			Action:      withFileSystem(rm),
		}, {
			Name:        "defrag",
			Usage:       "compact the data region",
			Description: "move allocated data blocks to the front of the image",
			Action:      withFileSystem(defrag),
		}, {
			Name:        "du",
			Aliases:     []string{"usage"},
			Usage:       "show block and inode usage",
			Description: "show allocated data blocks and free counts",
			Action:      withFileSystem(du),
		}, {
			Name:        "dump-cache",
			Usage:       "show the blocks cached by this invocation",
			Description: "show cached blocks after loading the metadata",
			Action:      withFileSystem(dumpCache),
		}, {
			Name:        "backup",
			Usage:       "manage image snapshots in S3",
			Description: "push, pull, list and delete gzipped image snapshots",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     flagBucket,
					Usage:    "S3 bucket holding the snapshots",
					EnvVars:  []string{"SNFS_BUCKET"},
					Required: true,
				},
				&cli.StringFlag{
					Name:    flagName,
					Usage:   "snapshot name; keys are <slug(name)>/<uuid>.img",
					Value:   "snfs",
					EnvVars: []string{"SNFS_NAME"},
				},
			},
			Subcommands: []*cli.Command{{
				Name:        "push",
				Usage:       "upload a snapshot of the image",
				Description: "upload a gzipped snapshot and print its key",
				Action:      withBackups(push),
			}, {
				Name:        "pull",
				Aliases:     []string{"restore"},
				Usage:       "overwrite the image with a snapshot",
				Description: "overwrite the image with the snapshot at KEY",
				ArgsUsage:   "KEY",
				Action:      withBackups(pull),
			}, {
				Name:        "list",
				Aliases:     []string{"ls"},
				Usage:       "list snapshot keys",
				Description: "list the snapshot keys for the configured name",
				Action:      withBackups(list),
			}, {
				Name:        "delete",
				Aliases:     []string{"rm"},
				Usage:       "delete a snapshot",
				Description: "delete the snapshot at KEY",
				ArgsUsage:   "KEY",
				Action:      withBackups(deleteBackup),
			}},
		}},
	}
}
