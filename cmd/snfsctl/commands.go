package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/urfave/cli/v2"
	"github.com/weberc2/snfs/pkg/backup"
	"github.com/weberc2/snfs/pkg/image"
	"github.com/weberc2/snfs/pkg/objectstore"
	"github.com/weberc2/snfs/pkg/snfs"
	. "github.com/weberc2/snfs/pkg/types"
)

const (
	cacheSize = 64

	ImageNotFormattedErr ConstError = "image not formatted; run `format`"
	MissingArgumentErr   ConstError = "missing argument"
)

func openImage(ctx *cli.Context) (*image.Image, error) {
	return image.Open(image.Options{
		Backend:   image.Backend(ctx.String(flagBackend)),
		Path:      ctx.String(flagImage),
		Blocks:    Block(ctx.Uint(flagBlocks)),
		CacheSize: cacheSize,
	})
}

// closeImage closes `img`, keeping the first of the action's error and the
// close error.
func closeImage(img *image.Image, err error) error {
	if closeErr := img.Close(); closeErr != nil && err == nil {
		return closeErr
	}
	return err
}

func withFileSystem(
	f func(fs *snfs.FileSystem, ctx *cli.Context) error,
) cli.ActionFunc {
	return func(ctx *cli.Context) (err error) {
		img, err := openImage(ctx)
		if err != nil {
			return err
		}
		defer func() { err = closeImage(img, err) }()

		if img.Fresh {
			return ImageNotFormattedErr
		}
		fs, err := snfs.Open(img.Device)
		if err != nil {
			return fmt.Errorf("%w: %v", ImageNotFormattedErr, err)
		}
		return f(fs, ctx)
	}
}

func arg(ctx *cli.Context, i int, name string) (string, error) {
	if ctx.Args().Len() <= i {
		return "", fmt.Errorf("%w: %s", MissingArgumentErr, name)
	}
	return ctx.Args().Get(i), nil
}

// parent resolves the directory holding `p` and returns it with the final
// path component.
func parent(fs *snfs.FileSystem, p string) (Ino, string, error) {
	dir, name := path.Split(strings.TrimSuffix(p, "/"))
	if dir == "" {
		dir = p
	}
	ino, _, err := fs.Lookup(dir)
	if err != nil {
		return InoNil, "", err
	}
	return ino, name, nil
}

func jsonPrint(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		panic(err)
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

func format(ctx *cli.Context) (err error) {
	img, err := openImage(ctx)
	if err != nil {
		return err
	}
	defer func() { err = closeImage(img, err) }()

	fs, err := snfs.Format(img.Device)
	if err != nil {
		return err
	}
	usage, err := fs.DiskUsage()
	if err != nil {
		return err
	}
	return jsonPrint(ctx.App.Writer, &usage)
}

func ls(fs *snfs.FileSystem, ctx *cli.Context) error {
	p := "/"
	if ctx.Args().Len() > 0 {
		p = ctx.Args().Get(0)
	}
	ino, _, err := fs.Lookup(p)
	if err != nil {
		return err
	}
	infos, err := fs.ReadDir(ino, ctx.Int(flagMax))
	if err != nil {
		return err
	}
	return jsonPrint(ctx.App.Writer, infos)
}

func stat(fs *snfs.FileSystem, ctx *cli.Context) error {
	p, err := arg(ctx, 0, "PATH")
	if err != nil {
		return err
	}
	ino, _, err := fs.Lookup(p)
	if err != nil {
		return err
	}
	attrs, err := fs.GetAttrs(ino)
	if err != nil {
		return err
	}
	return jsonPrint(ctx.App.Writer, &attrs)
}

func mkdir(fs *snfs.FileSystem, ctx *cli.Context) error {
	return add(fs, ctx, fs.Mkdir)
}

func touch(fs *snfs.FileSystem, ctx *cli.Context) error {
	return add(fs, ctx, fs.Create)
}

func add(
	fs *snfs.FileSystem,
	ctx *cli.Context,
	create func(Ino, string) (Ino, error),
) error {
	p, err := arg(ctx, 0, "PATH")
	if err != nil {
		return err
	}
	dir, name, err := parent(fs, p)
	if err != nil {
		return err
	}
	ino, err := create(dir, name)
	if err != nil {
		return err
	}
	return jsonPrint(ctx.App.Writer, struct {
		Ino Ino `json:"ino"`
	}{ino})
}

func put(fs *snfs.FileSystem, ctx *cli.Context) error {
	local, err := arg(ctx, 0, "LOCAL")
	if err != nil {
		return err
	}
	p, err := arg(ctx, 1, "PATH")
	if err != nil {
		return err
	}

	var content []byte
	if local == "-" {
		content, err = ioutil.ReadAll(os.Stdin)
	} else {
		content, err = ioutil.ReadFile(local)
	}
	if err != nil {
		return fmt.Errorf("reading `%s`: %w", local, err)
	}

	dir, name, err := parent(fs, p)
	if err != nil {
		return err
	}

	offset := Byte(ctx.Int64(flagOffset))
	ino, _, err := fs.Lookup(p)
	if err == nil {
		attrs, err := fs.GetAttrs(ino)
		if err != nil {
			return err
		}
		if attrs.FileType != FileTypeRegular {
			return fmt.Errorf("putting `%s`: %w", p, NotARegularFileErr)
		}
	}
	switch {
	case errors.Is(err, NotFoundErr):
		if ino, err = fs.Create(dir, name); err != nil {
			return err
		}
		offset = 0
	case err != nil:
		return err
	case offset < 0:
		if err := fs.Remove(dir, name); err != nil {
			return err
		}
		if ino, err = fs.Create(dir, name); err != nil {
			return err
		}
		offset = 0
	}

	size, err := fs.Write(ino, offset, content)
	if err != nil {
		return err
	}
	return jsonPrint(ctx.App.Writer, struct {
		Ino  Ino  `json:"ino"`
		Size Byte `json:"size"`
	}{ino, size})
}

func cat(fs *snfs.FileSystem, ctx *cli.Context) error {
	p, err := arg(ctx, 0, "PATH")
	if err != nil {
		return err
	}
	ino, size, err := fs.Lookup(p)
	if err != nil {
		return err
	}
	content, err := fs.Read(ino, 0, size)
	if err != nil {
		return err
	}
	_, err = ctx.App.Writer.Write(content)
	return err
}

func transferArgs(
	fs *snfs.FileSystem,
	ctx *cli.Context,
) (Ino, string, Ino, string, error) {
	src, err := arg(ctx, 0, "SRC")
	if err != nil {
		return InoNil, "", InoNil, "", err
	}
	dst, err := arg(ctx, 1, "DST")
	if err != nil {
		return InoNil, "", InoNil, "", err
	}
	srcDir, srcName, err := parent(fs, src)
	if err != nil {
		return InoNil, "", InoNil, "", err
	}
	dstDir, dstName, err := parent(fs, dst)
	if err != nil {
		return InoNil, "", InoNil, "", err
	}
	return srcDir, srcName, dstDir, dstName, nil
}

func appendFile(fs *snfs.FileSystem, ctx *cli.Context) error {
	srcDir, src, dstDir, dst, err := transferArgs(fs, ctx)
	if err != nil {
		return err
	}
	size, err := fs.Append(srcDir, src, dstDir, dst)
	if err != nil {
		return err
	}
	return jsonPrint(ctx.App.Writer, struct {
		Size Byte `json:"size"`
	}{size})
}

func cp(fs *snfs.FileSystem, ctx *cli.Context) error {
	srcDir, src, dstDir, dst, err := transferArgs(fs, ctx)
	if err != nil {
		return err
	}
	ino, err := fs.Copy(srcDir, src, dstDir, dst)
	if err != nil {
		return err
	}
	return jsonPrint(ctx.App.Writer, struct {
		Ino Ino `json:"ino"`
	}{ino})
}

func rm(fs *snfs.FileSystem, ctx *cli.Context) error {
	p, err := arg(ctx, 0, "PATH")
	if err != nil {
		return err
	}
	dir, name, err := parent(fs, p)
	if err != nil {
		return err
	}
	return fs.Remove(dir, name)
}

func defrag(fs *snfs.FileSystem, ctx *cli.Context) error {
	moved, err := fs.Defrag()
	if err != nil {
		return err
	}
	return jsonPrint(ctx.App.Writer, struct {
		Moved Block `json:"moved"`
	}{moved})
}

func du(fs *snfs.FileSystem, ctx *cli.Context) error {
	usage, err := fs.DiskUsage()
	if err != nil {
		return err
	}
	return jsonPrint(ctx.App.Writer, &usage)
}

func dumpCache(fs *snfs.FileSystem, ctx *cli.Context) error {
	return jsonPrint(ctx.App.Writer, fs.DumpCache())
}

func withBackups(
	f func(store *backup.Store, img *image.Image, ctx *cli.Context) error,
) cli.ActionFunc {
	return func(ctx *cli.Context) (err error) {
		sess, err := session.NewSession()
		if err != nil {
			return fmt.Errorf("creating aws session: %w", err)
		}
		store := backup.NewStore(
			objectstore.NewS3ObjectStore(sess),
			ctx.String(flagBucket),
		)

		img, err := openImage(ctx)
		if err != nil {
			return err
		}
		defer func() { err = closeImage(img, err) }()
		return f(store, img, ctx)
	}
}

func push(store *backup.Store, img *image.Image, ctx *cli.Context) error {
	if img.Fresh {
		return ImageNotFormattedErr
	}
	key, err := store.Push(ctx.String(flagName), img.Device)
	if err != nil {
		return err
	}
	return jsonPrint(ctx.App.Writer, struct {
		Key string `json:"key"`
	}{key})
}

func pull(store *backup.Store, img *image.Image, ctx *cli.Context) error {
	key, err := arg(ctx, 0, "KEY")
	if err != nil {
		return err
	}
	if err := store.Pull(key, img.Device); err != nil {
		return err
	}
	if _, err := snfs.Open(img.Device); err != nil {
		return fmt.Errorf("checking restored image: %w", err)
	}
	return nil
}

func list(store *backup.Store, img *image.Image, ctx *cli.Context) error {
	keys, err := store.List(ctx.String(flagName))
	if err != nil {
		return err
	}
	return jsonPrint(ctx.App.Writer, keys)
}

func deleteBackup(
	store *backup.Store,
	img *image.Image,
	ctx *cli.Context,
) error {
	key, err := arg(ctx, 0, "KEY")
	if err != nil {
		return err
	}
	return store.Delete(key)
}
