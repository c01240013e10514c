package image

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/weberc2/snfs/pkg/blocks"
	"github.com/weberc2/snfs/pkg/snfs"
	. "github.com/weberc2/snfs/pkg/types"
)

func TestOpen_Reopen(t *testing.T) {
	for _, backend := range []Backend{BackendFile, BackendBolt} {
		t.Run(string(backend), func(t *testing.T) {
			options := Options{
				Backend:   backend,
				Path:      filepath.Join(t.TempDir(), "snfs.img"),
				Blocks:    64,
				CacheSize: 4,
			}

			image, err := Open(options)
			if err != nil {
				t.Fatalf("Open(): unexpected err: %v", err)
			}
			if !image.Fresh {
				t.Fatal("Open(): wanted a fresh image")
			}
			fs, err := snfs.Format(image.Device)
			if err != nil {
				t.Fatalf("Format(): unexpected err: %v", err)
			}
			ino, err := fs.Create(InoRoot, "persisted")
			if err != nil {
				t.Fatalf("Create(): unexpected err: %v", err)
			}
			if _, err := fs.Write(ino, 0, []byte("still here")); err != nil {
				t.Fatalf("Write(): unexpected err: %v", err)
			}
			if err := image.Close(); err != nil {
				t.Fatalf("Close(): unexpected err: %v", err)
			}

			image, err = Open(options)
			if err != nil {
				t.Fatalf("Open(): unexpected err: %v", err)
			}
			defer image.Close()
			if image.Fresh {
				t.Fatal("Open(): wanted an existing image")
			}
			fs, err = snfs.Open(image.Device)
			if err != nil {
				t.Fatalf("snfs.Open(): unexpected err: %v", err)
			}
			content, err := fs.Read(ino, 0, 100)
			if err != nil {
				t.Fatalf("Read(): unexpected err: %v", err)
			}
			if string(content) != "still here" {
				t.Fatalf("Read(): wanted `still here`; found `%s`", content)
			}
		})
	}
}

func TestOpen_Stack(t *testing.T) {
	image, err := Open(Options{
		Backend:   BackendMemory,
		Blocks:    32,
		CacheSize: 8,
		Delay:     time.Microsecond,
	})
	if err != nil {
		t.Fatalf("Open(): unexpected err: %v", err)
	}
	if _, ok := image.Device.(*blocks.Cache); !ok {
		t.Fatalf("Open(): wanted a cache on top; found `%T`", image.Device)
	}
	if image.Delayed == nil || !image.Delayed.Enabled() {
		t.Fatal("Open(): wanted an enabled latency simulator")
	}
	if image.Device.BlockCount() != 32 {
		t.Fatalf(
			"BlockCount(): wanted `32`; found `%d`",
			image.Device.BlockCount(),
		)
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(Options{Backend: "tape", Blocks: 32})
	if !errors.Is(err, UnknownBackendErr) {
		t.Fatalf("Open(): wanted `%v`; found `%v`", UnknownBackendErr, err)
	}
}
