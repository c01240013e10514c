package io

import (
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"testing"

	. "github.com/weberc2/snfs/pkg/types"
)

func TestVolumes(t *testing.T) {
	type testCase struct {
		name   string
		volume func(t *testing.T) Volume
	}

	for _, tc := range []testCase{{
		name: "buffer",
		volume: func(t *testing.T) Volume {
			return NewBuffer(make([]byte, 4*BlockSize))
		},
	}, {
		name: "file",
		volume: func(t *testing.T) Volume {
			v, err := OpenFileVolume(
				filepath.Join(t.TempDir(), "snfs.img"),
				4*BlockSize,
			)
			if err != nil {
				t.Fatalf("OpenFileVolume(): unexpected err: %v", err)
			}
			t.Cleanup(func() { v.Close() })
			return v
		},
	}, {
		name: "bolt",
		volume: func(t *testing.T) Volume {
			v, err := OpenBoltVolume(filepath.Join(t.TempDir(), "snfs.db"))
			if err != nil {
				t.Fatalf("OpenBoltVolume(): unexpected err: %v", err)
			}
			t.Cleanup(func() { v.Close() })
			return v
		},
	}} {
		t.Run(tc.name, func(t *testing.T) {
			v := tc.volume(t)

			// unwritten regions read back as zeros
			zeros := make([]byte, BlockSize)
			for i := range zeros {
				zeros[i] = 0xaa
			}
			if err := v.ReadAt(BlockSize, zeros); err != nil {
				t.Fatalf("ReadAt(): unexpected err: %v", err)
			}
			if !bytes.Equal(zeros, make([]byte, BlockSize)) {
				t.Fatal("ReadAt(): wanted zeroed block; found non-zero data")
			}

			// a write straddling a block boundary
			data := bytes.Repeat([]byte("snfs"), 100)
			offset := BlockSize - 7
			if err := v.WriteAt(offset, data); err != nil {
				t.Fatalf("WriteAt(): unexpected err: %v", err)
			}

			found := make([]byte, len(data))
			if err := v.ReadAt(offset, found); err != nil {
				t.Fatalf("ReadAt(): unexpected err: %v", err)
			}
			if !bytes.Equal(found, data) {
				t.Fatalf("ReadAt(): wanted `%s`; found `%s`", data, found)
			}

			// neighbouring bytes are untouched
			before := make([]byte, 1)
			if err := v.ReadAt(offset-1, before); err != nil {
				t.Fatalf("ReadAt(): unexpected err: %v", err)
			}
			if before[0] != 0 {
				t.Fatalf("ReadAt(): wanted `0` before write; found `%d`", before[0])
			}
		})
	}
}

func TestBuffer_OutOfRange(t *testing.T) {
	b := NewBuffer(make([]byte, BlockSize))
	if err := b.ReadAt(BlockSize-1, make([]byte, 2)); !errors.Is(err, io.EOF) {
		t.Fatalf("ReadAt(): wanted `%v`; found `%v`", io.EOF, err)
	}
	if err := b.WriteAt(BlockSize, []byte{1}); !errors.Is(err, io.EOF) {
		t.Fatalf("WriteAt(): wanted `%v`; found `%v`", io.EOF, err)
	}
}
