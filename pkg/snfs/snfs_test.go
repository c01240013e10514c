package snfs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/weberc2/snfs/pkg/blocks"
	. "github.com/weberc2/snfs/pkg/types"
)

func newTestFileSystem(t *testing.T, count Block) *FileSystem {
	logger, _ := test.NewNullLogger()
	fs, err := Format(blocks.NewMemoryDevice(count), WithLogger(logger))
	if err != nil {
		t.Fatalf("Format(): unexpected err: %v", err)
	}
	return fs
}

func mustCreate(t *testing.T, fs *FileSystem, dir Ino, name string) Ino {
	ino, err := fs.Create(dir, name)
	if err != nil {
		t.Fatalf("Create(`%s`): unexpected err: %v", name, err)
	}
	return ino
}

func mustMkdir(t *testing.T, fs *FileSystem, dir Ino, name string) Ino {
	ino, err := fs.Mkdir(dir, name)
	if err != nil {
		t.Fatalf("Mkdir(`%s`): unexpected err: %v", name, err)
	}
	return ino
}

func mustWrite(t *testing.T, fs *FileSystem, ino Ino, offset Byte, p []byte) Byte {
	size, err := fs.Write(ino, offset, p)
	if err != nil {
		t.Fatalf("Write(): unexpected err: %v", err)
	}
	return size
}

func mustRead(t *testing.T, fs *FileSystem, ino Ino) []byte {
	p, err := fs.Read(ino, 0, MaxFileSize)
	if err != nil {
		t.Fatalf("Read(): unexpected err: %v", err)
	}
	return p
}

func mustUsage(t *testing.T, fs *FileSystem) Usage {
	usage, err := fs.DiskUsage()
	if err != nil {
		t.Fatalf("DiskUsage(): unexpected err: %v", err)
	}
	return usage
}

func pattern(n int, seed byte) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = seed + byte(i%23)
	}
	return p
}

func checkCategory(t *testing.T, op string, err error, wanted Category) {
	t.Helper()
	if found := CategoryOf(err); found != wanted {
		t.Fatalf(
			"%s: wanted category `%s`; found `%s` (err: %v)",
			op,
			wanted,
			found,
			err,
		)
	}
}

func TestLookup(t *testing.T) {
	fs := newTestFileSystem(t, 64)
	docs := mustMkdir(t, fs, InoRoot, "docs")
	notes := mustCreate(t, fs, docs, "notes")
	mustWrite(t, fs, notes, 0, []byte("hello"))
	x := mustCreate(t, fs, InoRoot, "x")

	type testCase struct {
		name           string
		path           string
		wantedIno      Ino
		wantedSize     Byte
		wantedCategory Category
	}

	for _, testCase := range []testCase{
		{
			name:       "root",
			path:       "/",
			wantedIno:  InoRoot,
			wantedSize: 2 * DirEntrySize,
		},
		{name: "file", path: "/x", wantedIno: x},
		{
			name:       "nested",
			path:       "/docs/notes",
			wantedIno:  notes,
			wantedSize: 5,
		},
		{
			name:       "dir",
			path:       "/docs",
			wantedIno:  docs,
			wantedSize: DirEntrySize,
		},
		{name: "double-slash", path: "//x", wantedCategory: CategoryMalformed},
		{name: "only-slashes", path: "//", wantedCategory: CategoryMalformed},
		{name: "relative", path: "x", wantedCategory: CategoryMalformed},
		{name: "empty", path: "", wantedCategory: CategoryMalformed},
		{
			name:           "missing",
			path:           "/missing",
			wantedCategory: CategoryNotFound,
		},
		{
			name:           "through-file",
			path:           "/x/y",
			wantedCategory: CategoryMalformed,
		},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			ino, size, err := fs.Lookup(testCase.path)
			checkCategory(t, "Lookup()", err, testCase.wantedCategory)
			if err != nil {
				return
			}
			if ino != testCase.wantedIno {
				t.Fatalf(
					"Lookup(): wanted ino `%d`; found `%d`",
					testCase.wantedIno,
					ino,
				)
			}
			if size != testCase.wantedSize {
				t.Fatalf(
					"Lookup(): wanted size `%d`; found `%d`",
					testCase.wantedSize,
					size,
				)
			}
		})
	}
}

func TestWrite_RoundTripAndSizeLaw(t *testing.T) {
	type testCase struct {
		name    string
		initial []byte
		offset  Byte
		data    []byte
	}

	for _, testCase := range []testCase{
		{name: "empty-file", offset: 0, data: pattern(100, 'a')},
		{
			name:    "overwrite-middle",
			initial: pattern(1500, 'a'),
			offset:  700,
			data:    pattern(100, 'b'),
		},
		{
			name:    "straddle-end",
			initial: pattern(1000, 'a'),
			offset:  900,
			data:    pattern(700, 'b'),
		},
		{
			name:    "at-end",
			initial: pattern(512, 'a'),
			offset:  512,
			data:    pattern(512, 'b'),
		},
		{
			name:    "past-end-clamped",
			initial: pattern(10, 'a'),
			offset:  4000,
			data:    pattern(20, 'b'),
		},
		{
			name:   "exact-capacity",
			offset: 0,
			data:   pattern(int(MaxFileSize), 'c'),
		},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			fs := newTestFileSystem(t, 64)
			ino := mustCreate(t, fs, InoRoot, "f")
			oldSize := mustWrite(t, fs, ino, 0, testCase.initial)

			size := mustWrite(t, fs, ino, testCase.offset, testCase.data)

			clamped := testCase.offset
			if clamped > oldSize {
				clamped = oldSize
			}
			wantedSize := clamped + Byte(len(testCase.data))
			if oldSize > wantedSize {
				wantedSize = oldSize
			}
			if size != wantedSize {
				t.Fatalf(
					"Write(): wanted size `%d`; found `%d`",
					wantedSize,
					size,
				)
			}

			found, err := fs.Read(ino, clamped, Byte(len(testCase.data)))
			if err != nil {
				t.Fatalf("Read(): unexpected err: %v", err)
			}
			if !bytes.Equal(found, testCase.data) {
				t.Fatalf(
					"Read(): wanted the `%d` written bytes back; found `%d` "+
						"bytes with different content",
					len(testCase.data),
					len(found),
				)
			}
		})
	}
}

func TestRead_PastEnd(t *testing.T) {
	fs := newTestFileSystem(t, 64)
	ino := mustCreate(t, fs, InoRoot, "f")
	mustWrite(t, fs, ino, 0, []byte("abc"))

	found, err := fs.Read(ino, 3, 10)
	if err != nil {
		t.Fatalf("Read(): unexpected err: %v", err)
	}
	if len(found) != 0 {
		t.Fatalf("Read(): wanted no bytes; found `%q`", found)
	}

	found, err = fs.Read(ino, 1, 10)
	if err != nil {
		t.Fatalf("Read(): unexpected err: %v", err)
	}
	if string(found) != "bc" {
		t.Fatalf("Read(): wanted `bc`; found `%s`", found)
	}
}

func TestCapacity(t *testing.T) {
	fs := newTestFileSystem(t, 64)
	ino := mustCreate(t, fs, InoRoot, "f")

	_, err := fs.Write(ino, 0, pattern(int(MaxFileSize)+1, 'a'))
	checkCategory(t, "Write(5121)", err, CategoryResourceExhausted)

	mustWrite(t, fs, ino, 0, pattern(int(MaxFileSize), 'a'))
	_, err = fs.Write(ino, MaxFileSize, []byte{'x'})
	checkCategory(t, "Write(+1)", err, CategoryResourceExhausted)

	if attrs, _ := fs.GetAttrs(ino); attrs.Size != MaxFileSize {
		t.Fatalf(
			"GetAttrs(): wanted size `%d`; found `%d`",
			MaxFileSize,
			attrs.Size,
		)
	}
}

func TestErrorCategories(t *testing.T) {
	fs := newTestFileSystem(t, 64)
	dir := mustMkdir(t, fs, InoRoot, "d")
	file := mustCreate(t, fs, InoRoot, "f")

	type testCase struct {
		name   string
		run    func() error
		wanted Category
	}

	for _, testCase := range []testCase{
		{
			name:   "read-dir",
			run:    func() error { _, err := fs.Read(dir, 0, 1); return err },
			wanted: CategoryWrongType,
		},
		{
			name:   "write-dir",
			run:    func() error { _, err := fs.Write(dir, 0, []byte{1}); return err },
			wanted: CategoryWrongType,
		},
		{
			name:   "readdir-file",
			run:    func() error { _, err := fs.ReadDir(file, 0); return err },
			wanted: CategoryWrongType,
		},
		{
			name:   "create-in-file",
			run:    func() error { _, err := fs.Create(file, "x"); return err },
			wanted: CategoryWrongType,
		},
		{
			name:   "create-existing",
			run:    func() error { _, err := fs.Create(InoRoot, "d"); return err },
			wanted: CategoryAlreadyExists,
		},
		{
			name:   "create-long-name",
			run:    func() error { _, err := fs.Create(InoRoot, "abcdefghijklmn"); return err },
			wanted: CategoryMalformed,
		},
		{
			name:   "create-empty-name",
			run:    func() error { _, err := fs.Create(InoRoot, ""); return err },
			wanted: CategoryMalformed,
		},
		{
			name:   "attrs-out-of-range",
			run:    func() error { _, err := fs.GetAttrs(InodeCount); return err },
			wanted: CategoryMalformed,
		},
		{
			name:   "attrs-unused",
			run:    func() error { _, err := fs.GetAttrs(40); return err },
			wanted: CategoryMalformed,
		},
		{
			name:   "attrs-nil",
			run:    func() error { _, err := fs.GetAttrs(InoNil); return err },
			wanted: CategoryMalformed,
		},
		{
			name:   "read-negative-offset",
			run:    func() error { _, err := fs.Read(file, -1, 1); return err },
			wanted: CategoryMalformed,
		},
		{
			name:   "remove-empty-name",
			run:    func() error { return fs.Remove(InoRoot, "") },
			wanted: CategoryMalformed,
		},
		{
			name:   "remove-long-name",
			run:    func() error { return fs.Remove(InoRoot, "abcdefghijklmnopq") },
			wanted: CategoryMalformed,
		},
		{
			name:   "remove-missing",
			run:    func() error { return fs.Remove(InoRoot, "missing") },
			wanted: CategoryNotFound,
		},
	} {
		t.Run(testCase.name, func(t *testing.T) {
			checkCategory(t, testCase.name, testCase.run(), testCase.wanted)
		})
	}
}

func TestCategory_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(CategoryResourceExhausted)
	if err != nil {
		t.Fatalf("Marshal(): unexpected err: %v", err)
	}
	if string(data) != `"resource-exhausted"` {
		t.Fatalf(
			"Marshal(): wanted `\"resource-exhausted\"`; found `%s`",
			data,
		)
	}
}

func TestGetAttrs(t *testing.T) {
	fs := newTestFileSystem(t, 64)
	dir := mustMkdir(t, fs, InoRoot, "d")
	mustCreate(t, fs, dir, "a")
	mustCreate(t, fs, dir, "b")
	file := mustCreate(t, fs, InoRoot, "f")
	mustWrite(t, fs, file, 0, pattern(600, 'x'))

	attrs, err := fs.GetAttrs(dir)
	if err != nil {
		t.Fatalf("GetAttrs(): unexpected err: %v", err)
	}
	if attrs.FileType != FileTypeDir || attrs.Entries == nil ||
		*attrs.Entries != 2 || attrs.Size != 2*DirEntrySize {
		data, _ := json.Marshal(attrs)
		t.Fatalf("GetAttrs(): wanted dir with `2` entries; found `%s`", data)
	}

	attrs, err = fs.GetAttrs(file)
	if err != nil {
		t.Fatalf("GetAttrs(): unexpected err: %v", err)
	}
	if attrs.FileType != FileTypeRegular || attrs.Entries != nil ||
		attrs.Size != 600 {
		data, _ := json.Marshal(attrs)
		t.Fatalf("GetAttrs(): wanted 600-byte file; found `%s`", data)
	}
}

func TestDefrag_RemovedFileHole(t *testing.T) {
	fs := newTestFileSystem(t, 64)

	// block 10 holds the root directory's entries
	f0 := mustCreate(t, fs, InoRoot, "f0")
	mustWrite(t, fs, f0, 0, pattern(1024, 'a'))
	f1 := mustCreate(t, fs, InoRoot, "f1")
	content := pattern(1024, 'b')
	mustWrite(t, fs, f1, 0, content)

	if err := fs.Remove(InoRoot, "f0"); err != nil {
		t.Fatalf("Remove(): unexpected err: %v", err)
	}
	wanted := []Block{10, 13, 14}
	if usage := mustUsage(t, fs); !blocksEqual(usage.UsedBlocks, wanted) {
		t.Fatalf(
			"DiskUsage(): wanted used blocks `%v`; found `%v`",
			wanted,
			usage.UsedBlocks,
		)
	}

	moved, err := fs.Defrag()
	if err != nil {
		t.Fatalf("Defrag(): unexpected err: %v", err)
	}
	if moved != 2 {
		t.Fatalf("Defrag(): wanted `2` moved blocks; found `%d`", moved)
	}

	wanted = []Block{10, 11, 12}
	if usage := mustUsage(t, fs); !blocksEqual(usage.UsedBlocks, wanted) {
		t.Fatalf(
			"DiskUsage(): wanted used blocks `%v`; found `%v`",
			wanted,
			usage.UsedBlocks,
		)
	}
	if found := mustRead(t, fs, f1); !bytes.Equal(found, content) {
		t.Fatal("Read(): wanted f1 content unchanged after defrag")
	}

	moved, err = fs.Defrag()
	if err != nil {
		t.Fatalf("Defrag(): unexpected err: %v", err)
	}
	if moved != 0 {
		t.Fatalf("Defrag(): wanted nothing moved; found `%d`", moved)
	}
}

func blocksEqual(a, b []Block) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestCreate_InodeExhaustion(t *testing.T) {
	fs := newTestFileSystem(t, 64)

	// slots 0 and 1 are never available
	for i := 0; i < int(InodeCount)-2; i++ {
		name := fmt.Sprintf("n%d", i)
		var err error
		if i%2 == 0 {
			_, err = fs.Create(InoRoot, name)
		} else {
			_, err = fs.Mkdir(InoRoot, name)
		}
		if err != nil {
			t.Fatalf("creating `%s`: unexpected err: %v", name, err)
		}
	}

	_, err := fs.Create(InoRoot, "overflow")
	checkCategory(t, "Create()", err, CategoryResourceExhausted)

	usage := mustUsage(t, fs)
	if usage.FreeInodes != 0 || usage.UsedInodes != InodeCount-1 {
		t.Fatalf(
			"DiskUsage(): wanted `0` free inodes; found `%d` (used `%d`)",
			usage.FreeInodes,
			usage.UsedInodes,
		)
	}
}

func TestRemove_Recursive(t *testing.T) {
	fs := newTestFileSystem(t, 128)
	keep := mustCreate(t, fs, InoRoot, "keep")
	mustWrite(t, fs, keep, 0, pattern(700, 'k'))
	before := mustUsage(t, fs)

	// a/{b/{c, d/}, e}: five nodes
	a := mustMkdir(t, fs, InoRoot, "a")
	b := mustMkdir(t, fs, a, "b")
	c := mustCreate(t, fs, b, "c")
	mustWrite(t, fs, c, 0, pattern(1300, 'c'))
	mustMkdir(t, fs, b, "d")
	e := mustCreate(t, fs, a, "e")
	mustWrite(t, fs, e, 0, pattern(10, 'e'))

	during := mustUsage(t, fs)
	if during.UsedInodes != before.UsedInodes+5 {
		t.Fatalf(
			"wanted `%d` used inodes; found `%d`",
			before.UsedInodes+5,
			during.UsedInodes,
		)
	}

	if err := fs.Remove(InoRoot, "a"); err != nil {
		t.Fatalf("Remove(): unexpected err: %v", err)
	}

	after := mustUsage(t, fs)
	if after.UsedInodes != before.UsedInodes {
		t.Fatalf(
			"Remove(): wanted `%d` used inodes; found `%d`",
			before.UsedInodes,
			after.UsedInodes,
		)
	}
	if !blocksEqual(after.UsedBlocks, before.UsedBlocks) {
		t.Fatalf(
			"Remove(): wanted used blocks `%v`; found `%v`",
			before.UsedBlocks,
			after.UsedBlocks,
		)
	}
	if _, _, err := fs.Lookup("/a/b/c"); CategoryOf(err) != CategoryNotFound {
		t.Fatalf("Lookup(): wanted not-found; found `%v`", err)
	}
	if found := mustRead(t, fs, keep); !bytes.Equal(found, pattern(700, 'k')) {
		t.Fatal("Read(): wanted unrelated file untouched")
	}
}

func TestWrite_OutOfBlocksIsAtomic(t *testing.T) {
	// data blocks 10..13
	fs := newTestFileSystem(t, 14)
	a := mustCreate(t, fs, InoRoot, "a")
	mustWrite(t, fs, a, 0, pattern(512, 'a'))
	b := mustCreate(t, fs, InoRoot, "b")
	mustWrite(t, fs, b, 0, pattern(100, 'b'))
	before := mustUsage(t, fs)

	_, err := fs.Write(b, 100, pattern(1500, 'x'))
	checkCategory(t, "Write()", err, CategoryResourceExhausted)

	after := mustUsage(t, fs)
	if !blocksEqual(after.UsedBlocks, before.UsedBlocks) {
		t.Fatalf(
			"Write(): wanted used blocks `%v`; found `%v`",
			before.UsedBlocks,
			after.UsedBlocks,
		)
	}
	if found := mustRead(t, fs, b); !bytes.Equal(found, pattern(100, 'b')) {
		t.Fatal("Write(): wanted failed write to leave content unchanged")
	}
}

// failingDevice fails the first write to `failAt` once armed.
type failingDevice struct {
	blocks.Device
	failAt Block
	armed  bool
}

func (d *failingDevice) WriteBlock(b Block, data *[BlockSize]byte) error {
	if d.armed && b == d.failAt {
		d.armed = false
		return fmt.Errorf("writing block `%d`: device error", b)
	}
	return d.Device.WriteBlock(b, data)
}

func TestMutate_RestoresMetadataOnFlushFailure(t *testing.T) {
	device := &failingDevice{Device: blocks.NewMemoryDevice(64)}
	logger, hook := test.NewNullLogger()
	fs, err := Format(device, WithLogger(logger))
	if err != nil {
		t.Fatalf("Format(): unexpected err: %v", err)
	}
	before := mustUsage(t, fs)

	device.failAt, device.armed = InoBitmapBlock, true
	_, err = fs.Create(InoRoot, "f")
	checkCategory(t, "Create()", err, CategoryInternal)

	if entry := hook.LastEntry(); entry == nil || entry.Level != logrus.ErrorLevel {
		t.Fatalf("wanted an error-level log entry; found `%v`", entry)
	}

	after := mustUsage(t, fs)
	if after.UsedInodes != before.UsedInodes ||
		!blocksEqual(after.UsedBlocks, before.UsedBlocks) {
		t.Fatalf(
			"Create(): wanted usage unchanged after failed flush; "+
				"found `%+v`",
			after,
		)
	}

	// the device holds the restored state too
	reopened, err := Open(device.Device)
	if err != nil {
		t.Fatalf("Open(): unexpected err: %v", err)
	}
	if found := mustUsage(t, reopened); found.UsedInodes != before.UsedInodes ||
		!blocksEqual(found.UsedBlocks, before.UsedBlocks) {
		t.Fatalf("Open(): wanted usage `%+v`; found `%+v`", before, found)
	}

	// the name is still free
	if _, err := fs.Create(InoRoot, "f"); err != nil {
		t.Fatalf("Create(): unexpected err: %v", err)
	}
}

func TestMutate_FailedFlushLeavesNoDirtyState(t *testing.T) {
	memory := blocks.NewMemoryDevice(64)
	device := &failingDevice{Device: memory}
	logger, _ := test.NewNullLogger()
	fs, err := Format(blocks.NewCache(device, 32), WithLogger(logger))
	if err != nil {
		t.Fatalf("Format(): unexpected err: %v", err)
	}
	before := mustUsage(t, fs)

	device.failAt, device.armed = InoBitmapBlock, true
	_, err = fs.Create(InoRoot, "f")
	checkCategory(t, "Create()", err, CategoryInternal)

	// a later flush must not persist the rejected create
	if err := fs.WithDevice(blocks.Flush); err != nil {
		t.Fatalf("Flush(): unexpected err: %v", err)
	}

	reopened, err := Open(memory)
	if err != nil {
		t.Fatalf("Open(): unexpected err: %v", err)
	}
	found := mustUsage(t, reopened)
	if found.UsedInodes != before.UsedInodes ||
		!blocksEqual(found.UsedBlocks, before.UsedBlocks) {
		t.Fatalf("Open(): wanted usage `%+v`; found `%+v`", before, found)
	}
	if _, _, err := reopened.Lookup("/f"); CategoryOf(err) != CategoryNotFound {
		t.Fatalf("Lookup(): wanted not-found; found `%v`", err)
	}
}

func TestOpen(t *testing.T) {
	device := blocks.NewMemoryDevice(64)
	fs, err := Format(device)
	if err != nil {
		t.Fatalf("Format(): unexpected err: %v", err)
	}
	dir := mustMkdir(t, fs, InoRoot, "d")
	file := mustCreate(t, fs, dir, "f")
	mustWrite(t, fs, file, 0, pattern(2000, 'z'))

	reopened, err := Open(device)
	if err != nil {
		t.Fatalf("Open(): unexpected err: %v", err)
	}
	ino, size, err := reopened.Lookup("/d/f")
	if err != nil {
		t.Fatalf("Lookup(): unexpected err: %v", err)
	}
	if ino != file || size != 2000 {
		t.Fatalf(
			"Lookup(): wanted ino `%d`, size `2000`; found `%d`, `%d`",
			file,
			ino,
			size,
		)
	}
	if found := mustRead(t, reopened, ino); !bytes.Equal(found, pattern(2000, 'z')) {
		t.Fatal("Read(): wanted content to survive reopening")
	}
}

func TestOpen_Unformatted(t *testing.T) {
	_, err := Open(blocks.NewMemoryDevice(64))
	checkCategory(t, "Open()", err, CategoryInternal)
}

func TestAppend(t *testing.T) {
	fs := newTestFileSystem(t, 64)
	dir := mustMkdir(t, fs, InoRoot, "d")
	src := mustCreate(t, fs, InoRoot, "src")
	mustWrite(t, fs, src, 0, []byte("world"))
	dst := mustCreate(t, fs, dir, "dst")
	mustWrite(t, fs, dst, 0, []byte("hello "))

	size, err := fs.Append(InoRoot, "src", dir, "dst")
	if err != nil {
		t.Fatalf("Append(): unexpected err: %v", err)
	}
	if size != 11 {
		t.Fatalf("Append(): wanted size `11`; found `%d`", size)
	}
	if found := mustRead(t, fs, dst); string(found) != "hello world" {
		t.Fatalf("Append(): wanted `hello world`; found `%s`", found)
	}

	// self-append doubles the file
	if size, err = fs.Append(InoRoot, "src", InoRoot, "src"); err != nil {
		t.Fatalf("Append(): unexpected err: %v", err)
	}
	if found := mustRead(t, fs, src); string(found) != "worldworld" {
		t.Fatalf("Append(): wanted `worldworld`; found `%s`", found)
	}

	big := mustCreate(t, fs, InoRoot, "big")
	mustWrite(t, fs, big, 0, pattern(3000, 'b'))
	_, err = fs.Append(InoRoot, "big", InoRoot, "big")
	checkCategory(t, "Append()", err, CategoryResourceExhausted)
	if attrs, _ := fs.GetAttrs(big); attrs.Size != 3000 {
		t.Fatalf("Append(): wanted size `3000` kept; found `%d`", attrs.Size)
	}

	_, err = fs.Append(InoRoot, "d", InoRoot, "src")
	checkCategory(t, "Append(dir)", err, CategoryWrongType)
}

func TestCopy(t *testing.T) {
	fs := newTestFileSystem(t, 64)
	src := mustCreate(t, fs, InoRoot, "src")
	mustWrite(t, fs, src, 0, pattern(1200, 's'))

	ino, err := fs.Copy(InoRoot, "src", InoRoot, "dst")
	if err != nil {
		t.Fatalf("Copy(): unexpected err: %v", err)
	}
	if found := mustRead(t, fs, ino); !bytes.Equal(found, pattern(1200, 's')) {
		t.Fatal("Copy(): wanted destination to match source")
	}

	// copying over a larger file shrinks it
	big := mustCreate(t, fs, InoRoot, "big")
	mustWrite(t, fs, big, 0, pattern(4000, 'b'))
	before := mustUsage(t, fs)
	found, err := fs.Copy(InoRoot, "src", InoRoot, "big")
	if err != nil {
		t.Fatalf("Copy(): unexpected err: %v", err)
	}
	if found != big {
		t.Fatalf("Copy(): wanted existing ino `%d`; found `%d`", big, found)
	}
	after := mustUsage(t, fs)
	if len(after.UsedBlocks) != len(before.UsedBlocks)-5 {
		t.Fatalf(
			"Copy(): wanted `5` blocks released; found `%d` -> `%d`",
			len(before.UsedBlocks),
			len(after.UsedBlocks),
		)
	}

	_, err = fs.Copy(InoRoot, "missing", InoRoot, "x")
	checkCategory(t, "Copy()", err, CategoryNotFound)
	if _, _, err := fs.Lookup("/x"); CategoryOf(err) != CategoryNotFound {
		t.Fatalf("Copy(): wanted no destination after failure; found `%v`", err)
	}
}

func TestDumpCache(t *testing.T) {
	fs := newTestFileSystem(t, 64)
	if dump := fs.DumpCache(); len(dump) != 0 {
		t.Fatalf("DumpCache(): wanted empty dump; found `%+v`", dump)
	}

	cache := blocks.NewCache(blocks.NewMemoryDevice(64), 4)
	cached, err := Format(cache)
	if err != nil {
		t.Fatalf("Format(): unexpected err: %v", err)
	}
	ino := mustCreate(t, cached, InoRoot, "f")
	mustWrite(t, cached, ino, 0, []byte("cached content"))
	mustRead(t, cached, ino)

	dump := cached.DumpCache()
	if len(dump) == 0 || len(dump) > 4 {
		t.Fatalf("DumpCache(): wanted 1..4 blocks; found `%d`", len(dump))
	}
	if dump[0].Preview != "cached content.." {
		t.Fatalf(
			"DumpCache(): wanted most recent block first; found `%+v`",
			dump[0],
		)
	}
}

func TestPing(t *testing.T) {
	fs := newTestFileSystem(t, 64)
	if found := fs.Ping("client"); found != "hello, client" {
		t.Fatalf("Ping(): wanted `hello, client`; found `%s`", found)
	}
}

func TestConcurrentClients(t *testing.T) {
	fs := newTestFileSystem(t, 512)
	const clients = 8
	const filesPerClient = 4

	var wg sync.WaitGroup
	errs := make(chan error, clients+1)
	for c := 0; c < clients; c++ {
		wg.Add(1)
		go func(c int) {
			defer wg.Done()
			dir, err := fs.Mkdir(InoRoot, fmt.Sprintf("c%d", c))
			if err != nil {
				errs <- err
				return
			}
			for i := 0; i < filesPerClient; i++ {
				ino, err := fs.Create(dir, fmt.Sprintf("f%d", i))
				if err != nil {
					errs <- err
					return
				}
				if _, err := fs.Write(
					ino,
					0,
					pattern(300*(i+1), byte('a'+c)),
				); err != nil {
					errs <- err
					return
				}
				if i%2 == 1 {
					if err := fs.Remove(dir, fmt.Sprintf("f%d", i-1)); err != nil {
						errs <- err
						return
					}
				}
			}
		}(c)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 5; i++ {
			if _, err := fs.Defrag(); err != nil {
				errs <- err
				return
			}
		}
	}()
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("unexpected err: %v", err)
	}

	if _, err := fs.Defrag(); err != nil {
		t.Fatalf("Defrag(): unexpected err: %v", err)
	}
	for c := 0; c < clients; c++ {
		for i := 1; i < filesPerClient; i += 2 {
			path := fmt.Sprintf("/c%d/f%d", c, i)
			ino, _, err := fs.Lookup(path)
			if err != nil {
				t.Fatalf("Lookup(`%s`): unexpected err: %v", path, err)
			}
			wanted := pattern(300*(i+1), byte('a'+c))
			if found := mustRead(t, fs, ino); !bytes.Equal(found, wanted) {
				t.Fatalf("Read(`%s`): content mismatch", path)
			}
		}
	}

	usage := mustUsage(t, fs)
	last := FirstDataBlock + Block(len(usage.UsedBlocks)) - 1
	if len(usage.UsedBlocks) > 0 && usage.UsedBlocks[len(usage.UsedBlocks)-1] != last {
		t.Fatalf("wanted left-packed data region; found `%v`", usage.UsedBlocks)
	}
}
