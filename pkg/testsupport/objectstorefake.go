// Package testsupport holds in-memory fakes for tests.
package testsupport

import (
	"bytes"
	"fmt"
	"io"
	"io/ioutil"
	"sort"
	"strings"
	"sync"

	"github.com/weberc2/snfs/pkg/types"
)

const (
	BrokenObjectErr types.ConstError = "object stream broken"
)

var _ types.ObjectStore = (*ObjectStoreFake)(nil)

type objectKey struct {
	bucket string
	key    string
}

// ObjectStoreFake holds images in memory. A download of an object marked
// with `Break` fails once the given number of bytes has been served.
type ObjectStoreFake struct {
	lock    sync.Mutex
	objects map[objectKey][]byte
	broken  map[objectKey]int
}

func NewObjectStoreFake() *ObjectStoreFake {
	return &ObjectStoreFake{
		objects: map[objectKey][]byte{},
		broken:  map[objectKey]int{},
	}
}

// Size returns the stored size of an object, as written by the caller
// (after any compression layered above the fake).
func (osf *ObjectStoreFake) Size(bucket, key string) (int, bool) {
	osf.lock.Lock()
	defer osf.lock.Unlock()
	data, found := osf.objects[objectKey{bucket, key}]
	return len(data), found
}

// Break makes every later download of the object fail after `after` bytes.
func (osf *ObjectStoreFake) Break(bucket, key string, after int) {
	osf.lock.Lock()
	defer osf.lock.Unlock()
	osf.broken[objectKey{bucket, key}] = after
}

func (osf *ObjectStoreFake) PutObject(
	bucket string,
	key string,
	data io.ReadSeeker,
) error {
	var b bytes.Buffer
	if _, err := io.Copy(&b, data); err != nil {
		return fmt.Errorf("putting object `%s/%s`: %w", bucket, key, err)
	}

	osf.lock.Lock()
	defer osf.lock.Unlock()
	osf.objects[objectKey{bucket, key}] = b.Bytes()
	return nil
}

func (osf *ObjectStoreFake) GetObject(
	bucket string,
	key string,
) (io.ReadCloser, error) {
	osf.lock.Lock()
	defer osf.lock.Unlock()

	k := objectKey{bucket, key}
	data, found := osf.objects[k]
	if !found {
		return nil, &types.ObjectNotFoundErr{Bucket: bucket, Key: key}
	}
	if after, broken := osf.broken[k]; broken && after < len(data) {
		return ioutil.NopCloser(io.MultiReader(
			bytes.NewReader(data[:after]),
			brokenReader{},
		)), nil
	}
	return ioutil.NopCloser(bytes.NewReader(data)), nil
}

func (osf *ObjectStoreFake) ListObjects(
	bucket string,
	prefix string,
) ([]string, error) {
	osf.lock.Lock()
	defer osf.lock.Unlock()

	keys := []string{}
	for k := range osf.objects {
		if k.bucket == bucket && strings.HasPrefix(k.key, prefix) {
			keys = append(keys, k.key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (osf *ObjectStoreFake) DeleteObject(bucket, key string) error {
	osf.lock.Lock()
	defer osf.lock.Unlock()

	k := objectKey{bucket, key}
	if _, found := osf.objects[k]; !found {
		return &types.ObjectNotFoundErr{Bucket: bucket, Key: key}
	}
	delete(osf.objects, k)
	delete(osf.broken, k)
	return nil
}

type brokenReader struct{}

func (brokenReader) Read([]byte) (int, error) { return 0, BrokenObjectErr }
