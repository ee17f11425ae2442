package writer

import (
	"bytes"
	"fmt"
	"io"
	"sync"
)

// FakeFS is an in-memory filesystem used by this package's tests, standing
// in for real files so tests can assert on exact written bytes and inject
// open/write failures without touching disk. A path named with the prefix
// "bad:" always fails to open, modeling a permission-denied or
// poisoned-device failure.
type FakeFS struct {
	mx    sync.Mutex
	files map[string]*bytes.Buffer
}

func NewFakeFS() *FakeFS {
	return &FakeFS{files: map[string]*bytes.Buffer{}}
}

// Factory returns a Factory bound to this FakeFS.
func (fs *FakeFS) Factory() Factory {
	return func(path string, appendMode bool) (io.WriteCloser, error) {
		if len(path) >= 4 && path[:4] == "bad:" {
			return nil, fmt.Errorf("fake open failure for %s", path)
		}
		fs.mx.Lock()
		defer fs.mx.Unlock()
		buf, ok := fs.files[path]
		if !ok || !appendMode {
			buf = &bytes.Buffer{}
			fs.files[path] = buf
		}
		return &fakeFile{fs: fs, path: path}, nil
	}
}

// Contents returns the current bytes written to path.
func (fs *FakeFS) Contents(path string) string {
	fs.mx.Lock()
	defer fs.mx.Unlock()
	if b, ok := fs.files[path]; ok {
		return b.String()
	}
	return ""
}

type fakeFile struct {
	fs   *FakeFS
	path string
}

func (f *fakeFile) Write(p []byte) (int, error) {
	f.fs.mx.Lock()
	defer f.fs.mx.Unlock()
	buf := f.fs.files[f.path]
	return buf.Write(p)
}

func (f *fakeFile) Close() error { return nil }
