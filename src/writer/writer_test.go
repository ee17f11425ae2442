package writer

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasicWriting(t *testing.T) {
	fs := NewFakeFS()
	root := NewRoot(fs.Factory())
	reg := NewRegistry(root)

	fh := reg.Get("/fake/A", false)
	require.NoError(t, fh.Write([]byte("hello ")))
	require.NoError(t, fh.Write([]byte("world")))
	require.NoError(t, fh.Close())

	assert.Equal(t, "hello world", fs.Contents("/fake/A"))
}

func TestReopenNamedFileReusesHandle(t *testing.T) {
	fs := NewFakeFS()
	root := NewRoot(fs.Factory())
	reg := NewRegistry(root)

	fh1 := reg.Get("/fake/A", true)
	fh2 := reg.Get("/fake/A", true)
	assert.Same(t, fh1, fh2)

	require.NoError(t, fh1.Write([]byte("one-")))
	require.NoError(t, fh2.Write([]byte("two")))
	require.NoError(t, fh1.Close())
	assert.Equal(t, "one-two", fs.Contents("/fake/A"))
}

func TestMultithreadedWrite(t *testing.T) {
	fs := NewFakeFS()
	root := NewRoot(fs.Factory())

	const workers = 20
	const iterations = 100

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			reg := NewRegistry(root)
			fh := reg.Get("/fake/B", false)
			for i := 0; i < iterations; i++ {
				_ = fh.Write([]byte("x"))
			}
			_ = fh.Flush()
		}()
	}
	wg.Wait()

	fh := NewRegistry(root).Get("/fake/B", false)
	require.NoError(t, fh.Close())
	assert.Len(t, fs.Contents("/fake/B"), workers*iterations)
}

func TestCloseThenWriteReopens(t *testing.T) {
	fs := NewFakeFS()
	root := NewRoot(fs.Factory())
	reg := NewRegistry(root)

	fh := reg.Get("/fake/A", false)
	require.NoError(t, fh.Write([]byte("first")))
	require.NoError(t, fh.Close())
	assert.Equal(t, "first", fs.Contents("/fake/A"))

	// The owner goroutine must still be alive to serve a write after Close;
	// a dead owner would leave this request stuck in the channel forever.
	require.NoError(t, fh.Write([]byte("second")))
	require.NoError(t, fh.Close())
	assert.Equal(t, "second", fs.Contents("/fake/A"))
}

func TestPoisonedFileLatchesError(t *testing.T) {
	fs := NewFakeFS()
	root := NewRoot(fs.Factory())
	reg := NewRegistry(root)

	fh := reg.Get("bad:/fake/BAD", false)
	require.NoError(t, fh.Write([]byte("x"))) // Only queued; the open failure surfaces on Flush.
	err := fh.Flush()
	assert.Error(t, err)

	// A write after the error has latched fails with that same error, not a
	// panic or a second conflicting error; so does the next flush.
	require.Equal(t, err, fh.Write([]byte("y")))
	err2 := fh.Flush()
	assert.Equal(t, err, err2)
}
