// Package writer implements the parallel output writer: one owner goroutine
// per distinct output sink (stdout, or a named file opened for either
// truncate or append), batching writes from any number of client
// goroutines into vectored writes, so that many AWK worker shuttles can
// all print() to the same file concurrently without interleaving bytes or
// serializing on a single lock around every print call.
//
// This is a port of a real AWK JIT's writer module: Registry/Root/
// RawHandle/FileHandle/Request/WriteBatch play the same roles, translated
// from Rust's Arc/Mutex/mpsc into Go's sync.Mutex, buffered channels, and
// sync/atomic. There is no client-side WriteGuard buffer: every
// FileHandle.Write sends its own request, and batching happens only in the
// owner goroutine.
package writer

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

const (
	maxBatchBytes = 1 << 20 // 1MiB
	maxBatchSize  = 1 << 10 // 1024 pending writes
)

// errCode is the three-state atomic error flag shared between a RawHandle's
// owner goroutine and every client FileHandle writing to it. ONGOING means
// no flush has completed and no error has been observed since the sink was
// (re)opened; OK means a flush has completed without error; ERROR latches
// the first failure. Only reset, after a Close, returns it to ONGOING.
type errCode int32

const (
	codeOngoing errCode = iota
	codeOK
	codeError
)

type errorState struct {
	code atomic.Int32
	err  atomic.Value // error
}

func (e *errorState) load() (errCode, error) {
	c := errCode(e.code.Load())
	if c != codeError {
		return c, nil
	}
	err, _ := e.err.Load().(error)
	return c, err
}

// markError latches the first error seen; subsequent calls are no-ops so
// the original failure is never overwritten by a later, derived one (e.g.
// "broken pipe" errors cascading from the first write failure).
func (e *errorState) markError(err error) {
	for {
		c := e.code.Load()
		if errCode(c) == codeError {
			return
		}
		if e.code.CompareAndSwap(c, int32(codeError)) {
			e.err.Store(err)
			return
		}
	}
}

func (e *errorState) markOK() {
	e.code.CompareAndSwap(int32(codeOngoing), int32(codeOK))
}

// reset returns a latched state to ONGOING, used after a Close drops the
// writer so the next reopen attempt gets a fresh chance rather than being
// permanently skipped by a stale ERROR latch. code is only ever read via
// load, which never inspects err unless code is ERROR, so this is safe to
// do without also clearing err.
func (e *errorState) reset() {
	e.code.Store(int32(codeOngoing))
}

// requestKind distinguishes the three messages an owner goroutine accepts.
type requestKind int

const (
	reqWrite requestKind = iota
	reqFlush
	reqClose
)

// request is one message sent to a sink's owner goroutine. For reqWrite,
// Data holds the bytes to append (copied out of the caller's buffer, since
// the caller may reuse it immediately after sending). For reqFlush, Done is
// closed once every write queued before the flush has been issued to the
// OS.
type request struct {
	kind   requestKind
	data   []byte
	append bool
	done   chan struct{}
	id     uuid.UUID
}

// rawHandle is the shared, per-sink state a Root hands out: client
// goroutines send requests on Reqs, and read errors back via State.
type rawHandle struct {
	path    string
	reqs    chan *request
	state   *errorState
	pending *request // a flush/close sighted while opportunistically draining writes
}

// Factory opens the real (or fake, in tests) backing writer for a path.
type Factory func(path string, appendMode bool) (io.WriteCloser, error)

func defaultFactory(path string, appendMode bool) (io.WriteCloser, error) {
	return nil, fmt.Errorf("defaultFactory: no concrete opener configured for %q", path)
}

// Root owns the map from output path to its rawHandle, lazily spawning one
// owner goroutine per distinct path the first time it's requested.
type Root struct {
	mx      sync.Mutex
	handles map[string]*rawHandle
	factory Factory
}

// NewRoot creates a Root that opens sinks via factory. Pass OSFactory for
// real files; nil installs a factory whose every open fails.
func NewRoot(factory Factory) *Root {
	if factory == nil {
		factory = defaultFactory
	}
	return &Root{handles: map[string]*rawHandle{}, factory: factory}
}

// getHandle returns the rawHandle for path, creating and spawning its owner
// goroutine if this is the first request for that path.
func (r *Root) getHandle(path string, appendMode bool) *rawHandle {
	r.mx.Lock()
	defer r.mx.Unlock()
	if h, ok := r.handles[path]; ok {
		return h
	}
	h := &rawHandle{
		path:  path,
		reqs:  make(chan *request, maxBatchSize),
		state: &errorState{},
	}
	r.handles[path] = h
	go receiveLoop(h, r.factory, appendMode)
	return h
}

// CloseAll flushes and closes every sink this Root has ever opened. It is
// meant to be called once, from process shutdown, so any output still
// queued for or batched in an owner goroutine reaches disk even if the run is ending via
// an exit hook rather than every writer's own explicit Close call.
func (r *Root) CloseAll() {
	r.mx.Lock()
	handles := make([]*rawHandle, 0, len(r.handles))
	for _, h := range r.handles {
		handles = append(handles, h)
	}
	r.mx.Unlock()

	for _, h := range handles {
		done := make(chan struct{})
		h.reqs <- &request{kind: reqFlush, done: done}
		<-done
		h.reqs <- &request{kind: reqClose}
	}
}

// Registry is the per-caller handle into a shared Root: it caches
// FileHandles locally (so repeated writes to the same path reuse the same
// FileHandle) without needing goroutine-local storage --
// callers own their Registry explicitly and pass it along instead.
type Registry struct {
	root  *Root
	cache map[string]*FileHandle
	mx    sync.Mutex
}

// NewRegistry creates a Registry bound to root. Multiple Registries may
// share the same Root; each gets its own client-side cache.
func NewRegistry(root *Root) *Registry {
	return &Registry{root: root, cache: map[string]*FileHandle{}}
}

// Get returns the FileHandle for path, opened in append mode if appendMode
// is set. The first call for a given path in this Registry determines its
// mode; later calls for the same path ignore a changed appendMode argument,
// matching "a file is opened once and reused for the process lifetime".
func (reg *Registry) Get(path string, appendMode bool) *FileHandle {
	reg.mx.Lock()
	defer reg.mx.Unlock()
	if fh, ok := reg.cache[path]; ok {
		return fh
	}
	raw := reg.root.getHandle(path, appendMode)
	fh := &FileHandle{raw: raw, appendMode: appendMode}
	reg.cache[path] = fh
	return fh
}

// FileHandle is the client side of one output sink. Each Write copies its
// bytes into one request message and sends it to the owner goroutine
// without waiting for it to be issued; the handle keeps no client-side
// buffer, so batching happens only in the owner goroutine.
type FileHandle struct {
	raw        *rawHandle
	appendMode bool
}

// Write sends data to the sink's owner goroutine. It returns an error only
// if the sink has already latched a terminal error; otherwise the write is
// asynchronous and a later Flush or Close is required to observe any error
// it causes.
func (fh *FileHandle) Write(data []byte) error {
	if code, err := fh.raw.state.load(); code == codeError {
		return err
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	fh.raw.reqs <- &request{kind: reqWrite, data: cp, append: fh.appendMode, id: uuid.New()}
	return nil
}

// Flush blocks until every write queued before this call has been issued to
// the OS, then returns the sink's current error state.
func (fh *FileHandle) Flush() error {
	done := make(chan struct{})
	fh.raw.reqs <- &request{kind: reqFlush, done: done, id: uuid.New()}
	<-done
	_, err := fh.raw.state.load()
	return err
}

// Close flushes and tells the owner goroutine to close the sink. The owner
// goroutine stays alive: a later Write through this FileHandle reopens the
// sink.
func (fh *FileHandle) Close() error {
	if err := fh.Flush(); err != nil {
		return err
	}
	fh.raw.reqs <- &request{kind: reqClose, id: uuid.New()}
	return nil
}

// writeBatch accumulates pending write payloads until a cutoff (byte count,
// write count, or a flush/close sighting) is reached, then issues them as
// one vectored write.
type writeBatch struct {
	bufs      net_Buffers
	byteCount int
}

// net_Buffers holds one batch's payloads. writeAllTo copies them into a
// single buffer and issues one Write, a portable stand-in for writev that
// needs no net import (the win here is fewer, bigger syscalls, not
// avoiding a copy).
type net_Buffers [][]byte

func (b net_Buffers) writeAllTo(w io.Writer) (int64, error) {
	size := 0
	for _, buf := range b {
		size += len(buf)
	}
	joined := make([]byte, 0, size)
	for _, buf := range b {
		joined = append(joined, buf...)
	}
	n, err := w.Write(joined)
	return int64(n), err
}

func (wb *writeBatch) push(data []byte) {
	wb.bufs = append(wb.bufs, data)
	wb.byteCount += len(data)
}

func (wb *writeBatch) full() bool {
	return wb.byteCount >= maxBatchBytes || len(wb.bufs) >= maxBatchSize
}

func (wb *writeBatch) issue(w io.Writer) error {
	if len(wb.bufs) == 0 {
		return nil
	}
	_, err := wb.bufs.writeAllTo(w)
	wb.bufs = wb.bufs[:0]
	wb.byteCount = 0
	return err
}

// receiveLoop is the owner goroutine for one sink. It drains whatever
// requests are already queued into a batch before issuing a write, so that
// many client Write calls arriving in a burst collapse into one or a few
// syscalls instead of one per call.
func receiveLoop(h *rawHandle, factory Factory, appendMode bool) {
	var w io.WriteCloser
	var openErr error
	opened := false
	batch := &writeBatch{}

	open := func() io.WriteCloser {
		if opened {
			return w
		}
		opened = true
		w, openErr = factory(h.path, appendMode)
		if openErr != nil {
			h.state.markError(fmt.Errorf("open %s: %w", h.path, openErr))
		}
		return w
	}

	// dropWriter closes the current backing writer (if any) and resets
	// open-on-demand state, so the next Write reopens the sink rather than
	// leaving the owner goroutine dead. Close never terminates this
	// goroutine -- only the channel being closed does.
	dropWriter := func() {
		if opened && w != nil {
			_ = w.Close()
		}
		w = nil
		openErr = nil
		opened = false
		h.state.reset()
	}

	flushBatch := func() {
		ww := open()
		if ww == nil {
			return
		}
		if err := batch.issue(ww); err != nil {
			h.state.markError(fmt.Errorf("write %s: %w", h.path, err))
		}
	}

	for req := range h.reqs {
		switch req.kind {
		case reqWrite:
			if _, err := h.state.load(); err != nil {
				continue
			}
			if !opened && len(batch.bufs) == 0 {
				// The first write of a batch decides the mode a closed
				// sink is (re)opened in.
				appendMode = req.append
			}
			batch.push(req.data)
			// Opportunistically drain whatever writes are already queued
			// before issuing, so a burst collapses into one syscall
			// instead of one per request. Stop draining as soon as a
			// flush/close is sighted or a cutoff is hit; that message
			// stays in the channel for the outer loop to handle next.
		drain:
			for !batch.full() {
				select {
				case next := <-h.reqs:
					if next.kind != reqWrite {
						h.pending = next
						break drain
					}
					if _, err := h.state.load(); err == nil {
						batch.push(next.data)
					}
				default:
					break drain
				}
			}
			if batch.full() {
				flushBatch()
			}
		case reqFlush:
			flushBatch()
			h.state.markOK()
			close(req.done)
		case reqClose:
			flushBatch()
			dropWriter()
		}
		if h.pending != nil {
			p := h.pending
			h.pending = nil
			pendingReq := p
			// Re-inject the deferred request at the front of processing by
			// handling it immediately, preserving arrival order.
			switch pendingReq.kind {
			case reqFlush:
				flushBatch()
				h.state.markOK()
				close(pendingReq.done)
			case reqClose:
				flushBatch()
				dropWriter()
			}
		}
	}
}
