package driver

import (
	"github.com/dc0d/onexit"
	"github.com/google/uuid"

	"jitawk/src/runtime"
	"jitawk/src/writer"
)

// Shuttle is the private, per-worker mutable state a parallel worker goroutine
// owns for the lifetime of one shard's main_loop run: its aggregation
// slots and a writer Registry scoped to that worker. Config is the
// immutable state every shuttle shares (read-only, safe for concurrent
// access without locking).
type Shuttle struct {
	ID     uuid.UUID
	Pid    int
	Slots  *runtime.Slots
	Writer *writer.Registry
}

// Config holds state shared read-only across every worker shuttle: the
// output writer Root (owning the actual per-sink owner goroutines) and the
// number of global aggregation slots each shuttle's Slots array needs.
type Config struct {
	WriterRoot *writer.Root
	NumSlots   int
}

// NewConfig builds a Config around a fresh writer.Root using factory (pass
// writer.OSFactory for real files), and registers an exit hook that flushes
// every open sink before the process actually terminates -- so a signal- or
// os.Exit-triggered shutdown mid-run doesn't drop buffered output the way a
// bare process kill would.
func NewConfig(factory writer.Factory, numSlots int) *Config {
	root := writer.NewRoot(factory)
	onexit.Register(root.CloseAll)
	return &Config{WriterRoot: root, NumSlots: numSlots}
}

// NewShuttle creates a shuttle for worker pid, scoped to cfg.
func NewShuttle(cfg *Config, pid int) *Shuttle {
	return &Shuttle{
		ID:     uuid.New(),
		Pid:    pid,
		Slots:  runtime.NewSlots(cfg.NumSlots),
		Writer: writer.NewRegistry(cfg.WriterRoot),
	}
}
