package driver

import (
	"fmt"
	"unsafe"

	"golang.org/x/sync/errgroup"

	"jitawk/src/util"
)

const (
	entrypointMain     = "__frawk_main"
	entrypointBegin    = "__frawk_begin"
	entrypointMainLoop = "__frawk_main_loop"
	entrypointEnd      = "__frawk_end_loop"
)

// splitInputs divides files into n shards of roughly equal size, the same
// coarse-grained split a parallel AWK run uses to hand each worker its own
// slice of the input set. A finer split (splitting within a single large
// file into byte-range shards) is explicitly out of scope for this module.
func splitInputs(files []string, n int) [][]string {
	if n <= 0 {
		n = 1
	}
	if n > len(files) {
		n = len(files)
	}
	if n == 0 {
		return nil
	}
	shards := make([][]string, n)
	for i, f := range files {
		shards[i%n] = append(shards[i%n], f)
	}
	return shards
}

// RunProgram executes the compiled program: a single __frawk_main call when
// numWorkers is 1 or less (or the module has no parallel entrypoint triple),
// otherwise the full begin -> N parallel main_loop shards -> end sequence.
// The shards' file lists only decide how many main_loop runs are made; no
// shuttle is given the files of its shard.
// Any worker panic is recovered and folded into the combined error; on
// failure the partially aggregated Slots state is discarded rather than
// combined, since a partial parallel result is not a meaningful AWK
// execution result.
func RunProgram(e *Engine, cfg *Config, inputs []string, numWorkers int) error {
	if numWorkers <= 1 || !e.HasEntrypoint(entrypointBegin) {
		main := NewShuttle(cfg, 0)
		return e.CallEntrypoint(entrypointMain, shuttlePtr(main))
	}

	begin := NewShuttle(cfg, 0)
	if err := e.CallEntrypoint(entrypointBegin, shuttlePtr(begin)); err != nil {
		return err
	}

	shards := splitInputs(inputs, numWorkers)
	if len(shards) == 0 {
		main := NewShuttle(cfg, 1)
		if err := e.CallEntrypoint(entrypointMainLoop, shuttlePtr(main)); err != nil {
			return err
		}
		begin.Slots.Combine(main.Slots)
		return e.CallEntrypoint(entrypointEnd, shuttlePtr(begin))
	}

	// Worker pids start at 2; pid 1 is reserved for the main thread's own
	// shard (the last one, run inline below rather than in a goroutine).
	agg := util.NewErrorAggregator(len(shards))
	var eg errgroup.Group
	results := make(chan *Shuttle, len(shards))

	for i := 0; i < len(shards)-1; i++ {
		i := i
		eg.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					agg.Append(fmt.Errorf("worker %d panicked: %v", i+2, r))
				}
			}()
			s := NewShuttle(cfg, i+2)
			if cerr := e.CallEntrypoint(entrypointMainLoop, shuttlePtr(s)); cerr != nil {
				agg.Append(fmt.Errorf("worker %d: %w", i+2, cerr))
				return nil
			}
			results <- s
			return nil
		})
	}

	mainShuttle := NewShuttle(cfg, 1)
	mainErr := e.CallEntrypoint(entrypointMainLoop, shuttlePtr(mainShuttle))
	if mainErr != nil {
		agg.Append(mainErr)
	} else {
		results <- mainShuttle
	}

	_ = eg.Wait() // every worker error was already folded into agg above
	close(results)

	if combined := agg.Combined(); combined != nil {
		return combined
	}

	// Combine in arrival order: the bounded channel holds one result per
	// shard, in the order each run finished.
	for r := range results {
		begin.Slots.Combine(r.Slots)
	}
	begin.Pid = 0
	return e.CallEntrypoint(entrypointEnd, shuttlePtr(begin))
}

// shuttlePtr exposes s as the opaque runtime-context pointer the generated
// entrypoint's single argument expects.
func shuttlePtr(s *Shuttle) unsafe.Pointer {
	return unsafe.Pointer(s)
}
