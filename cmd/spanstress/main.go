package main

import "fmt"
import "flag"
import "math/rand"
import "time"
import "unsafe"

import "golang.org/x/sync/errgroup"

import "github.com/prataprc/spanalloc"
import "github.com/prataprc/spanalloc/config"

var options struct {
	threads    int
	iterations int
	burst      int
	maxSize    int
}

func argParse() {
	flag.IntVar(&options.threads, "threads", 8,
		"number of goroutines racing the allocator")
	flag.IntVar(&options.iterations, "iterations", 100,
		"outer iterations per goroutine")
	flag.IntVar(&options.burst, "burst", 8192,
		"allocations per outer iteration before freeing the batch")
	flag.IntVar(&options.maxSize, "maxsize", 8192,
		"upper bound (inclusive) of the random size distribution, which starts at 1")
	flag.Parse()
}

func main() {
	argParse()
	if err := spanalloc.Initialize(config.Default()); err != nil {
		panic(err)
	}
	defer spanalloc.Finalize()

	start := time.Now()
	if err := stress(); err != nil {
		panic(err)
	}
	fmt.Printf("%v threads x %v iterations x %v burst: %v\n",
		options.threads, options.iterations, options.burst, time.Since(start))
}

// stress runs a multi-goroutine soak: each goroutine runs its own
// seeded sequential sweep for options.iterations outer loops, every one
// of them allocating a burst of randomly sized blocks and then freeing
// the whole burst. errgroup's Wait returns the first goroutine error;
// the other goroutines are not cancelled and run to completion.
func stress() error {
	g := new(errgroup.Group)
	for i := 0; i < options.threads; i++ {
		seed := int64(i + 1)
		g.Go(func() error {
			return sweepOne(seed)
		})
	}
	return g.Wait()
}

func sweepOne(seed int64) error {
	spanalloc.ThreadInitialize()
	defer spanalloc.ThreadFinalize()

	r := rand.New(rand.NewSource(seed))
	live := make([]unsafe.Pointer, 0, options.burst)

	for outer := 0; outer < options.iterations; outer++ {
		live = live[:0]
		for i := 0; i < options.burst; i++ {
			size := uintptr(r.Intn(options.maxSize)) + 1
			p := spanalloc.Allocate(size, spanalloc.AllocOpts{})
			if p == nil {
				return fmt.Errorf("seed %d: allocate(%d) failed at outer %d", seed, size, outer)
			}
			live = append(live, p)
		}
		for _, p := range live {
			spanalloc.Deallocate(p)
		}
	}
	return nil
}
