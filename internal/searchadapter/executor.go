package searchadapter

// executor is a tiny bounded worker pool: it offloads CPU-bound simulation
// batches off of the caller's goroutine so a long search never blocks the
// cooperative scheduler driving Turn Router/Fan-out/Reaper (spec.md §5).
// Shared across every Adapter in the process, it is just a counting
// semaphore plus a dispatch helper — there is no queue of pending
// goroutines to manage, so a plain buffered channel is enough; nothing here
// warrants pulling in a third-party worker-pool library (see DESIGN.md).
type executor struct {
	tokens chan struct{}
}

func newExecutor(size int) *executor {
	if size <= 0 {
		size = 1
	}
	return &executor{tokens: make(chan struct{}, size)}
}

// run blocks until a slot is free, then executes fn on a dedicated
// goroutine and waits for it to finish.
func (e *executor) run(fn func()) {
	e.tokens <- struct{}{}
	defer func() { <-e.tokens }()

	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	<-done
}

var defaultExecutor = newExecutor(4)
