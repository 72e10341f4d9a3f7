package memory

import (
	"sync"

	"github.com/agentstation/listingmap/internal/store"
	"github.com/agentstation/listingmap/pkg/listings"
)

type event struct {
	batch listings.Batch
	err   error
}

// subscriber delivers events to one handler on its own goroutine, in push
// order. The queue is unbounded so a slow handler never blocks writers.
type subscriber struct {
	filter  store.Filter
	handler store.Handler

	mu      sync.Mutex
	cond    *sync.Cond
	queue   []event
	stopped bool
	drain   bool
}

func newSubscriber(filter store.Filter, h store.Handler) *subscriber {
	sub := &subscriber{filter: filter, handler: h}
	sub.cond = sync.NewCond(&sub.mu)
	go sub.run()
	return sub
}

func (sub *subscriber) push(ev event) {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.stopped || sub.drain {
		return
	}
	sub.queue = append(sub.queue, ev)
	sub.cond.Signal()
}

// close drops pending events.
func (sub *subscriber) close() {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	sub.stopped = true
	sub.queue = nil
	sub.cond.Signal()
}

// closeAfterDrain delivers what is queued, then stops.
func (sub *subscriber) closeAfterDrain() {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	sub.drain = true
	sub.cond.Signal()
}

func (sub *subscriber) run() {
	for {
		sub.mu.Lock()
		for len(sub.queue) == 0 && !sub.stopped && !sub.drain {
			sub.cond.Wait()
		}
		if sub.stopped || len(sub.queue) == 0 {
			sub.mu.Unlock()
			return
		}
		ev := sub.queue[0]
		sub.queue = sub.queue[1:]
		sub.mu.Unlock()

		if ev.err != nil {
			sub.handler.Fail(ev.err)
			continue
		}
		sub.handler.Deliver(ev.batch)
	}
}
