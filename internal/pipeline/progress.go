package pipeline

import (
	"sync"

	"go.uber.org/zap"
)

// emitter wraps the caller's callback so that a nil callback is allowed and
// a panicking callback cannot take the run down.
func (c *Coordinator) emitter(cb ProgressCallback) func(ProgressEvent) {
	return func(ev ProgressEvent) {
		c.log.Debug("progress", zap.String("state", string(ev.State)), zap.String("message", ev.Message))
		if cb == nil {
			return
		}
		defer func() {
			if r := recover(); r != nil {
				c.log.Error("progress callback panicked", zap.Any("panic", r), zap.String("state", string(ev.State)))
			}
		}()
		cb(ev)
	}
}

// orderedEmitter releases per-candidate events in index order, holding back
// any event that arrives before its predecessors.
type orderedEmitter struct {
	mu      sync.Mutex
	next    int
	pending map[int]ProgressEvent
	out     func(ProgressEvent)
}

func newOrderedEmitter(out func(ProgressEvent)) *orderedEmitter {
	return &orderedEmitter{pending: make(map[int]ProgressEvent), out: out}
}

func (o *orderedEmitter) emit(i int, ev ProgressEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.pending[i] = ev
	for {
		next, ok := o.pending[o.next]
		if !ok {
			return
		}
		delete(o.pending, o.next)
		o.next++
		o.out(next)
	}
}
