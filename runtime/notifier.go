package runtime

import (
	"github.com/gammazero/workerpool"
	log "github.com/sirupsen/logrus"

	"github.com/warriorguo/asl/types"
)

// notifier delivers lifecycle events in order on a single worker.
type notifier struct {
	wp        *workerpool.WorkerPool
	observers []types.ExecutionObserver
}

func newNotifier(observers []types.ExecutionObserver) *notifier {
	n := &notifier{observers: observers}
	if len(observers) > 0 {
		n.wp = workerpool.New(1)
	}
	return n
}

func (n *notifier) started(evt *types.ExecutionEvent) {
	n.submit(evt, func(o types.ExecutionObserver) { o.ExecutionStarted(evt) })
}

func (n *notifier) stopped(evt *types.ExecutionEvent) {
	n.submit(evt, func(o types.ExecutionObserver) { o.ExecutionStopped(evt) })
}

func (n *notifier) submit(evt *types.ExecutionEvent, notify func(types.ExecutionObserver)) {
	if n.wp == nil {
		return
	}
	for _, o := range n.observers {
		o := o
		n.wp.Submit(func() {
			defer func() {
				if r := recover(); r != nil {
					log.Errorf("%s observer %T panic: %v", evt.ExecutionID, o, r)
				}
			}()
			notify(o)
		})
	}
}

// stop waits for every queued notification.
func (n *notifier) stop() {
	if n.wp != nil {
		n.wp.StopWait()
	}
}
