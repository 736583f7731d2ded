package realtime

import (
	"sync"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"github.com/nkitajim/task-collabo/domain"
)

type job struct {
	boardID string
	event   domain.Event
}

// Dispatcher delivers events to every subscriber of a board. Mutation
// handlers enqueue after their store commit and never wait for fan-out.
//
// A single loop goroutine drains the job channel and pushes each marshalled
// event into the subscribers' own buffered channels, so events for one
// connection always arrive in commit order while the actual network writes
// proceed concurrently in the per-connection write pumps. A handle that
// cannot accept the push is pruned from the hub on the spot.
type Dispatcher struct {
	hub    *Hub
	logger *log.Logger

	jobs     chan job
	stopOnce sync.Once
	done     chan struct{}
}

func NewDispatcher(hub *Hub, logger *log.Logger, buffer int) *Dispatcher {
	if buffer <= 0 {
		buffer = 1024
	}
	d := &Dispatcher{
		hub:    hub,
		logger: logger,
		jobs:   make(chan job, buffer),
		done:   make(chan struct{}),
	}
	go d.loop()
	return d
}

// Broadcast enqueues an event for every current subscriber of the board.
// It must only be called after the mutation it describes has committed.
func (d *Dispatcher) Broadcast(boardID string, event domain.Event) {
	select {
	case <-d.done:
	case d.jobs <- job{boardID: boardID, event: event}:
	}
}

// Stop shuts the dispatch loop down. Queued jobs not yet dispatched are
// discarded.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.done)
	})
}

func (d *Dispatcher) loop() {
	for {
		var j job
		select {
		case <-d.done:
			return
		case j = <-d.jobs:
		}
		data, err := sonic.Marshal(j.event)
		if err != nil {
			d.logger.Errorf("marshal %s event: %v", j.event.Type, err)
			continue
		}
		for _, handle := range d.hub.Subscribers(j.boardID) {
			if handle.TrySend(data) {
				continue
			}
			// stale or saturated subscriber: prune and move on, the
			// remaining handles still get the event
			d.logger.Warnf("dropping subscriber %s on board %s", handle.Key(), j.boardID)
			d.hub.Remove(j.boardID, handle)
			handle.Close()
		}
	}
}
