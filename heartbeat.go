package raft

import (
	"sync"
	"time"
)

// heartbeater broadcasts AppendEntries on a fixed period for the lifetime of
// one leadership term.
type heartbeater struct {
	l        *Leader
	ticker   *time.Ticker
	stopCh   chan struct{}
	stopOnce sync.Once
}

func newHeartbeater(l *Leader, interval time.Duration) *heartbeater {
	return &heartbeater{
		l:      l,
		ticker: time.NewTicker(interval),
		stopCh: make(chan struct{}),
	}
}

func (h *heartbeater) start() {
	go h.run()
}

func (h *heartbeater) run() {
	for {
		select {
		case <-h.stopCh:
			return
		case <-h.ticker.C:
			h.l.heartbeat()
		}
	}
}

// stop halts the timer; no further broadcasts happen under this term.
func (h *heartbeater) stop() {
	h.stopOnce.Do(func() {
		h.ticker.Stop()
		close(h.stopCh)
	})
}
