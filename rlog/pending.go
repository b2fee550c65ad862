package rlog

import "sync"

// Result is the outcome of applying a committed entry.
type Result struct {
	Value []byte
	Err   error
}

// Pending is the completion handle of an in-flight write. It is fulfilled
// exactly once, when the entry is applied after quorum commit.
type Pending struct {
	Index uint64

	once sync.Once
	ch   chan Result
}

func newPending(index uint64) *Pending {
	return &Pending{
		Index: index,
		ch:    make(chan Result, 1),
	}
}

// Done returns a channel that receives the result once the entry is applied.
func (p *Pending) Done() <-chan Result {
	return p.ch
}

func (p *Pending) complete(res Result) {
	p.once.Do(func() {
		p.ch <- res
	})
}
