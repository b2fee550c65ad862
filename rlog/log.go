// Package rlog is the replicated log facade: it owns durable entries, the
// commit index, pending write completions and snapshots. The leader core
// only consumes this surface; it never touches entries directly.
package rlog

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/golang/snappy"
	gocache "github.com/patrickmn/go-cache"

	"github.com/consensus/raft/db"
	"github.com/consensus/raft/model"
)

var (
	ErrIndexOutOfRange  = errors.New("rlog: log index out of range")
	ErrEntryOverwritten = errors.New("rlog: entry overwritten by newer term")
	ErrNothingToCompact = errors.New("rlog: nothing to compact")
)

const snapshotCacheKey = "latest"

type Log struct {
	mu sync.Mutex

	// entries[0] has index firstIndex; everything below firstIndex has been
	// compacted into the snapshot.
	entries    []*model.Entry
	firstIndex uint64
	// term of the entry at firstIndex-1, kept across compaction for
	// consistency checks
	prevTerm uint64

	commitIndex uint64
	pending     map[uint64]*Pending

	sm db.StateMachine

	// latest retained snapshot; go-cache is safe for concurrent access from
	// the response-handling and fallback paths
	snapshots *gocache.Cache

	logger *slog.Logger
}

func New(sm db.StateMachine, logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{
		firstIndex: 1,
		pending:    make(map[uint64]*Pending),
		sm:         sm,
		snapshots:  gocache.New(gocache.NoExpiration, 0),
		logger:     logger,
	}
}

// NextLogIndex returns the index the next appended entry will receive.
func (l *Log) NextLogIndex() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastIndexLocked() + 1
}

func (l *Log) LastLogIndex() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastIndexLocked()
}

func (l *Log) FirstLogIndex() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.firstIndex
}

func (l *Log) CommitIndex() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.commitIndex
}

func (l *Log) lastIndexLocked() uint64 {
	return l.firstIndex + uint64(len(l.entries)) - 1
}

// TermAt returns the term of the entry at index, or 0 if the index is not
// retained. The compaction boundary keeps its term for consistency checks.
func (l *Log) TermAt(index uint64) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index == l.firstIndex-1 {
		return l.prevTerm
	}
	if index < l.firstIndex || index > l.lastIndexLocked() {
		return 0
	}
	return l.entries[index-l.firstIndex].Term
}

// Append assigns the next index to a write command, stores the entry and
// returns it together with its completion handle. The handle is fulfilled
// once the entry is applied after commit.
func (l *Log) Append(term uint64, cmd *model.Command) (*model.Entry, *Pending) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e := &model.Entry{
		Term:    term,
		Index:   l.lastIndexLocked() + 1,
		Command: cmd,
	}
	l.entries = append(l.entries, e)
	p := newPending(e.Index)
	l.pending[e.Index] = p
	return e, p
}

// Store appends a replicated entry (follower path, no completion handle).
// The entry must extend the log contiguously.
func (l *Log) Store(e *model.Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e.Index != l.lastIndexLocked()+1 {
		return ErrIndexOutOfRange
	}
	l.entries = append(l.entries, e)
	return nil
}

// TruncateFrom removes the entry at index and everything after it. Pendings
// for removed entries fail; their writes were superseded by a newer leader.
func (l *Log) TruncateFrom(index uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index < l.firstIndex || index > l.lastIndexLocked() {
		return
	}
	for i := index; i <= l.lastIndexLocked(); i++ {
		if p, ok := l.pending[i]; ok {
			p.complete(Result{Err: ErrEntryOverwritten})
			delete(l.pending, i)
		}
	}
	l.entries = l.entries[:index-l.firstIndex]
}

// EntriesFrom returns a copy of the retained entries starting at index.
func (l *Log) EntriesFrom(index uint64) []*model.Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index < l.firstIndex {
		index = l.firstIndex
	}
	if index > l.lastIndexLocked() {
		return nil
	}
	tail := l.entries[index-l.firstIndex:]
	out := make([]*model.Entry, len(tail))
	copy(out, tail)
	return out
}

// Commit marks every entry up to index durable on a majority, applies them
// to the state machine in order and fulfills their pending handles.
// Idempotent and monotonic; committing an already-committed index is a no-op.
func (l *Log) Commit(index uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index > l.lastIndexLocked() {
		index = l.lastIndexLocked()
	}
	for i := l.commitIndex + 1; i <= index; i++ {
		e := l.entries[i-l.firstIndex]
		value, err := l.sm.Apply(e.Command)
		if err != nil {
			l.logger.Error("apply failed", slog.Uint64("index", i), slog.Any("error", err))
		}
		l.commitIndex = i
		if p, ok := l.pending[i]; ok {
			p.complete(Result{Value: value, Err: err})
			delete(l.pending, i)
		}
	}
}

// Execute runs a read command against the current applied state.
func (l *Log) Execute(cmd *model.Command) ([]byte, error) {
	return l.sm.Read(cmd)
}

// Snapshot returns the latest retained snapshot, or nil if none was taken.
func (l *Log) Snapshot() *model.Snapshot {
	if s, ok := l.snapshots.Get(snapshotCacheKey); ok {
		return s.(*model.Snapshot)
	}
	return nil
}

// Compact snapshots the applied state up to the commit index and drops the
// covered entries from the retained log.
func (l *Log) Compact() (*model.Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.commitIndex < l.firstIndex {
		return nil, ErrNothingToCompact
	}
	state, err := l.sm.Snapshot()
	if err != nil {
		return nil, err
	}
	snap := &model.Snapshot{
		LastLogEntryIndex: l.commitIndex,
		LastLogTerm:       l.entries[l.commitIndex-l.firstIndex].Term,
		State:             snappy.Encode(nil, state),
	}
	l.entries = l.entries[l.commitIndex-l.firstIndex+1:]
	l.prevTerm = snap.LastLogTerm
	l.firstIndex = l.commitIndex + 1
	l.snapshots.Set(snapshotCacheKey, snap, gocache.NoExpiration)
	l.logger.Info("log compacted", slog.Uint64("lastLogEntryIndex", snap.LastLogEntryIndex))
	return snap, nil
}

// Install restores applied state from a snapshot received from the leader
// and discards the log entries it covers.
func (l *Log) Install(snap *model.Snapshot) error {
	state, err := snappy.Decode(nil, snap.State)
	if err != nil {
		return err
	}
	if err := l.sm.Restore(state); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if snap.LastLogEntryIndex+1 < l.firstIndex {
		return nil // already past this snapshot
	}
	if snap.LastLogEntryIndex >= l.lastIndexLocked() {
		l.entries = nil
	} else {
		l.entries = l.entries[snap.LastLogEntryIndex+1-l.firstIndex:]
	}
	l.prevTerm = snap.LastLogTerm
	l.firstIndex = snap.LastLogEntryIndex + 1
	if snap.LastLogEntryIndex > l.commitIndex {
		l.commitIndex = snap.LastLogEntryIndex
	}
	l.snapshots.Set(snapshotCacheKey, snap, gocache.NoExpiration)
	return nil
}
