package raft

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/consensus/raft/config"
	"github.com/consensus/raft/model"
)

const snapshotTransferTimeout = 30 * time.Second

// Member is the leader's handle on a remote cluster member: its transport
// plus the replication progress the leader tracks for it.
type Member struct {
	id        int
	transport Transport
	l         *slog.Logger

	mu           sync.Mutex
	nextLogIndex uint64    // next entry to send; never below 1
	matchIndex   uint64    // highest index confirmed durable; always < nextLogIndex
	lastAck      time.Time // last response of any kind, for lag reporting only

	replicationEnabled atomic.Bool
}

func NewMember(node *config.Node, logger *slog.Logger) *Member {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Member{
		id:        node.Id,
		transport: &rpcxTransport{node: node},
		l:         logger,
	}
	m.replicationEnabled.Store(true)
	return m
}

func (m *Member) Id() int {
	return m.id
}

// Reset reinitializes progress at the start of a term: nextLogIndex points
// past the leader's last entry, matchIndex and lastAck are unknown.
func (m *Member) Reset(nextLogIndex uint64) {
	m.mu.Lock()
	m.nextLogIndex = nextLogIndex
	m.matchIndex = 0
	m.lastAck = time.Time{}
	m.mu.Unlock()
	m.replicationEnabled.Store(true)
}

func (m *Member) NextLogIndex() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nextLogIndex
}

func (m *Member) MatchIndex() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.matchIndex
}

// AckLogEntry records that everything up to index is durable on the member.
// Both indexes move monotonically; an out-of-order older ack never regresses
// them.
func (m *Member) AckLogEntry(index uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index > m.matchIndex {
		m.matchIndex = index
	}
	if index >= m.nextLogIndex {
		m.nextLogIndex = index + 1
	}
}

// DecrementNextLogIndex walks the offered index back after a rejected
// append. It never drops below the first valid index.
func (m *Member) DecrementNextLogIndex() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.nextLogIndex > 1 {
		m.nextLogIndex--
	}
}

// DisableReplications is the one-shot snapshot gate: it reports whether this
// caller performed the enabled→disabled transition. Only that caller may
// start a transfer, so at most one is in flight per member.
func (m *Member) DisableReplications() bool {
	return m.replicationEnabled.CompareAndSwap(true, false)
}

func (m *Member) EnableReplications() {
	m.replicationEnabled.Store(true)
}

func (m *Member) ReplicationEnabled() bool {
	return m.replicationEnabled.Load()
}

// Touch records the acknowledgment time. Used for liveness reporting, never
// for quorum decisions.
func (m *Member) Touch() {
	m.mu.Lock()
	m.lastAck = time.Now()
	m.mu.Unlock()
}

func (m *Member) LastAck() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastAck
}

func (m *Member) AppendEntries(ctx context.Context, req *model.AppendEntriesRequest) (*model.AppendEntriesResponse, error) {
	return m.transport.AppendEntries(ctx, req)
}

// SendSnapshot transfers a snapshot asynchronously. The returned channel
// resolves true once the member confirmed the restore.
func (m *Member) SendSnapshot(req *model.InstallSnapshotRequest) <-chan bool {
	done := make(chan bool, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), snapshotTransferTimeout)
		defer cancel()
		res, err := m.transport.InstallSnapshot(ctx, req)
		if err != nil {
			m.l.Warn("install snapshot failed", slog.Int("member", m.id), slog.Any("error", err.Error()))
			done <- false
			return
		}
		done <- res.Success
	}()
	return done
}
