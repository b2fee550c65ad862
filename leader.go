package raft

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/consensus/raft/model"
)

// Leader drives replication for a single term: it admits client commands,
// tracks follower progress, advances the commit index and falls back to
// snapshot transfers for members that dropped behind the retained log. The
// instance is discarded on step-down; a successor role takes over.
type Leader struct {
	s *Server

	term  uint64
	since time.Time

	hb *heartbeater

	// serializes commit advancement so concurrent acks neither skip an
	// index nor count one twice
	commitMu sync.Mutex

	stopped atomic.Bool
}

func newLeader(s *Server) *Leader {
	return &Leader{s: s}
}

// Begin runs the leadership acquisition sequence for term: progress reset,
// heartbeats, and the fresh-term no-op entry. A begin for a term older than
// the member's current one is a stale activation and demotes immediately.
func (l *Leader) Begin(term uint64) {
	current := l.s.state.getCurrentTerm()
	if term < current {
		l.s.stepDownFrom(l, current, noLeader)
		return
	}
	l.term = term
	l.since = time.Now()
	l.s.state.setCurrentTerm(term)
	if err := l.s.logState(); err != nil {
		l.s.l.Error("error while logging state", slog.Int("server", l.s.id), slog.Any("error", err.Error()))
	}
	l.s.setLeader(l.s.id)
	next := l.s.log.NextLogIndex()
	for _, m := range l.s.members {
		m.Reset(next)
	}
	l.hb = newHeartbeater(l, l.s.config.HeartbeatsInterval)
	l.hb.start()
	// Nothing from an earlier term may be counted as committed until an
	// entry of this term reaches majority, so force one through the normal
	// write path right away.
	go func() {
		if _, err := l.On(context.Background(), model.NoOpCommand()); err != nil {
			l.s.l.Warn("no-op entry not confirmed", slog.Uint64("term", term), slog.Any("error", err.Error()))
		}
	}()
}

// Stop halts the heartbeater and clears leadership state. Idempotent.
func (l *Leader) Stop() {
	if !l.stopped.CompareAndSwap(false, true) {
		return
	}
	if l.hb != nil {
		l.hb.stop()
	}
	l.s.clearLeader()
}

// On admits a command. Reads execute synchronously against applied state.
// Writes are appended, replicated, and block until the entry commits on a
// quorum or the append-entries timeout elapses; on timeout the entry stays
// in the log and may still commit later.
func (l *Leader) On(ctx context.Context, cmd *model.Command) ([]byte, error) {
	if l.stopped.Load() {
		return nil, ErrNotLeader
	}
	if !cmd.IsWrite() {
		return l.s.log.Execute(cmd)
	}
	entry, pending := l.s.log.Append(l.term, cmd)
	l.replicate()
	timer := time.NewTimer(l.s.config.AppendEntriesTimeout)
	defer timer.Stop()
	select {
	case res := <-pending.Done():
		return res.Value, res.Err
	case <-timer.C:
		return nil, &NoMajorityError{Entry: entry}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// OnMajorityJointConsensus triggers the next reconfiguration phase once the
// joint configuration has committed on a majority. Pass-through to the
// normal command path.
func (l *Leader) OnMajorityJointConsensus(ctx context.Context) error {
	_, err := l.On(ctx, model.LeaveJointConsensusCommand())
	return err
}

func (l *Leader) replicate() {
	if len(l.s.members) == 0 {
		// sole member: quorum of one
		l.s.log.Commit(l.s.log.LastLogIndex())
		return
	}
	l.broadcast()
}

func (l *Leader) broadcast() {
	for _, m := range l.s.members {
		go l.replicateTo(m)
	}
}

func (l *Leader) replicateTo(m *Member) {
	if l.stopped.Load() || !m.ReplicationEnabled() {
		return
	}
	next := m.NextLogIndex()
	prev := next - 1
	req := &model.AppendEntriesRequest{
		Term:         l.term,
		LeaderId:     l.s.id,
		PrevLogIndex: prev,
		PrevLogTerm:  l.s.log.TermAt(prev),
		Entries:      l.s.log.EntriesFrom(next),
		LeaderCommit: l.s.log.CommitIndex(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), l.s.config.AppendEntriesTimeout)
	defer cancel()
	res, err := m.AppendEntries(ctx, req)
	if err != nil {
		l.s.l.Debug("append entries not delivered", slog.Int("member", m.id), slog.Any("error", err.Error()))
		return
	}
	l.OnAppendEntriesResponse(m, req, res)
}

// OnAppendEntriesResponse feeds one follower response into progress tracking
// and commit advancement. Responses from a finished term are no-ops.
func (l *Leader) OnAppendEntriesResponse(m *Member, req *model.AppendEntriesRequest, res *model.AppendEntriesResponse) {
	if l.stopped.Load() {
		return
	}
	if res.Term > l.term {
		l.s.stepDownFrom(l, res.Term, noLeader)
		return
	}
	m.Touch()
	if len(req.Entries) > 0 {
		if res.Success {
			last := req.Entries[len(req.Entries)-1].Index
			m.AckLogEntry(last)
			l.s.l.Debug("follower acked", slog.Int("member", m.id), slog.Uint64("nextLogIndex", m.NextLogIndex()))
			l.advanceCommitIndex(last)
		} else {
			m.DecrementNextLogIndex()
		}
	}
	// A decrementing follower can walk back into snapshot territory, so
	// applicability is checked on both outcomes.
	l.maybeSendSnapshot(m)
}

// advanceCommitIndex commits, in ascending order, every index up to acked
// that has majority durability (self plus followers whose matchIndex covers
// it), stopping at the first index that lacks quorum.
func (l *Leader) advanceCommitIndex(acked uint64) {
	l.commitMu.Lock()
	defer l.commitMu.Unlock()
	majority := l.s.config.Majority()
	for index := l.s.log.CommitIndex() + 1; index <= acked; index++ {
		votes := 1 // self
		for _, m := range l.s.members {
			if m.MatchIndex() >= index {
				votes++
			}
		}
		if votes < majority {
			return
		}
		l.s.log.Commit(index)
	}
}

// maybeSendSnapshot substitutes a snapshot transfer when the member's next
// entry was compacted out of the log. The disable gate guarantees a single
// in-flight transfer per member.
func (l *Leader) maybeSendSnapshot(m *Member) {
	snap := l.s.log.Snapshot()
	if snap == nil || m.NextLogIndex() > snap.LastLogEntryIndex {
		return
	}
	if !m.DisableReplications() {
		return
	}
	l.s.l.Info("follower behind retained log, falling back to snapshot",
		slog.Int("member", m.id), slog.Uint64("lastLogEntryIndex", snap.LastLogEntryIndex))
	go l.transferSnapshot(m, snap)
}

func (l *Leader) transferSnapshot(m *Member, snap *model.Snapshot) {
	req := &model.InstallSnapshotRequest{Term: l.term, LeaderId: l.s.id, Snapshot: snap}
	ok := <-m.SendSnapshot(req)
	if l.stopped.Load() {
		// the successor role owns the progress table now
		return
	}
	if ok {
		m.AckLogEntry(snap.LastLogEntryIndex)
		l.advanceCommitIndex(snap.LastLogEntryIndex)
	} else {
		l.s.l.Warn("snapshot transfer failed", slog.Int("member", m.id))
	}
	// Re-enabled on failure too: the next replication cycle re-evaluates
	// applicability and retries if the member is still behind.
	m.EnableReplications()
}

// heartbeat is one timer tick: refresh leadership info and broadcast
// AppendEntries, which doubles as replication for idle followers.
func (l *Leader) heartbeat() {
	if l.stopped.Load() {
		return
	}
	l.s.setLeader(l.s.id)
	l.broadcast()
}

func (l *Leader) appendEntries(req *model.AppendEntriesRequest, res *model.AppendEntriesResponse) {
	term := l.s.state.getCurrentTerm()
	if req.Term < term {
		// stale claimant
		res.Term = term
		res.Success = false
		return
	}
	f := l.s.becomeFollowerLocked(req.Term, req.LeaderId)
	f.appendEntries(req, res)
}

func (l *Leader) requestVote(req *model.RequestVote, res *model.RequestVoteResponse) {
	term := l.s.state.getCurrentTerm()
	if req.Term <= term {
		res.Term = term
		res.VoteGranted = false
		return
	}
	f := l.s.becomeFollowerLocked(req.Term, noLeader)
	f.requestVote(req, res)
}

func (l *Leader) installSnapshot(req *model.InstallSnapshotRequest, res *model.InstallSnapshotResponse) {
	term := l.s.state.getCurrentTerm()
	if req.Term < term {
		res.Term = term
		res.Success = false
		return
	}
	f := l.s.becomeFollowerLocked(req.Term, req.LeaderId)
	f.installSnapshot(req, res)
}
