package raft

import (
	"log/slog"
	"time"

	"github.com/consensus/raft/model"
)

// Follower processes replication traffic from the current leader and votes
// in elections. Candidate logic lives with the cluster runtime, not here.
type Follower struct {
	s     *Server
	since time.Time
}

func newFollower(s *Server) *Follower {
	return &Follower{s: s, since: time.Now()}
}

func (f *Follower) appendEntries(req *model.AppendEntriesRequest, res *model.AppendEntriesResponse) {
	term := f.s.state.getCurrentTerm()
	if req.Term < term {
		res.Term = term
		res.Success = false
		return
	}
	if req.Term > term {
		f.s.state.setCurrentTerm(req.Term)
		f.s.state.setVotedFor(votedForNone)
		if err := f.s.logState(); err != nil {
			f.s.l.Error("error while logging state", slog.Int("server", f.s.id), slog.Any("error", err.Error()))
		}
	}
	f.s.setLeader(req.LeaderId)
	res.Term = req.Term

	log := f.s.log
	if req.PrevLogIndex > 0 {
		if req.PrevLogIndex > log.LastLogIndex() || log.TermAt(req.PrevLogIndex) != req.PrevLogTerm {
			res.Success = false
			return
		}
	}
	for _, e := range req.Entries {
		if e.Index <= log.LastLogIndex() {
			if log.TermAt(e.Index) != e.Term {
				log.TruncateFrom(e.Index)
				if err := log.Store(e); err != nil {
					f.s.l.Error("failed to store entry", slog.Uint64("index", e.Index), slog.Any("error", err.Error()))
					res.Success = false
					return
				}
			}
		} else if err := log.Store(e); err != nil {
			f.s.l.Error("failed to store entry", slog.Uint64("index", e.Index), slog.Any("error", err.Error()))
			res.Success = false
			return
		}
	}
	if req.LeaderCommit > log.CommitIndex() {
		commit := log.LastLogIndex()
		if req.LeaderCommit < commit {
			commit = req.LeaderCommit
		}
		log.Commit(commit)
	}
	res.Success = true
}

func (f *Follower) requestVote(req *model.RequestVote, res *model.RequestVoteResponse) {
	term := f.s.state.getCurrentTerm()
	if req.Term < term {
		res.Term = term
		res.VoteGranted = false
		return
	}
	if req.Term > term {
		f.s.state.setCurrentTerm(req.Term)
		f.s.state.setVotedFor(votedForNone)
		term = req.Term
	}

	var (
		votedFor      = f.s.state.getVotedFor()
		lastLogIndex  = f.s.log.LastLogIndex()
		lastLogTerm   = f.s.log.TermAt(lastLogIndex)
		votedForMatch = (votedFor == votedForNone || votedFor == req.CandidateId)
		logMatch      = req.LastLogTerm > lastLogTerm || (req.LastLogTerm == lastLogTerm && req.LastLogIndex >= lastLogIndex)
		granted       = votedForMatch && logMatch
	)
	if granted {
		f.s.state.setVotedFor(req.CandidateId)
	}
	res.Term = term
	res.VoteGranted = granted
	if err := f.s.logState(); err != nil {
		f.s.l.Error("error while logging state", slog.Int("server", f.s.id), slog.Any("error", err.Error()))
	}
}

func (f *Follower) installSnapshot(req *model.InstallSnapshotRequest, res *model.InstallSnapshotResponse) {
	term := f.s.state.getCurrentTerm()
	if req.Term < term {
		res.Term = term
		res.Success = false
		return
	}
	if req.Term > term {
		f.s.state.setCurrentTerm(req.Term)
		f.s.state.setVotedFor(votedForNone)
		if err := f.s.logState(); err != nil {
			f.s.l.Error("error while logging state", slog.Int("server", f.s.id), slog.Any("error", err.Error()))
		}
	}
	f.s.setLeader(req.LeaderId)
	res.Term = req.Term
	if err := f.s.log.Install(req.Snapshot); err != nil {
		f.s.l.Error("failed to install snapshot", slog.Any("error", err.Error()))
		res.Success = false
		return
	}
	res.Success = true
}
