package raft

import (
	"context"

	"github.com/consensus/raft/model"
)

// rpcx service methods. Each dispatches to the current role; roles handle
// term arbitration and may replace themselves via the state-transition API.

func (s *Server) AppendEntries(ctx context.Context, req model.AppendEntriesRequest, res *model.AppendEntriesResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.role.appendEntries(&req, res)
	return nil
}

func (s *Server) Vote(ctx context.Context, req model.RequestVote, res *model.RequestVoteResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.role.requestVote(&req, res)
	return nil
}

func (s *Server) InstallSnapshot(ctx context.Context, req model.InstallSnapshotRequest, res *model.InstallSnapshotResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.role.installSnapshot(&req, res)
	return nil
}
