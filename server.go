package raft

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"sync"
	"sync/atomic"

	rpcx "github.com/smallnest/rpcx/server"

	"github.com/consensus/raft/config"
	"github.com/consensus/raft/db"
	"github.com/consensus/raft/model"
	"github.com/consensus/raft/rlog"
)

const noLeader = -1

// role is the per-state RPC surface. Term and leadership transitions go
// through becomeFollowerLocked / BecomeLeader, which return the new role;
// roles never mutate shared cluster state any other way.
type role interface {
	appendEntries(req *model.AppendEntriesRequest, res *model.AppendEntriesResponse)
	requestVote(req *model.RequestVote, res *model.RequestVoteResponse)
	installSnapshot(req *model.InstallSnapshotRequest, res *model.InstallSnapshotResponse)
}

type Server struct {
	mu sync.Mutex

	id int
	l  *slog.Logger

	state *state    // persistent term/vote
	log   *rlog.Log // replicated log facade

	members  []*Member // remote cluster members
	leaderId atomic.Int32

	role role

	rpc *rpcx.Server

	config struct {
		*config.Config
		node *config.Node
	}

	exitChan chan struct{}
}

func NewServer(id int, conf *config.Config) (*Server, error) {
	if err := conf.Validate(); err != nil {
		return nil, err
	}
	node, err := conf.GetNode(id)
	if err != nil {
		return nil, err
	}
	s := &Server{
		id:       id,
		l:        slog.Default().With(slog.Int("server", id)),
		exitChan: make(chan struct{}),
	}
	s.leaderId.Store(noLeader)
	s.config.Config = conf
	s.config.node = &node
	if err := s.initInternal(); err != nil {
		return nil, err
	}
	s.log = rlog.New(db.NewStateMachine(), s.l)
	for i := range conf.Nodes {
		if conf.Nodes[i].Id == id {
			continue
		}
		s.members = append(s.members, NewMember(&conf.Nodes[i], s.l))
	}
	s.role = &Follower{s: s}
	if err := s.startRPCServer(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Server) logState() error {
	path := s.getUnderlyingFilePath()
	if path == "" {
		return errors.New("directory not specified in config")
	}
	if err := s.state.write(); err != nil {
		return err
	}
	return nil
}

func (s *Server) startRPCServer() error {
	rpcServer := rpcx.NewServer()
	if err := rpcServer.Register(s, ""); err != nil {
		return err
	}
	s.rpc = rpcServer
	go rpcServer.Serve("tcp", s.config.node.GetAddress())
	return nil
}

func (s *Server) Listen() {
	for {
		select {
		case <-s.exitChan:
			return
		}
	}
}

func (s *Server) Close() error {
	s.exitChan <- struct{}{}
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.role.(*Leader); ok {
		l.Stop()
	}
	if err := s.logState(); err != nil {
		return err
	}
	if err := s.rpc.Close(); err != nil {
		return err
	}
	return nil
}

// On submits a command. Writes block until quorum commit or the configured
// append-entries timeout; reads execute against current applied state.
func (s *Server) On(ctx context.Context, cmd *model.Command) ([]byte, error) {
	s.mu.Lock()
	l, ok := s.role.(*Leader)
	s.mu.Unlock()
	if !ok {
		return nil, ErrNotLeader
	}
	return l.On(ctx, cmd)
}

// BecomeLeader installs a fresh leader role for term and runs its begin
// sequence. The previous role is discarded.
func (s *Server) BecomeLeader(term uint64) *Leader {
	l := newLeader(s)
	s.mu.Lock()
	if old, ok := s.role.(*Leader); ok {
		old.Stop()
	}
	s.role = l
	s.mu.Unlock()
	l.Begin(term)
	return l
}

// becomeFollowerLocked transitions to follower, adopting leaderId and term.
// Callers must hold s.mu.
func (s *Server) becomeFollowerLocked(term uint64, leaderId int) *Follower {
	if l, ok := s.role.(*Leader); ok {
		l.Stop()
	}
	if term > s.state.getCurrentTerm() {
		s.state.setCurrentTerm(term)
		s.state.setVotedFor(votedForNone)
		if err := s.logState(); err != nil {
			s.l.Error("error while logging state", slog.Int("server", s.id), slog.Any("error", err.Error()))
		}
	}
	s.setLeader(leaderId)
	f := newFollower(s)
	s.role = f
	return f
}

// stepDownFrom demotes from a specific leader instance. A stale callback
// whose leader was already replaced is a no-op.
func (s *Server) stepDownFrom(from *Leader, term uint64, leaderId int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.role != from {
		return
	}
	s.becomeFollowerLocked(term, leaderId)
}

func (s *Server) setLeader(id int) {
	s.leaderId.Store(int32(id))
}

func (s *Server) clearLeader() {
	s.leaderId.Store(noLeader)
}

// LeaderId returns the id of the member currently believed to be leader, or
// -1 if unknown.
func (s *Server) LeaderId() int {
	return int(s.leaderId.Load())
}

// Info returns an observability snapshot, or ErrNotLeader on followers.
func (s *Server) Info() (LeaderInfo, error) {
	s.mu.Lock()
	l, ok := s.role.(*Leader)
	s.mu.Unlock()
	if !ok {
		return LeaderInfo{}, ErrNotLeader
	}
	return l.Info(), nil
}

// try to read state file from disk
func (s *Server) initInternal() error {
	if s.config.Dir == "" {
		return errors.New("directory not specified in config")
	}
	if _, err := os.Stat(s.config.Dir); os.IsNotExist(err) {
		// newly created file for server
		err := s.ensureDir(s.config.Dir)
		if err != nil {
			return err
		}
	} else if err != nil {
		return err
	}
	st, err := newState(s.getUnderlyingFilePath())
	if err != nil {
		return err
	}
	s.state = st
	return nil
}

func (s *Server) ensureDir(path string) error {
	err := os.MkdirAll(path, os.ModePerm)
	if err != nil {
		return err
	}
	return nil
}

func (s *Server) getUnderlyingFilePath() string {
	name := func() string {
		return fmt.Sprintf("%v", s.id)
	}()
	if s.config.Dir == "" {
		return ""
	}
	return path.Join(s.config.Dir, name)
}
