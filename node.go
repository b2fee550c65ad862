package raft

import (
	"context"
	"sync"

	"github.com/consensus/raft/config"
	"github.com/consensus/raft/model"
)

// Transport sends leader RPCs to a single remote member. The rpcx-backed
// implementation is the production one; tests substitute fakes.
type Transport interface {
	AppendEntries(ctx context.Context, req *model.AppendEntriesRequest) (*model.AppendEntriesResponse, error)
	InstallSnapshot(ctx context.Context, req *model.InstallSnapshotRequest) (*model.InstallSnapshotResponse, error)
}

type rpcxTransport struct {
	mu   sync.Mutex
	node *config.Node
}

func (t *rpcxTransport) Addr() string {
	return t.node.GetAddress()
}

// conn connects lazily; members may come up after the leader does.
func (t *rpcxTransport) conn() (client, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.node.Conn == nil {
		if err := t.node.Connect(); err != nil {
			return nil, err
		}
	}
	return t.node.Conn, nil
}

type client interface {
	Call(ctx context.Context, serviceMethod string, args interface{}, reply interface{}) error
}

func (t *rpcxTransport) AppendEntries(ctx context.Context, req *model.AppendEntriesRequest) (*model.AppendEntriesResponse, error) {
	c, err := t.conn()
	if err != nil {
		return nil, err
	}
	var res model.AppendEntriesResponse
	if err := c.Call(ctx, "AppendEntries", *req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (t *rpcxTransport) InstallSnapshot(ctx context.Context, req *model.InstallSnapshotRequest) (*model.InstallSnapshotResponse, error) {
	c, err := t.conn()
	if err != nil {
		return nil, err
	}
	var res model.InstallSnapshotResponse
	if err := c.Call(ctx, "InstallSnapshot", *req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
