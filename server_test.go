package raft

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consensus/raft/config"
	"github.com/consensus/raft/model"
)

func Test_NewServer(t *testing.T) {
	conf := &config.Config{
		Dir:                  t.TempDir(),
		AppendEntriesTimeout: time.Second,
		HeartbeatsInterval:   50 * time.Millisecond,
		Nodes:                []config.Node{{Id: 1, Address: "127.0.0.1", Port: "2000"}},
	}
	s, err := NewServer(1, conf)
	require.NoError(t, err)

	go s.Listen()

	s.BecomeLeader(1)
	ctx := context.Background()
	_, err = s.On(ctx, model.PutCommand([]byte("k"), []byte("v")))
	assert.NoError(t, err)
	v, err := s.On(ctx, model.GetCommand([]byte("k")))
	assert.NoError(t, err)
	assert.Equal(t, []byte("v"), v)

	info, err := s.Info()
	assert.NoError(t, err)
	assert.Equal(t, 1, info.Id)
	assert.Empty(t, info.Followers)

	assert.NoError(t, s.Close())
}

func Test_NewServer_UnknownNode(t *testing.T) {
	conf := &config.Config{
		Dir:                  t.TempDir(),
		AppendEntriesTimeout: time.Second,
		HeartbeatsInterval:   50 * time.Millisecond,
		Nodes:                []config.Node{{Id: 1, Address: "127.0.0.1", Port: "2000"}},
	}
	_, err := NewServer(9, conf)
	assert.ErrorIs(t, err, config.ErrNodeNotFound)
}

func Test_NewServer_InvalidConfig(t *testing.T) {
	conf := &config.Config{Dir: t.TempDir()}
	_, err := NewServer(1, conf)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}
