package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consensus/raft/model"
)

func Test_ApplyAndRead(t *testing.T) {
	sm := NewStateMachine()

	_, err := sm.Apply(model.PutCommand([]byte("k1"), []byte("v1")))
	assert.NoError(t, err)
	_, err = sm.Apply(model.PutCommand([]byte("k2"), []byte("v2")))
	assert.NoError(t, err)

	v, err := sm.Read(model.GetCommand([]byte("k1")))
	assert.NoError(t, err)
	assert.Equal(t, []byte("v1"), v)

	_, err = sm.Apply(model.DeleteCommand([]byte("k1")))
	assert.NoError(t, err)
	v, err = sm.Read(model.GetCommand([]byte("k1")))
	assert.NoError(t, err)
	assert.Empty(t, v)
}

func Test_ApplyNoOp(t *testing.T) {
	sm := NewStateMachine()
	v, err := sm.Apply(model.NoOpCommand())
	assert.NoError(t, err)
	assert.Nil(t, v)
	v, err = sm.Apply(model.LeaveJointConsensusCommand())
	assert.NoError(t, err)
	assert.Nil(t, v)
}

func Test_ApplyRejectsReads(t *testing.T) {
	sm := NewStateMachine()
	_, err := sm.Apply(model.GetCommand([]byte("k")))
	assert.ErrorIs(t, err, ErrUnknownCommand)
	_, err = sm.Read(model.PutCommand([]byte("k"), []byte("v")))
	assert.ErrorIs(t, err, ErrUnknownCommand)
}

func Test_SnapshotRestore(t *testing.T) {
	sm := NewStateMachine()
	_, err := sm.Apply(model.PutCommand([]byte("k1"), []byte("v1")))
	require.NoError(t, err)
	_, err = sm.Apply(model.PutCommand([]byte("k2"), []byte("v2")))
	require.NoError(t, err)

	raw, err := sm.Snapshot()
	require.NoError(t, err)

	restored := NewStateMachine()
	require.NoError(t, restored.Restore(raw))

	v, err := restored.Read(model.GetCommand([]byte("k2")))
	assert.NoError(t, err)
	assert.Equal(t, []byte("v2"), v)
}
