package rlog

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/consensus/raft/db"
	"github.com/consensus/raft/model"
)

func newTestLog() *Log {
	return New(db.NewStateMachine(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func Test_AppendAssignsIndexes(t *testing.T) {
	l := newTestLog()
	assert.Equal(t, uint64(1), l.NextLogIndex())

	e1, p1 := l.Append(3, model.NoOpCommand())
	e2, p2 := l.Append(3, model.PutCommand([]byte("k"), []byte("v")))
	assert.Equal(t, uint64(1), e1.Index)
	assert.Equal(t, uint64(2), e2.Index)
	assert.Equal(t, e1.Index, p1.Index)
	assert.Equal(t, e2.Index, p2.Index)
	assert.Equal(t, uint64(3), l.NextLogIndex())
	assert.Equal(t, uint64(3), l.TermAt(2))
	assert.Equal(t, uint64(0), l.TermAt(5))
}

func Test_CommitFulfillsPending(t *testing.T) {
	l := newTestLog()
	_, p := l.Append(1, model.PutCommand([]byte("k"), []byte("v")))

	l.Commit(1)
	select {
	case res := <-p.Done():
		assert.NoError(t, res.Err)
	default:
		t.Fatal("pending not fulfilled after commit")
	}
	assert.Equal(t, uint64(1), l.CommitIndex())

	// value is applied and readable
	v, err := l.Execute(model.GetCommand([]byte("k")))
	assert.NoError(t, err)
	assert.Equal(t, []byte("v"), v)
}

func Test_CommitIsIdempotent(t *testing.T) {
	l := newTestLog()
	l.Append(1, model.PutCommand([]byte("k"), []byte("v1")))
	l.Append(1, model.PutCommand([]byte("k"), []byte("v2")))

	l.Commit(2)
	assert.Equal(t, uint64(2), l.CommitIndex())
	l.Commit(2)
	l.Commit(1) // never regresses
	assert.Equal(t, uint64(2), l.CommitIndex())

	// committing past the last entry caps at the log end
	l.Commit(10)
	assert.Equal(t, uint64(2), l.CommitIndex())
}

func Test_TruncateFailsPending(t *testing.T) {
	l := newTestLog()
	l.Append(1, model.NoOpCommand())
	_, p := l.Append(1, model.PutCommand([]byte("k"), []byte("v")))

	l.TruncateFrom(2)
	select {
	case res := <-p.Done():
		assert.ErrorIs(t, res.Err, ErrEntryOverwritten)
	default:
		t.Fatal("pending not failed after truncation")
	}
	assert.Equal(t, uint64(1), l.LastLogIndex())
}

func Test_Store(t *testing.T) {
	l := newTestLog()
	require.NoError(t, l.Store(&model.Entry{Term: 1, Index: 1, Command: model.NoOpCommand()}))
	require.NoError(t, l.Store(&model.Entry{Term: 1, Index: 2, Command: model.NoOpCommand()}))
	assert.ErrorIs(t, l.Store(&model.Entry{Term: 1, Index: 5, Command: model.NoOpCommand()}), ErrIndexOutOfRange)
}

func Test_EntriesFrom(t *testing.T) {
	l := newTestLog()
	for i := 0; i < 4; i++ {
		l.Append(2, model.NoOpCommand())
	}
	entries := l.EntriesFrom(3)
	require.Len(t, entries, 2)
	assert.Equal(t, uint64(3), entries[0].Index)
	assert.Nil(t, l.EntriesFrom(5))
}

func Test_Compact(t *testing.T) {
	l := newTestLog()
	for i := 0; i < 8; i++ {
		l.Append(2, model.PutCommand([]byte{byte('a' + i)}, []byte("v")))
	}
	assert.Nil(t, l.Snapshot())
	_, err := l.Compact()
	assert.ErrorIs(t, err, ErrNothingToCompact)

	l.Commit(8)
	snap, err := l.Compact()
	require.NoError(t, err)
	assert.Equal(t, uint64(8), snap.LastLogEntryIndex)
	assert.Equal(t, uint64(2), snap.LastLogTerm)
	assert.Same(t, snap, l.Snapshot())

	// covered entries are gone; boundary term survives for consistency checks
	assert.Equal(t, uint64(9), l.FirstLogIndex())
	assert.Equal(t, uint64(8), l.LastLogIndex())
	assert.Equal(t, uint64(2), l.TermAt(8))
	assert.Nil(t, l.EntriesFrom(1))
}

func Test_Install(t *testing.T) {
	src := newTestLog()
	src.Append(2, model.PutCommand([]byte("k"), []byte("v")))
	src.Commit(1)
	snap, err := src.Compact()
	require.NoError(t, err)

	dst := newTestLog()
	require.NoError(t, dst.Install(snap))
	assert.Equal(t, uint64(1), dst.CommitIndex())
	assert.Equal(t, uint64(2), dst.NextLogIndex())

	v, err := dst.Execute(model.GetCommand([]byte("k")))
	assert.NoError(t, err)
	assert.Equal(t, []byte("v"), v)
}
