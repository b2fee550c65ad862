package raft

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_HeartbeaterBroadcasts(t *testing.T) {
	s, fts := newTestServer(t, 2, 3)
	l := s.BecomeLeader(2)
	defer l.Stop()

	// idle leader keeps asserting leadership on every tick
	require.Eventually(t, func() bool {
		return fts[0].appendCount() >= 3 && fts[1].appendCount() >= 3
	}, time.Second, 5*time.Millisecond)

	fts[0].mu.Lock()
	term := fts[0].appends[0].Term
	leaderId := fts[0].appends[0].LeaderId
	fts[0].mu.Unlock()
	assert.Equal(t, uint64(2), term)
	assert.Equal(t, 1, leaderId)
	assert.Equal(t, 1, s.LeaderId())
}

func Test_HeartbeaterStopsOnStepDown(t *testing.T) {
	s, fts := newTestServer(t, 2, 3)
	l := s.BecomeLeader(2)

	require.Eventually(t, func() bool {
		return fts[0].appendCount() >= 1
	}, time.Second, 5*time.Millisecond)

	l.Stop()
	// let in-flight broadcasts drain, then the count must hold steady
	time.Sleep(2 * s.config.HeartbeatsInterval)
	count := fts[0].appendCount()
	time.Sleep(4 * s.config.HeartbeatsInterval)
	assert.Equal(t, count, fts[0].appendCount(), "no broadcasts after stop")
}

func Test_HeartbeaterStopIsIdempotent(t *testing.T) {
	s, _ := newTestServer(t, 2, 3)
	l := s.BecomeLeader(1)
	l.hb.stop()
	l.hb.stop()
	l.Stop()
}
