package raft

import "time"

// FollowerInfo is a point-in-time view of one follower's replication
// progress. Derived on demand, never persisted.
type FollowerInfo struct {
	Id                 int
	NextLogIndex       uint64
	MatchIndex         uint64
	ReplicationEnabled bool
	LastAck            time.Time
	Lag                uint64 // entries behind the leader's last log index
}

// LeaderInfo is an observability snapshot of the active leader.
type LeaderInfo struct {
	Id          int
	Term        uint64
	Uptime      time.Duration
	CommitIndex uint64
	Followers   []FollowerInfo
}

// Info derives an observability snapshot. Read-only; no side effects.
func (l *Leader) Info() LeaderInfo {
	last := l.s.log.LastLogIndex()
	info := LeaderInfo{
		Id:          l.s.id,
		Term:        l.term,
		Uptime:      time.Since(l.since),
		CommitIndex: l.s.log.CommitIndex(),
		Followers:   make([]FollowerInfo, 0, len(l.s.members)),
	}
	for _, m := range l.s.members {
		match := m.MatchIndex()
		var lag uint64
		if last > match {
			lag = last - match
		}
		info.Followers = append(info.Followers, FollowerInfo{
			Id:                 m.Id(),
			NextLogIndex:       m.NextLogIndex(),
			MatchIndex:         match,
			ReplicationEnabled: m.ReplicationEnabled(),
			LastAck:            m.LastAck(),
			Lag:                lag,
		})
	}
	return info
}
