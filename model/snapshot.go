package model

// Snapshot is a compacted representation of applied state up to
// LastLogEntryIndex. State is a snappy-compressed state machine payload;
// the replication core only reads LastLogEntryIndex to decide applicability.
type Snapshot struct {
	LastLogEntryIndex uint64
	LastLogTerm       uint64
	State             []byte
}

// Invoked by leader to bring a follower that has fallen behind the retained
// log back up to date
type InstallSnapshotRequest struct {
	Term     uint64 // leader’s term
	LeaderId int    // so follower can redirect clients
	Snapshot *Snapshot
}

type InstallSnapshotResponse struct {
	Term    uint64 // currentTerm, for leader to update itself
	Success bool   // true if the snapshot was restored
}
