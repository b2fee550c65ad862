package raft

import (
	"errors"
	"fmt"

	"github.com/consensus/raft/model"
)

var (
	// ErrNotLeader is returned when a command is submitted to a member that
	// does not currently hold leadership.
	ErrNotLeader = errors.New("raft: not the leader")

	// ErrStopped is returned when an operation is attempted on a closed server.
	ErrStopped = errors.New("raft: server stopped")
)

// NoMajorityError is returned when a write command's quorum wait exceeds the
// configured append-entries timeout. The entry is not rolled back; it stays
// in the log and may still commit later.
type NoMajorityError struct {
	Entry *model.Entry
}

func (e *NoMajorityError) Error() string {
	return fmt.Sprintf("raft: no majority reached for entry %d", e.Entry.Index)
}
