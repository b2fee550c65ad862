package model

// Entry is a single replicated log entry. Immutable once created; the index
// is assigned by the log at append time and is strictly increasing.
type Entry struct {
	Term    uint64
	Index   uint64
	Command *Command
}
