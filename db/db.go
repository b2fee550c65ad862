package db

import (
	"errors"
	"sync"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/consensus/raft/model"
)

var ErrUnknownCommand = errors.New("db: unknown command")

// StateMachine applies committed write commands and serves reads against the
// applied state.
type StateMachine interface {
	Apply(cmd *model.Command) ([]byte, error)
	Read(cmd *model.Command) ([]byte, error)
	Snapshot() ([]byte, error)
	Restore(raw []byte) error
}

type db struct {
	c *fastcache.Cache

	// fastcache cannot enumerate its keys, so a side index is kept for
	// snapshots.
	mu   sync.Mutex
	keys map[string]struct{}
}

func (d *db) set(key []byte, value []byte) {
	d.c.Set(key, value)
	d.mu.Lock()
	d.keys[string(key)] = struct{}{}
	d.mu.Unlock()
}

func (d *db) get(key []byte) []byte {
	return d.c.Get(nil, key)
}

func (d *db) del(key []byte) {
	d.c.Del(key)
	d.mu.Lock()
	delete(d.keys, string(key))
	d.mu.Unlock()
}

func (d *db) Apply(cmd *model.Command) ([]byte, error) {
	switch cmd.Kind {
	case model.CmdNoOp, model.CmdLeaveJoint:
		return nil, nil
	case model.CmdPut:
		d.set(cmd.Key, cmd.Value)
		return nil, nil
	case model.CmdDelete:
		d.del(cmd.Key)
		return nil, nil
	default:
		return nil, ErrUnknownCommand
	}
}

func (d *db) Read(cmd *model.Command) ([]byte, error) {
	if cmd.Kind != model.CmdGet {
		return nil, ErrUnknownCommand
	}
	return d.get(cmd.Key), nil
}

func (d *db) Snapshot() ([]byte, error) {
	d.mu.Lock()
	state := make(map[string][]byte, len(d.keys))
	for k := range d.keys {
		state[k] = d.c.Get(nil, []byte(k))
	}
	d.mu.Unlock()
	return msgpack.Marshal(state)
}

func (d *db) Restore(raw []byte) error {
	var state map[string][]byte
	if err := msgpack.Unmarshal(raw, &state); err != nil {
		return err
	}
	d.mu.Lock()
	d.c.Reset()
	d.keys = make(map[string]struct{}, len(state))
	d.mu.Unlock()
	for k, v := range state {
		d.set([]byte(k), v)
	}
	return nil
}

// maxCacheBytes is the fastcache capacity; fastcache rounds it up to its
// 32MB minimum anyway.
const maxCacheBytes = 32 * 1024 * 1024

func NewStateMachine() StateMachine {
	c := fastcache.New(maxCacheBytes)
	return &db{
		c:    c,
		keys: make(map[string]struct{}),
	}
}
