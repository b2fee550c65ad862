package model

import (
	"github.com/vmihailenco/msgpack/v5"
)

// CommandKind enumerates the closed command set. Writes go through the
// replicated log; reads execute against the applied state directly.
type CommandKind uint8

const (
	CmdNoOp CommandKind = iota // appended on leadership acquisition
	CmdPut
	CmdDelete
	CmdGet
	CmdLeaveJoint // leaves joint consensus after the transitional config commits
)

type Command struct {
	Kind  CommandKind `msgpack:"kind"`
	Key   []byte      `msgpack:"key"`
	Value []byte      `msgpack:"value"`
}

// IsWrite reports whether the command mutates state and therefore requires
// replication and quorum commit.
func (c *Command) IsWrite() bool {
	return c.Kind != CmdGet
}

func NoOpCommand() *Command {
	return &Command{Kind: CmdNoOp}
}

func PutCommand(key, value []byte) *Command {
	return &Command{Kind: CmdPut, Key: key, Value: value}
}

func DeleteCommand(key []byte) *Command {
	return &Command{Kind: CmdDelete, Key: key}
}

func GetCommand(key []byte) *Command {
	return &Command{Kind: CmdGet, Key: key}
}

func LeaveJointConsensusCommand() *Command {
	return &Command{Kind: CmdLeaveJoint}
}

func (c *Command) Encode() ([]byte, error) {
	return msgpack.Marshal(c)
}

func DecodeCommand(raw []byte) (*Command, error) {
	var c Command
	if err := msgpack.Unmarshal(raw, &c); err != nil {
		return nil, err
	}
	return &c, nil
}
