package raft

import (
	"encoding/binary"
	"errors"
	"io"
	"os"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"github.com/vmihailenco/msgpack/v5"
)

const votedForNone = -1

// ErrStateCorrupted is returned when the persisted state file fails its
// checksum.
var ErrStateCorrupted = errors.New("raft: state file corrupted")

type state struct {
	CurrentTerm atomic.Uint64 // latest term server has seen (initialized to 0 on first boot, increases monotonically)
	VotedFor    atomic.Int32  // candidateId that received vote in current term (or -1 if none)

	file *os.File // underlying file
}

// persistentState is the on-disk form; the file carries its msgpack encoding
// followed by an 8-byte xxhash trailer.
type persistentState struct {
	CurrentTerm uint64 `msgpack:"current_term"`
	VotedFor    int32  `msgpack:"voted_for"`
}

func (s *state) getCurrentTerm() uint64 {
	return s.CurrentTerm.Load()
}

func (s *state) setCurrentTerm(term uint64) {
	s.CurrentTerm.Store(term)
}

func (s *state) increaseCurrentTerm() uint64 {
	return s.CurrentTerm.Add(1)
}

func (s *state) getVotedFor() int {
	return int(s.VotedFor.Load())
}

func (s *state) setVotedFor(id int) {
	s.VotedFor.Store(int32(id))
}

func newState(file string) (*state, error) {
	st := new(state)
	st.VotedFor.Store(votedForNone)
	f, err := os.OpenFile(file, os.O_CREATE|os.O_RDWR|os.O_SYNC, os.ModePerm)
	if err != nil {
		return nil, err
	}
	st.file = f
	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return st, nil
	}
	if len(raw) < 8 {
		return nil, ErrStateCorrupted
	}
	payload, trailer := raw[:len(raw)-8], raw[len(raw)-8:]
	if xxhash.Sum64(payload) != binary.LittleEndian.Uint64(trailer) {
		return nil, ErrStateCorrupted
	}
	var ps persistentState
	if err := msgpack.Unmarshal(payload, &ps); err != nil {
		return nil, err
	}
	st.CurrentTerm.Store(ps.CurrentTerm)
	st.VotedFor.Store(ps.VotedFor)
	return st, nil
}

func (s *state) rewindFile() error {
	err := s.file.Truncate(0)
	if err != nil {
		return err
	}
	_, err = s.file.Seek(0, io.SeekStart)
	if err != nil {
		return err
	}
	return nil
}

func (s *state) write() error {
	if err := s.rewindFile(); err != nil {
		return err
	}
	raw, err := s.serialize()
	if err != nil {
		return err
	}
	_, err = s.file.Write(raw)
	if err != nil {
		return err
	}
	return nil
}

func (s *state) serialize() ([]byte, error) {
	payload, err := msgpack.Marshal(persistentState{
		CurrentTerm: s.CurrentTerm.Load(),
		VotedFor:    s.VotedFor.Load(),
	})
	if err != nil {
		return nil, err
	}
	trailer := make([]byte, 8)
	binary.LittleEndian.PutUint64(trailer, xxhash.Sum64(payload))
	return append(payload, trailer...), nil
}
