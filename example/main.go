package main

import (
	"context"
	"fmt"

	raft "github.com/consensus/raft"
	"github.com/consensus/raft/config"
	"github.com/consensus/raft/model"
)

func main() {
	conf, err := config.ReadConfig("../testdata/config.yaml")
	if err != nil {
		panic(err)
	}
	s, err := raft.NewServer(1, conf)
	if err != nil {
		panic(err)
	}
	go s.Listen()

	s.BecomeLeader(1)

	ctx := context.Background()
	if _, err := s.On(ctx, model.PutCommand([]byte("greeting"), []byte("hello"))); err != nil {
		panic(err)
	}
	value, err := s.On(ctx, model.GetCommand([]byte("greeting")))
	if err != nil {
		panic(err)
	}
	fmt.Printf("greeting = %s\n", value)

	info, err := s.Info()
	if err != nil {
		panic(err)
	}
	fmt.Printf("leader %d, term %d, commit index %d\n", info.Id, info.Term, info.CommitIndex)

	if err := s.Close(); err != nil {
		panic(err)
	}
}
