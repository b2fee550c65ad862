package config

import (
	"errors"
	"net"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	rpcx "github.com/smallnest/rpcx/client"
)

// todo: close connection

const (
	DefaultAppendEntriesTimeout = time.Second
	DefaultHeartbeatsInterval   = 50 * time.Millisecond
)

var (
	ErrNodeNotFound  = errors.New("config: node not found")
	ErrInvalidConfig = errors.New("config: invalid configuration")
)

type Node struct {
	Id      int    `yaml:"id"`
	Address string `yaml:"address"`
	Port    string `yaml:"port"`

	Conn rpcx.XClient `yaml:"-"`
}

func (n *Node) Connect() error {
	addr := n.GetAddress()
	d, err := rpcx.NewPeer2PeerDiscovery("tcp@"+addr, "")
	if err != nil {
		return err
	}
	n.Conn = rpcx.NewXClient("Server", rpcx.Failover, rpcx.RandomSelect, d, rpcx.DefaultOption)
	return nil
}

func (n *Node) GetAddress() string {
	return net.JoinHostPort(n.Address, n.Port)
}

type Config struct {
	Dir string `yaml:"dir"`

	// AppendEntriesTimeout bounds how long a write command waits for quorum.
	AppendEntriesTimeout time.Duration `yaml:"append_entries_timeout"`

	// HeartbeatsInterval is the leader heartbeat broadcast period.
	HeartbeatsInterval time.Duration `yaml:"heartbeats_interval"`

	Nodes []Node `yaml:"nodes"`
}

func (c *Config) GetNode(id int) (Node, error) {
	for _, n := range c.Nodes {
		if n.Id == id {
			return n, nil
		}
	}
	return Node{}, ErrNodeNotFound
}

// Majority is the minimum number of members, self included, that make a
// decision durable.
func (c *Config) Majority() int {
	return len(c.Nodes)/2 + 1
}

func (c *Config) Validate() error {
	if len(c.Nodes) == 0 {
		return ErrInvalidConfig
	}
	if c.AppendEntriesTimeout <= 0 {
		return ErrInvalidConfig
	}
	if c.HeartbeatsInterval <= 0 {
		return ErrInvalidConfig
	}
	if c.HeartbeatsInterval >= c.AppendEntriesTimeout {
		return ErrInvalidConfig
	}
	return nil
}

func ReadConfig(file string) (*Config, error) {
	raw, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	var c Config
	err = yaml.Unmarshal(raw, &c)
	if err != nil {
		return nil, err
	}
	if c.AppendEntriesTimeout == 0 {
		c.AppendEntriesTimeout = DefaultAppendEntriesTimeout
	}
	if c.HeartbeatsInterval == 0 {
		c.HeartbeatsInterval = DefaultHeartbeatsInterval
	}
	return &c, nil
}
