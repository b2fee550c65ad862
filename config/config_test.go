package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_ReadConfig(t *testing.T) {
	file := "../testdata/test_readConfig.yaml"
	c, err := ReadConfig(file)
	assert.NoError(t, err)
	assert.Equal(t, 2*time.Second, c.AppendEntriesTimeout)
	assert.Equal(t, 100*time.Millisecond, c.HeartbeatsInterval)
	assert.Len(t, c.Nodes, 2)
	n1 := c.Nodes[0]
	assert.Equal(t, n1.Id, 1)
	assert.Equal(t, n1.Address, "123")
	assert.Equal(t, n1.Port, "14")
	n2 := c.Nodes[1]
	assert.Equal(t, n2.Id, 2)
	assert.Equal(t, n2.Address, "123")
	assert.Equal(t, n2.Port, "15")
}

func Test_ReadConfig_Defaults(t *testing.T) {
	file := "../testdata/test_readConfig_defaults.yaml"
	c, err := ReadConfig(file)
	assert.NoError(t, err)
	assert.Equal(t, DefaultAppendEntriesTimeout, c.AppendEntriesTimeout)
	assert.Equal(t, DefaultHeartbeatsInterval, c.HeartbeatsInterval)
}

func Test_Validate(t *testing.T) {
	node := Node{Id: 1, Address: "127.0.0.1", Port: "2000"}
	tests := []struct {
		name    string
		conf    Config
		wantErr bool
	}{
		{
			name: "valid",
			conf: Config{
				AppendEntriesTimeout: time.Second,
				HeartbeatsInterval:   50 * time.Millisecond,
				Nodes:                []Node{node},
			},
		},
		{
			name: "no nodes",
			conf: Config{
				AppendEntriesTimeout: time.Second,
				HeartbeatsInterval:   50 * time.Millisecond,
			},
			wantErr: true,
		},
		{
			name: "missing append entries timeout",
			conf: Config{
				HeartbeatsInterval: 50 * time.Millisecond,
				Nodes:              []Node{node},
			},
			wantErr: true,
		},
		{
			name: "heartbeats not shorter than quorum wait",
			conf: Config{
				AppendEntriesTimeout: 50 * time.Millisecond,
				HeartbeatsInterval:   50 * time.Millisecond,
				Nodes:                []Node{node},
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.conf.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func Test_Majority(t *testing.T) {
	c := &Config{Nodes: []Node{{Id: 1}}}
	assert.Equal(t, 1, c.Majority())
	c.Nodes = append(c.Nodes, Node{Id: 2}, Node{Id: 3})
	assert.Equal(t, 2, c.Majority())
	c.Nodes = append(c.Nodes, Node{Id: 4}, Node{Id: 5})
	assert.Equal(t, 3, c.Majority())
}
