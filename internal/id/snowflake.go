package id

import (
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node *snowflake.Node
	once sync.Once
)

// Init initializes the Snowflake node with the given node ID.
// Only the first call has any effect.
func Init(nodeID int64) error {
	var err error
	once.Do(func() {
		node, err = snowflake.NewNode(nodeID)
	})
	return err
}

// New generates a time-ordered unique int64 ID. If Init was never called,
// node 0 is used.
func New() int64 {
	once.Do(func() {
		node, _ = snowflake.NewNode(0)
	})
	return node.Generate().Int64()
}
