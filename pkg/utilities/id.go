package utilities

import (
	"github.com/bwmarrin/snowflake"
	"github.com/segmentio/ksuid"
)

// NewKSUID generates a new globally unique KSUID string.
func NewKSUID() string {
	return ksuid.New().String()
}

// SnowflakeGenerator hands out time-ordered ids for a single node.
type SnowflakeGenerator struct {
	node *snowflake.Node
}

// NewSnowflakeGenerator builds a generator for nodeID. Out of range node ids
// fall back to node 1 so ids are still produced.
func NewSnowflakeGenerator(nodeID int64) *SnowflakeGenerator {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		node, _ = snowflake.NewNode(1)
	}
	return &SnowflakeGenerator{node: node}
}

// Next returns the next snowflake id as a string.
func (g *SnowflakeGenerator) Next() string {
	return g.node.Generate().String()
}
