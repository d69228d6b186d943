package uuid

import (
	"github.com/bwmarrin/snowflake"
)

// SnowNode 雪花ID生成器, 每个服务实例用不同的节点号
type SnowNode struct {
	node *snowflake.Node
}

func NewNode(n int64) *SnowNode {
	node, err := snowflake.NewNode(n)
	if err != nil {
		panic(err)
	}
	return &SnowNode{node: node}
}

// GenSnowID 生成一个全局唯一的int64 ID
func (s *SnowNode) GenSnowID() int64 {
	return s.node.Generate().Int64()
}
