// Package snowflake 生成按时间有序的 int64 消息 id
package snowflake

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
)

// Generator 雪花 id 生成器，并发安全
type Generator struct {
	node *snowflake.Node
}

// NewGenerator 创建生成器，machineID 范围 0-1023，多实例部署时必须唯一
func NewGenerator(machineID int64) (*Generator, error) {
	if machineID < 0 || machineID > 1023 {
		return nil, fmt.Errorf("snowflake machine id %d out of range [0,1023]", machineID)
	}
	node, err := snowflake.NewNode(machineID)
	if err != nil {
		return nil, fmt.Errorf("init snowflake node: %w", err)
	}
	return &Generator{node: node}, nil
}

// GenerateID 生成雪花 ID (int64)
func (g *Generator) GenerateID() int64 {
	return g.node.Generate().Int64()
}

// GenerateIDString 生成雪花 ID (string)
// 用于 JSON 序列化，避免 JavaScript 精度丢失
func (g *Generator) GenerateIDString() string {
	return g.node.Generate().String()
}
