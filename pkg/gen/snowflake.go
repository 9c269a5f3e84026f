// Package gen provides the id generator shared by the ledger and escrow
// services.
package gen

import (
	"fmt"

	"smallbiznis-trustescrow/pkg/config"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
)

var Module = fx.Module("gen.snowflake",
	fx.Provide(NewSnowflakeNode),
)

// NewSnowflakeNode builds the node for NODE_ID. Every replica must run with a
// distinct node id or generated ids collide.
func NewSnowflakeNode(cfg *config.Config) (*snowflake.Node, error) {
	node, err := snowflake.NewNode(cfg.NodeID)
	if err != nil {
		return nil, fmt.Errorf("snowflake node %d: %w", cfg.NodeID, err)
	}
	return node, nil
}
