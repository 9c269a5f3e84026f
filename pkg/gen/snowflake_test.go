package gen

import (
	"testing"

	"smallbiznis-trustescrow/pkg/config"

	"github.com/stretchr/testify/require"
)

func TestNewSnowflakeNode(t *testing.T) {
	cfg := config.Default()
	cfg.NodeID = 7
	node, err := NewSnowflakeNode(cfg)
	require.NoError(t, err)
	require.Equal(t, int64(7), node.Generate().Node())
}

func TestNewSnowflakeNodeRejectsOutOfRange(t *testing.T) {
	cfg := config.Default()
	cfg.NodeID = 4096
	_, err := NewSnowflakeNode(cfg)
	require.Error(t, err)
}
