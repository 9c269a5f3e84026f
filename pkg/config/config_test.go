package config

import (
	"strings"
	"testing"

	"smallbiznis-trustescrow/pkg/policy"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func read(t *testing.T, doc string) *viper.Viper {
	t.Helper()
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(strings.NewReader(doc)))
	return v
}

func TestDecodeKeepsDefaults(t *testing.T) {
	cfg, err := Decode(read(t, "APP_ENV: staging\n"))
	require.NoError(t, err)
	require.Equal(t, "staging", cfg.AppEnv)
	require.Equal(t, "sqlite", cfg.Database.Type)
	require.Equal(t, policy.Default(), cfg.Policy)
}

func TestDecodeOverridesPolicy(t *testing.T) {
	doc := `
POLICY:
  ESCROW:
    FEE_BPS: 250
  RISK:
    CUSTOM_RULES:
      - NAME: big
        EXPRESSION: "amount > 1000.0"
        POINTS: 10
`
	cfg, err := Decode(read(t, doc))
	require.NoError(t, err)
	require.EqualValues(t, 250, cfg.Policy.Escrow.FeeBps)
	require.Len(t, cfg.Policy.Risk.CustomRules, 1)
	require.Equal(t, 0.35, cfg.Policy.Trust.Weights.TransactionSuccess)
}

func TestDecodeRejectsInvalidPolicy(t *testing.T) {
	doc := `
POLICY:
  TRUST:
    WEIGHTS:
      LONGEVITY: 0.5
`
	_, err := Decode(read(t, doc))
	require.ErrorContains(t, err, "invalid policy")
}
