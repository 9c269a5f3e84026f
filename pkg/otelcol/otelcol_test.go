package otelcol

import (
	"testing"

	"smallbiznis-trustescrow/pkg/config"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx/fxtest"
)

func TestTracerProviderDisabledWithoutAddr(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	tp, err := ProvideTracerProvider(lc, config.Default())
	require.NoError(t, err)
	require.Equal(t, otel.GetTracerProvider(), tp)
}

func TestResourceCarriesServiceIdentity(t *testing.T) {
	cfg := config.Default()
	cfg.AppVersion = "1.2.0"
	res, err := Resource(cfg)
	require.NoError(t, err)

	attrs := map[attribute.Key]string{}
	for _, kv := range res.Attributes() {
		attrs[kv.Key] = kv.Value.Emit()
	}
	require.Equal(t, "trustescrow", attrs["service.name"])
	require.Equal(t, "1.2.0", attrs["service.version"])
	require.Equal(t, cfg.Policy.Version, attrs["policy.version"])
}
