package telemetry_test

import (
	"context"
	"testing"

	"github.com/restorecommerce/ordering-srv-sub000/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestDisabledProviders(t *testing.T) {
	ctx := context.Background()

	t.Run("tracer", func(t *testing.T) {
		tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{}, nil)
		require.NoError(t, err)
		assert.False(t, tp.IsEnabled())
		assert.NotNil(t, tp.Tracer("x"))
		tp.EnableSpanProfiles()
		assert.NoError(t, tp.Shutdown(ctx))
	})

	t.Run("meter", func(t *testing.T) {
		mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{}, nil)
		require.NoError(t, err)
		assert.False(t, mp.IsEnabled())
		_, err = telemetry.NewOrderingMetrics(mp.Meter(telemetry.MeterName))
		assert.NoError(t, err)
		assert.NoError(t, mp.Shutdown(ctx))
	})

	t.Run("logs bridge returns logger unchanged", func(t *testing.T) {
		lp, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{}, nil)
		require.NoError(t, err)
		core, logs := observer.New(zapcore.InfoLevel)
		base := zap.New(core)

		bridged := lp.Bridge(base, zapcore.InfoLevel)
		bridged.Info("hello")
		assert.Same(t, base, bridged)
		assert.Equal(t, 1, logs.Len())
		assert.Equal(t, zapcore.NewNopCore(), lp.Core("x", zapcore.InfoLevel))
	})

	t.Run("profiler", func(t *testing.T) {
		p, err := telemetry.NewProfiler(telemetry.ProfilerConfig{}, nil)
		require.NoError(t, err)
		assert.False(t, p.IsEnabled())
		assert.NoError(t, p.Stop())
		assert.NoError(t, p.Stop())
	})
}

func TestTracerProviderStdoutExporter(t *testing.T) {
	tp, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:       true,
		Exporter:      telemetry.ExporterStdout,
		SamplingRatio: 1,
		ServiceName:   "ordering-srv-test",
	}, zap.NewNop())
	require.NoError(t, err)
	assert.True(t, tp.IsEnabled())
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestTracerProviderRejectsUnknownExporter(t *testing.T) {
	_, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:  true,
		Exporter: "carrier-pigeon",
	}, nil)
	assert.ErrorContains(t, err, "unknown trace exporter")
}

func TestProfilerValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  telemetry.ProfilerConfig
		want string
	}{
		{"missing address", telemetry.ProfilerConfig{Enabled: true, ApplicationName: "a"}, "server address"},
		{"missing name", telemetry.ProfilerConfig{Enabled: true, ServerAddress: "http://p:4040"}, "application name"},
		{"bad profile type", telemetry.ProfilerConfig{
			Enabled: true, ServerAddress: "http://p:4040", ApplicationName: "a", ProfileTypes: []string{"heapz"},
		}, "unknown profile type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := telemetry.NewProfiler(tt.cfg, nil)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}
