// Copyright (c) 2025 Lodestar Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package otel

import (
	"context"
	"testing"
	"time"

	"github.com/lodestar-io/lodestar/config"

	"github.com/stretchr/testify/require"
)

func validConfig() config.OTel {
	return config.OTel{
		Resource: config.Resource{
			ServiceName:    "test-service",
			ServiceVersion: "v0.0.0",
		},
		Trace: config.Trace{
			Processor: config.SpanProcessor{
				Type: config.BatchSpanProcessorType,
				Batch: config.Batch{
					ExportInterval: time.Second,
					MaxSize:        512,
				},
			},
			Sampling: config.SpanSampling{Ratio: 1.0},
		},
		Metric: config.Metric{
			Reader: config.MetricReader{
				Type: config.PeriodicReaderType,
				Periodic: config.PeriodicReader{
					ExportInterval: time.Second,
				},
			},
		},
		Log: config.Log{
			Processor: config.LogProcessor{
				Type: config.BatchLogProcessorType,
				Batch: config.Batch{
					ExportInterval: time.Second,
					MaxSize:        512,
				},
			},
		},
	}
}

func TestInitialize(t *testing.T) {
	t.Run("will fall back to noop exporters when none are configured", func(t *testing.T) {
		require.NoError(t, Initialize(context.Background(), validConfig()))
	})

	t.Run("will wrap the log processor with level filtering when levels are configured", func(t *testing.T) {
		cfg := validConfig()
		cfg.Log.Levels = map[string]string{
			"github.com/lodestar-io/lodestar": "warn",
		}

		require.NoError(t, Initialize(context.Background(), cfg))
	})

	t.Run("if the span processor type is unknown then it fails", func(t *testing.T) {
		cfg := validConfig()
		cfg.Trace.Processor.Type = config.SpanProcessorType("simple")

		err := Initialize(context.Background(), cfg)
		require.Error(t, err)

		var utErr UnknownSpanProcessorTypeError
		require.ErrorAs(t, err, &utErr)
	})

	t.Run("if the metric reader type is unknown then it fails", func(t *testing.T) {
		cfg := validConfig()
		cfg.Metric.Reader.Type = config.MetricReaderType("manual")

		err := Initialize(context.Background(), cfg)
		require.Error(t, err)

		var utErr UnknownMetricReaderTypeError
		require.ErrorAs(t, err, &utErr)
	})

	t.Run("if the otlp conn type is unknown then it fails", func(t *testing.T) {
		cfg := validConfig()
		cfg.Trace.Exporter = config.SpanExporter{
			Type: config.OTLPSpanExporterType,
			OTLP: config.OTLP{
				Type:   config.OTLPConnType("unix"),
				Target: "localhost:4317",
			},
		}

		err := Initialize(context.Background(), cfg)
		require.Error(t, err)

		var utErr UnknownOTLPConnTypeError
		require.ErrorAs(t, err, &utErr)
	})
}
