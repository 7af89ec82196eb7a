// Copyright (c) 2025 Lodestar Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package config

import "time"

// Resource identifies the service emitting telemetry.
type Resource struct {
	ServiceName    string `config:"service_name"`
	ServiceVersion string `config:"service_version"`
}

// Batch configures batched exporting.
type Batch struct {
	ExportInterval time.Duration `config:"export_interval"`
	MaxSize        int           `config:"max_size"`
}

// OTLPConnType enumerates the supported OTLP transports.
type OTLPConnType string

const (
	OTLPHTTP OTLPConnType = "http"
	OTLPGRPC OTLPConnType = "grpc"
)

// OTLP configures an OTLP exporter target.
type OTLP struct {
	Type   OTLPConnType `config:"type"`
	Target string       `config:"target"`
}

// SpanProcessorType enumerates the supported span processors.
type SpanProcessorType string

const (
	BatchSpanProcessorType SpanProcessorType = "batch"
)

// SpanProcessor configures how ended spans are handed to the exporter.
type SpanProcessor struct {
	Type  SpanProcessorType `config:"type"`
	Batch Batch             `config:"batch"`
}

// SpanSampling configures trace sampling.
type SpanSampling struct {
	Ratio float64 `config:"ratio"`
}

// SpanExporterType enumerates the supported span exporters.
type SpanExporterType string

const (
	OTLPSpanExporterType SpanExporterType = "otlp"
)

// SpanExporter configures where spans are exported to.
type SpanExporter struct {
	Type SpanExporterType `config:"type"`
	OTLP OTLP             `config:"otlp"`
}

// Trace is the tracing section of [OTel].
type Trace struct {
	Processor SpanProcessor `config:"processor"`
	Sampling  SpanSampling  `config:"sampling"`
	Exporter  SpanExporter  `config:"exporter"`
}

// MetricReaderType enumerates the supported metric readers.
type MetricReaderType string

const (
	PeriodicReaderType MetricReaderType = "periodic"
)

// PeriodicReader configures interval based metric collection.
type PeriodicReader struct {
	ExportInterval time.Duration `config:"export_interval"`
}

// MetricReader configures how metrics are collected.
type MetricReader struct {
	Type     MetricReaderType `config:"type"`
	Periodic PeriodicReader   `config:"periodic"`
}

// MetricExporterType enumerates the supported metric exporters.
type MetricExporterType string

const (
	OTLPMetricExporterType MetricExporterType = "otlp"
)

// MetricExporter configures where metrics are exported to.
type MetricExporter struct {
	Type MetricExporterType `config:"type"`
	OTLP OTLP               `config:"otlp"`
}

// Metric is the metrics section of [OTel].
type Metric struct {
	Reader   MetricReader   `config:"reader"`
	Exporter MetricExporter `config:"exporter"`
}

// LogProcessorType enumerates the supported log processors.
type LogProcessorType string

const (
	SimpleLogProcessorType LogProcessorType = "simple"
	BatchLogProcessorType  LogProcessorType = "batch"
)

// LogProcessor configures how log records are handed to the exporter.
type LogProcessor struct {
	Type  LogProcessorType `config:"type"`
	Batch Batch            `config:"batch"`
}

// LogExporterType enumerates the supported log exporters.
type LogExporterType string

const (
	OTLPLogExporterType LogExporterType = "otlp"
)

// LogExporter configures where log records are exported to.
type LogExporter struct {
	Type LogExporterType `config:"type"`
	OTLP OTLP            `config:"otlp"`
}

// Log is the logging section of [OTel].
//
// Levels maps logger names to a minimum level ("debug", "info", "warn",
// "error"). Names match by longest prefix, so configuring a module path
// covers all of its packages. Unconfigured loggers pass everything through.
type Log struct {
	Processor LogProcessor      `config:"processor"`
	Exporter  LogExporter       `config:"exporter"`
	Levels    map[string]string `config:"levels"`
}

// OTel is the config section controlling OTel SDK initialization.
type OTel struct {
	Resource Resource `config:"resource"`
	Trace    Trace    `config:"trace"`
	Metric   Metric   `config:"metric"`
	Log      Log      `config:"log"`
}
