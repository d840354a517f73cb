package main

import (
	"time"

	"github.com/uber-go/tally"
	"go.uber.org/zap"
)

// logReporter writes every reported metric to the logger.
type logReporter struct {
	logger *zap.Logger
}

var _ tally.StatsReporter = (*logReporter)(nil)

func newLogReporter(logger *zap.Logger) *logReporter {
	return &logReporter{logger: logger.Named("metrics")}
}

func (r *logReporter) ReportCounter(name string, tags map[string]string, value int64) {
	r.logger.Info("counter", zap.String("name", name), zap.Any("tags", tags), zap.Int64("value", value))
}

func (r *logReporter) ReportGauge(name string, tags map[string]string, value float64) {
	r.logger.Info("gauge", zap.String("name", name), zap.Any("tags", tags), zap.Float64("value", value))
}

func (r *logReporter) ReportTimer(name string, tags map[string]string, interval time.Duration) {
	r.logger.Info("timer", zap.String("name", name), zap.Any("tags", tags), zap.Duration("value", interval))
}

func (r *logReporter) ReportHistogramValueSamples(
	name string,
	tags map[string]string,
	_ tally.Buckets,
	lower, upper float64,
	samples int64,
) {
	r.logger.Info("histogram", zap.String("name", name), zap.Any("tags", tags),
		zap.Float64("lower", lower), zap.Float64("upper", upper), zap.Int64("samples", samples))
}

func (r *logReporter) ReportHistogramDurationSamples(
	name string,
	tags map[string]string,
	_ tally.Buckets,
	lower, upper time.Duration,
	samples int64,
) {
	r.logger.Info("histogram", zap.String("name", name), zap.Any("tags", tags),
		zap.Duration("lower", lower), zap.Duration("upper", upper), zap.Int64("samples", samples))
}

func (r *logReporter) Capabilities() tally.Capabilities { return r }

func (r *logReporter) Reporting() bool { return true }

func (r *logReporter) Tagging() bool { return true }

func (r *logReporter) Flush() {}
