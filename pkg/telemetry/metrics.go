package telemetry

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

var noopMeter = noop.NewMeterProvider().Meter(instrumentationName)

// Meter returns the meter used for application instruments
func Meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// NewCounter creates an int64 counter. Instrument creation only fails on
// an invalid name, in which case a no-op counter is returned.
func NewCounter(name, description string) metric.Int64Counter {
	c, err := Meter().Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		c, _ = noopMeter.Int64Counter(name)
	}
	return c
}

// NewHistogram creates a float64 histogram with the given unit
func NewHistogram(name, description, unit string) metric.Float64Histogram {
	h, err := Meter().Float64Histogram(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		h, _ = noopMeter.Float64Histogram(name)
	}
	return h
}
