package telemetry

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/holmberd/go-objpool"
)

// StatsSource is implemented by every pool in package objpool.
type StatsSource interface {
	Stats() objpool.Stats
}

type poolInstrument struct {
	name        string
	description string
	unit        string
	gauge       bool
	value       func(objpool.Stats) int64
}

var poolInstruments = []poolInstrument{
	{"objpool.gets", "Get calls", "{call}", false, func(s objpool.Stats) int64 { return int64(s.Gets) }},
	{"objpool.creates", "Instances created by Get on an empty pool", "{instance}", false, func(s objpool.Stats) int64 { return int64(s.Creates) }},
	{"objpool.prewarmed", "Instances created by Allocate", "{instance}", false, func(s objpool.Stats) int64 { return int64(s.Prewarmed) }},
	{"objpool.returns", "Return calls", "{call}", false, func(s objpool.Stats) int64 { return int64(s.Returns) }},
	{"objpool.rejected", "Instances discarded by the policy on reset", "{instance}", false, func(s objpool.Stats) int64 { return int64(s.Rejected) }},
	{"objpool.dropped", "Instances discarded because the pool was full", "{instance}", false, func(s objpool.Stats) int64 { return int64(s.Dropped) }},
	{"objpool.buffer.hits", "Gets served from an object buffer", "{call}", false, func(s objpool.Stats) int64 { return int64(s.BufferHits) }},
	{"objpool.idle", "Idle instances in the bounded store", "{instance}", true, func(s objpool.Stats) int64 { return int64(s.Idle) }},
	{"objpool.buffered", "Idle instances in object buffers", "{instance}", true, func(s objpool.Stats) int64 { return int64(s.Buffered) }},
}

// ObservePool registers observable instruments reporting the stats of src,
// attributed with pool=name. All instruments observe the same snapshot.
// Unregister the returned registration when the pool is torn down.
func ObservePool(meter metric.Meter, name string, src StatsSource) (metric.Registration, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "default"
	}
	attrs := metric.WithAttributes(attribute.String("pool", name))

	observables := make([]metric.Observable, len(poolInstruments))
	int64Observables := make([]metric.Int64Observable, len(poolInstruments))
	for i, inst := range poolInstruments {
		var (
			obs metric.Int64Observable
			err error
		)
		if inst.gauge {
			obs, err = meter.Int64ObservableGauge(inst.name,
				metric.WithDescription(inst.description),
				metric.WithUnit(inst.unit),
			)
		} else {
			obs, err = meter.Int64ObservableCounter(inst.name,
				metric.WithDescription(inst.description),
				metric.WithUnit(inst.unit),
			)
		}
		if err != nil {
			return nil, fmt.Errorf("create instrument %s: %w", inst.name, err)
		}
		observables[i] = obs
		int64Observables[i] = obs
	}

	reg, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := src.Stats()
		for i, inst := range poolInstruments {
			o.ObserveInt64(int64Observables[i], inst.value(s), attrs)
		}
		return nil
	}, observables...)
	if err != nil {
		return nil, fmt.Errorf("register pool %s callback: %w", name, err)
	}
	return reg, nil
}
