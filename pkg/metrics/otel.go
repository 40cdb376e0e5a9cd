package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/ajitpratap0/reclaim/pkg/reclaimerrors"
)

// RegisterOTel registers observable instruments on meter that report every
// source in registry. Each collection reads the registry once.
// The returned registration can be used to unregister the callback.
func RegisterOTel(meter metric.Meter, registry *Registry) (metric.Registration, error) {
	held, err := meter.Int64ObservableGauge("reclaim_pool_held",
		metric.WithDescription("Objects currently stored by the pool"),
		metric.WithUnit("{object}"),
	)
	if err != nil {
		return nil, otelError(err, "reclaim_pool_held")
	}
	capacity, err := meter.Int64ObservableGauge("reclaim_pool_capacity",
		metric.WithDescription("Maximum number of objects the pool stores"),
		metric.WithUnit("{object}"),
	)
	if err != nil {
		return nil, otelError(err, "reclaim_pool_capacity")
	}
	created, err := meter.Int64ObservableCounter("reclaim_pool_created",
		metric.WithDescription("Objects created because the pool was empty"),
		metric.WithUnit("{object}"),
	)
	if err != nil {
		return nil, otelError(err, "reclaim_pool_created")
	}
	reused, err := meter.Int64ObservableCounter("reclaim_pool_reused",
		metric.WithDescription("Rents served from pool storage"),
		metric.WithUnit("{object}"),
	)
	if err != nil {
		return nil, otelError(err, "reclaim_pool_reused")
	}
	rejected, err := meter.Int64ObservableCounter("reclaim_pool_rejected",
		metric.WithDescription("Returned objects refused by the policy or dropped because storage was full"),
		metric.WithUnit("{object}"),
	)
	if err != nil {
		return nil, otelError(err, "reclaim_pool_rejected")
	}

	reg, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		for _, s := range registry.Snapshot() {
			attrs := metric.WithAttributes(
				attribute.String("pool", s.Name),
				attribute.String("kind", s.Stats.Kind),
			)
			o.ObserveInt64(held, int64(s.Stats.Held), attrs)
			o.ObserveInt64(capacity, int64(s.Stats.Capacity), attrs)
			o.ObserveInt64(created, int64(s.Stats.Created), attrs)
			o.ObserveInt64(reused, int64(s.Stats.Reused), attrs)
			o.ObserveInt64(rejected, int64(s.Stats.RejectedPolicy), metric.WithAttributes(
				attribute.String("pool", s.Name),
				attribute.String("kind", s.Stats.Kind),
				attribute.String("reason", "policy"),
			))
			o.ObserveInt64(rejected, int64(s.Stats.RejectedFull), metric.WithAttributes(
				attribute.String("pool", s.Name),
				attribute.String("kind", s.Stats.Kind),
				attribute.String("reason", "full"),
			))
		}
		return nil
	}, held, capacity, created, reused, rejected)
	if err != nil {
		return nil, reclaimerrors.Wrap(err, reclaimerrors.ErrorTypeInternal, "failed to register pool metrics callback")
	}
	return reg, nil
}

func otelError(err error, instrument string) error {
	return reclaimerrors.Wrap(err, reclaimerrors.ErrorTypeInternal, "failed to create instrument").
		WithDetail("instrument", instrument)
}
