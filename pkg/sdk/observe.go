package databrowser

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// sdkMetrics holds prometheus metrics registered for the SDK.
type sdkMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	streamed   *prometheus.CounterVec
}

func newSDKMetrics(reg prometheus.Registerer) (*sdkMetrics, error) {
	m := &sdkMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "databrowser",
			Subsystem: "sdk",
			Name:      "operations_total",
			Help:      "Total SDK operations by type and status.",
		}, []string{"operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "databrowser",
			Subsystem: "sdk",
			Name:      "operation_duration_seconds",
			Help:      "SDK operation duration in seconds. Streams are timed until the caller stops iterating.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		streamed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "databrowser",
			Subsystem: "sdk",
			Name:      "streamed_items_total",
			Help:      "Items yielded by SDK search streams.",
		}, []string{"operation"}),
	}
	if err := registerOrReuse(reg, &m.operations); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.streamed); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers a collector or reuses an existing one.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	if err := reg.Register(*c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			existing, ok := are.ExistingCollector.(T)
			if !ok {
				return fmt.Errorf("databrowser: metric already registered with incompatible type: %T", are.ExistingCollector)
			}
			*c = existing
			return nil
		}
		return fmt.Errorf("databrowser: register metric: %w", err)
	}
	return nil
}

// observer provides logging and metrics for SDK operations.
type observer struct {
	logger  *slog.Logger
	metrics *sdkMetrics
}

func newObserver(logger *slog.Logger, reg prometheus.Registerer) (*observer, error) {
	var m *sdkMetrics
	if reg != nil {
		var err error
		m, err = newSDKMetrics(reg)
		if err != nil {
			return nil, err
		}
	}
	return &observer{logger: logger, metrics: m}, nil
}

func (o *observer) observe(op string, start time.Time, err error) {
	o.observeStream(op, start, -1, err)
}

// observeStream records a finished operation; items < 0 means not a stream.
func (o *observer) observeStream(op string, start time.Time, items int, err error) {
	if o == nil {
		return
	}
	dur := time.Since(start)

	if o.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		o.metrics.operations.WithLabelValues(op, status).Inc()
		o.metrics.duration.WithLabelValues(op).Observe(dur.Seconds())
		if items > 0 {
			o.metrics.streamed.WithLabelValues(op).Add(float64(items))
		}
	}

	if o.logger != nil {
		attrs := []any{"op", op, "duration", dur}
		if items >= 0 {
			attrs = append(attrs, "items", items)
		}
		if err != nil {
			o.logger.Warn("operation failed", append(attrs, "error", err)...)
		} else {
			o.logger.Debug("operation completed", attrs...)
		}
	}
}

// observed wraps seq so the operation is recorded once iteration ends,
// whether it ran to completion, failed or was stopped by the caller.
func observed[T any](o *observer, op string, seq iter.Seq2[T, error]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		start := time.Now()
		n := 0
		var streamErr error
		defer func() { o.observeStream(op, start, n, streamErr) }()

		for v, err := range seq {
			if err != nil {
				streamErr = err
				var zero T
				yield(zero, err)
				return
			}
			n++
			if !yield(v, nil) {
				return
			}
		}
	}
}
