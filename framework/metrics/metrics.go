// Package metrics предоставляет систему метрик на основе OpenTelemetry.
package metrics

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics сборщик метрик операций репозитория
type Metrics struct {
	meter             metric.Meter
	readsTotal        metric.Int64Counter
	searchesTotal     metric.Int64Counter
	writesTotal       metric.Int64Counter
	deletesTotal      metric.Int64Counter
	refreshesTotal    metric.Int64Counter
	operationDuration metric.Float64Histogram
	errorsTotal       metric.Int64Counter
	activeOperations  metric.Int64UpDownCounter
	customMetrics     map[string]interface{}
	mu                sync.RWMutex
}

// NewMetrics создает новый сборщик метрик
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter("lodestone")

	readsTotal, err := meter.Int64Counter(
		"repository_reads_total",
		metric.WithDescription("Total number of single-document reads"),
	)
	if err != nil {
		return nil, err
	}

	searchesTotal, err := meter.Int64Counter(
		"repository_searches_total",
		metric.WithDescription("Total number of search and count requests"),
	)
	if err != nil {
		return nil, err
	}

	writesTotal, err := meter.Int64Counter(
		"repository_writes_total",
		metric.WithDescription("Total number of index operations"),
	)
	if err != nil {
		return nil, err
	}

	deletesTotal, err := meter.Int64Counter(
		"repository_deletes_total",
		metric.WithDescription("Total number of delete operations"),
	)
	if err != nil {
		return nil, err
	}

	refreshesTotal, err := meter.Int64Counter(
		"repository_refreshes_total",
		metric.WithDescription("Total number of index refresh calls"),
	)
	if err != nil {
		return nil, err
	}

	operationDuration, err := meter.Float64Histogram(
		"repository_operation_duration_seconds",
		metric.WithDescription("Repository operation duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	errorsTotal, err := meter.Int64Counter(
		"repository_errors_total",
		metric.WithDescription("Total number of failed repository operations"),
	)
	if err != nil {
		return nil, err
	}

	activeOperations, err := meter.Int64UpDownCounter(
		"repository_active_operations",
		metric.WithDescription("Number of repository operations in flight"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		meter:             meter,
		readsTotal:        readsTotal,
		searchesTotal:     searchesTotal,
		writesTotal:       writesTotal,
		deletesTotal:      deletesTotal,
		refreshesTotal:    refreshesTotal,
		operationDuration: operationDuration,
		errorsTotal:       errorsTotal,
		activeOperations:  activeOperations,
		customMetrics:     make(map[string]interface{}),
	}, nil
}

// RecordRead записывает метрику чтения документа
func (m *Metrics) RecordRead(ctx context.Context, index string, duration time.Duration, success bool) {
	m.record(ctx, m.readsTotal, "read", index, duration, success)
}

// RecordSearch записывает метрику поискового запроса
func (m *Metrics) RecordSearch(ctx context.Context, index string, duration time.Duration, success bool) {
	m.record(ctx, m.searchesTotal, "search", index, duration, success)
}

// RecordWrite записывает метрику записи документа
func (m *Metrics) RecordWrite(ctx context.Context, index string, duration time.Duration, success bool) {
	m.record(ctx, m.writesTotal, "write", index, duration, success)
}

// RecordDelete записывает метрику удаления
func (m *Metrics) RecordDelete(ctx context.Context, index string, duration time.Duration, success bool) {
	m.record(ctx, m.deletesTotal, "delete", index, duration, success)
}

// RecordRefresh записывает метрику refresh
func (m *Metrics) RecordRefresh(ctx context.Context, index string) {
	m.refreshesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("index", index),
	))
}

func (m *Metrics) record(ctx context.Context, counter metric.Int64Counter, operation, index string, duration time.Duration, success bool) {
	attrs := []attribute.KeyValue{
		attribute.String("index", index),
		attribute.Bool("success", success),
	}

	counter.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.operationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("index", index),
	))

	if !success {
		m.errorsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("index", index),
		))
	}
}

// IncrementActiveOperations увеличивает счетчик операций в полете
func (m *Metrics) IncrementActiveOperations(ctx context.Context) {
	m.activeOperations.Add(ctx, 1)
}

// DecrementActiveOperations уменьшает счетчик операций в полете
func (m *Metrics) DecrementActiveOperations(ctx context.Context) {
	m.activeOperations.Add(ctx, -1)
}

// Register регистрирует кастомную метрику
func (m *Metrics) Register(name string, metric interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.customMetrics[name] = metric
	return nil
}

// Unregister удаляет кастомную метрику
func (m *Metrics) Unregister(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.customMetrics, name)
	return nil
}
