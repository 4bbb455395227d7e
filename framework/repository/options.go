package repository

import (
	"go.opentelemetry.io/otel/trace"

	"github.com/lodestone-framework/lodestone/framework/metrics"
)

// RefreshPolicy режим синхронизации индекса после записей и удалений
type RefreshPolicy string

const (
	// RefreshImmediate синхронный refresh после каждой записи и удаления.
	// Записи видимы поиску сразу после возврата операции. Режим по умолчанию.
	RefreshImmediate RefreshPolicy = "immediate"

	// RefreshDeferred запись помечает индекс как грязный, refresh выполняется
	// перед следующим поисковым чтением. Серия записей обходится одним refresh.
	RefreshDeferred RefreshPolicy = "deferred"

	// RefreshNone репозиторий не управляет refresh вообще; видимость
	// определяется настройками backend (refresh_interval)
	RefreshNone RefreshPolicy = "none"
)

type options struct {
	policy    RefreshPolicy
	bootstrap bool
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

func defaultOptions() options {
	return options{
		policy:    RefreshImmediate,
		bootstrap: true,
	}
}

// Option настраивает репозиторий при конструировании
type Option func(*options)

// WithRefreshPolicy задает режим синхронизации индекса
func WithRefreshPolicy(policy RefreshPolicy) Option {
	return func(o *options) {
		o.policy = policy
	}
}

// WithoutIndexBootstrap отключает создание индекса и применение mapping
// при конструировании. Используется, когда индексом управляют извне
// (шаблоны, внешние миграции).
func WithoutIndexBootstrap() Option {
	return func(o *options) {
		o.bootstrap = false
	}
}

// WithMetrics подключает сборщик метрик операций
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithTracer подключает OpenTelemetry tracer
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		o.tracer = tracer
	}
}
