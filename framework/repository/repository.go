// Package repository реализует generic CRUD+search репозиторий поверх
// search-engine backend.
//
// Репозиторий связывает тип сущности с индексом через metadata.Provider и
// транслирует операции хранения в вызовы search.Operations. Контракт чтения:
// отсутствие документа - не ошибка, FindByID возвращает (nil, nil).
// Видимость записей для поиска управляется RefreshPolicy.
package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/lodestone-framework/lodestone/framework/adapters/search"
	"github.com/lodestone-framework/lodestone/framework/core"
	"github.com/lodestone-framework/lodestone/framework/metadata"
	"github.com/lodestone-framework/lodestone/framework/query"
)

// SearchRepository generic репозиторий сущностей типа T
type SearchRepository[T any] struct {
	ops      search.Operations[T]
	provider metadata.Provider[T]
	meta     metadata.Metadata
	opts     options

	// dirty отмечает незакоммиченные записи в режиме RefreshDeferred
	dirty   bool
	dirtyMu sync.Mutex
}

// New создает репозиторий поверх backend-адаптера.
//
// По умолчанию конструктор создает индекс и применяет mapping, если индекса
// еще нет; отключается через WithoutIndexBootstrap.
func New[T any](ctx context.Context, ops search.Operations[T], provider metadata.Provider[T], opts ...Option) (*SearchRepository[T], error) {
	if ops == nil {
		return nil, core.NewError(core.ErrInvalidConfig, "search operations cannot be nil")
	}
	if provider == nil {
		return nil, core.NewError(core.ErrInvalidConfig, "metadata provider cannot be nil")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	switch o.policy {
	case RefreshImmediate, RefreshDeferred, RefreshNone:
	default:
		return nil, core.NewError(core.ErrInvalidConfig,
			fmt.Sprintf("unknown refresh policy: %s", o.policy))
	}

	r := &SearchRepository[T]{
		ops:      ops,
		provider: provider,
		meta:     provider.Meta(),
		opts:     o,
	}

	if o.bootstrap {
		if err := ops.CreateIndex(ctx); err != nil {
			return nil, core.Wrap(err, core.ErrBackendFailure, "failed to create index")
		}
		if err := ops.PutMapping(ctx); err != nil {
			return nil, core.Wrap(err, core.ErrBackendFailure, "failed to put mapping")
		}
	}

	return r, nil
}

// Name возвращает имя компонента (реализация core.Component)
func (r *SearchRepository[T]) Name() string {
	return "search-repository:" + r.meta.IndexName
}

// Type возвращает тип компонента (реализация core.Component)
func (r *SearchRepository[T]) Type() core.ComponentType {
	return core.ComponentTypeRepository
}

// FindByID возвращает сущность по идентификатору; (nil, nil) если не найдена
func (r *SearchRepository[T]) FindByID(ctx context.Context, id string) (*T, error) {
	if id == "" {
		return nil, core.NewError(core.ErrInvalidUsage, "id cannot be empty")
	}

	ctx, finish := r.track(ctx, "FindByID", opRead)
	found, err := r.ops.Get(ctx, query.Get{ID: id})
	finish(err)
	return found, err
}

// Exists проверяет наличие сущности по идентификатору
func (r *SearchRepository[T]) Exists(ctx context.Context, id string) (bool, error) {
	found, err := r.FindByID(ctx, id)
	if err != nil {
		return false, err
	}
	return found != nil, nil
}

// FindAll возвращает все сущности индекса.
//
// Размер выборки определяется предварительным count: между count и
// выборкой конкурентные записи могут добавить документы, которые в
// результат не попадут.
func (r *SearchRepository[T]) FindAll(ctx context.Context) ([]T, error) {
	return r.FindAllSorted(ctx)
}

// FindAllSorted возвращает все сущности индекса в запрошенном порядке
func (r *SearchRepository[T]) FindAllSorted(ctx context.Context, sorts ...query.Sort) ([]T, error) {
	if err := r.syncBeforeSearch(ctx); err != nil {
		return nil, err
	}

	ctx, finish := r.track(ctx, "FindAll", opSearch)
	items, err := r.findAll(ctx, sorts)
	finish(err)
	return items, err
}

func (r *SearchRepository[T]) findAll(ctx context.Context, sorts []query.Sort) ([]T, error) {
	count, err := r.ops.Count(ctx, query.Search{Predicate: query.MatchAll()})
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return []T{}, nil
	}

	page, err := r.ops.Search(ctx, query.Search{
		Predicate: query.MatchAll(),
		Page:      query.NewPageRequest(0, int(count), sorts...),
	})
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

// FindAllPage возвращает страницу сущностей индекса
func (r *SearchRepository[T]) FindAllPage(ctx context.Context, page query.PageRequest) (query.Page[T], error) {
	return r.SearchPage(ctx, query.MatchAll(), page)
}

// FindAllByID возвращает сущности с перечисленными идентификаторами.
// Порядок результатов определяется backend, не порядком аргументов;
// выборка ограничена страницей по умолчанию, count не вычисляется.
func (r *SearchRepository[T]) FindAllByID(ctx context.Context, ids []string) ([]T, error) {
	if ids == nil {
		return nil, core.NewError(core.ErrInvalidUsage, "ids cannot be nil")
	}
	if len(ids) == 0 {
		return []T{}, nil
	}

	if err := r.syncBeforeSearch(ctx); err != nil {
		return nil, err
	}

	ctx, finish := r.track(ctx, "FindAllByID", opSearch)
	page, err := r.ops.Search(ctx, query.Search{
		Predicate: query.IDs(ids...),
		Page:      query.DefaultPage(),
	})
	finish(err)
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

// Count возвращает количество документов в индексе
func (r *SearchRepository[T]) Count(ctx context.Context) (int64, error) {
	if err := r.syncBeforeSearch(ctx); err != nil {
		return 0, err
	}

	ctx, finish := r.track(ctx, "Count", opSearch)
	count, err := r.ops.Count(ctx, query.Search{Predicate: query.MatchAll()})
	finish(err)
	return count, err
}

// Save сохраняет сущность и возвращает ее. Сущности без идентификатора
// назначается сгенерированный uuid: провайдер должен поддерживать
// metadata.IDAssigner, иначе операция отклоняется.
func (r *SearchRepository[T]) Save(ctx context.Context, entity *T) (*T, error) {
	if entity == nil {
		return nil, core.NewError(core.ErrInvalidUsage, "entity cannot be nil")
	}

	id := r.provider.ID(*entity)
	if id == "" {
		assigner, ok := r.provider.(metadata.IDAssigner[T])
		if !ok {
			return nil, core.NewError(core.ErrInvalidUsage,
				"entity has no id and the metadata provider cannot assign one")
		}
		id = uuid.NewString()
		if err := assigner.AssignID(entity, id); err != nil {
			return nil, core.Wrap(err, core.ErrInvalidUsage, "failed to assign generated id")
		}
	}

	ctx, finish := r.track(ctx, "Save", opWrite)
	err := r.ops.Index(ctx, query.IndexRequest[T]{
		ID:      id,
		Version: r.provider.Version(*entity),
		Entity:  *entity,
	})
	finish(err)
	if err != nil {
		return nil, err
	}

	if err := r.syncAfterWrite(ctx); err != nil {
		return nil, err
	}
	return entity, nil
}

// Index сохраняет сущность; синоним Save в терминах поисковых движков
func (r *SearchRepository[T]) Index(ctx context.Context, entity *T) (*T, error) {
	return r.Save(ctx, entity)
}

// SaveAll сохраняет набор сущностей одной bulk-операцией.
// nil и пустой набор отклоняются.
func (r *SearchRepository[T]) SaveAll(ctx context.Context, entities []T) ([]T, error) {
	if len(entities) == 0 {
		return nil, core.NewError(core.ErrInvalidUsage, "entities cannot be nil or empty")
	}

	reqs := make([]query.IndexRequest[T], 0, len(entities))
	for i := range entities {
		id := r.provider.ID(entities[i])
		if id == "" {
			assigner, ok := r.provider.(metadata.IDAssigner[T])
			if !ok {
				return nil, core.NewError(core.ErrInvalidUsage,
					"entity has no id and the metadata provider cannot assign one")
			}
			id = uuid.NewString()
			if err := assigner.AssignID(&entities[i], id); err != nil {
				return nil, core.Wrap(err, core.ErrInvalidUsage, "failed to assign generated id")
			}
		}
		reqs = append(reqs, query.IndexRequest[T]{
			ID:      id,
			Version: r.provider.Version(entities[i]),
			Entity:  entities[i],
		})
	}

	ctx, finish := r.track(ctx, "SaveAll", opWrite)
	err := r.ops.BulkIndex(ctx, reqs)
	finish(err)
	if err != nil {
		return nil, err
	}

	if err := r.syncAfterWrite(ctx); err != nil {
		return nil, err
	}
	return entities, nil
}

// Search возвращает сущности, подходящие под предикат.
//
// Размер выборки определяется count по всему индексу, не по предикату
// (поведение сохранено для совместимости); страница возвращается в том
// виде, в каком ее построил backend.
func (r *SearchRepository[T]) Search(ctx context.Context, predicate query.Predicate) (query.Page[T], error) {
	if err := r.syncBeforeSearch(ctx); err != nil {
		return query.EmptyPage[T](), err
	}

	ctx, finish := r.track(ctx, "Search", opSearch)
	page, err := r.search(ctx, predicate)
	finish(err)
	return page, err
}

func (r *SearchRepository[T]) search(ctx context.Context, predicate query.Predicate) (query.Page[T], error) {
	count, err := r.ops.Count(ctx, query.Search{Predicate: query.MatchAll()})
	if err != nil {
		return query.EmptyPage[T](), err
	}
	if count == 0 {
		return query.EmptyPage[T](), nil
	}

	return r.ops.Search(ctx, query.Search{
		Predicate: predicate,
		Page:      query.NewPageRequest(0, int(count)),
	})
}

// SearchPage возвращает страницу сущностей, подходящих под предикат.
// Total страницы - точное количество совпадений.
func (r *SearchRepository[T]) SearchPage(ctx context.Context, predicate query.Predicate, page query.PageRequest) (query.Page[T], error) {
	if err := r.syncBeforeSearch(ctx); err != nil {
		return query.EmptyPage[T](), err
	}

	ctx, finish := r.track(ctx, "SearchPage", opSearch)
	result, err := r.ops.Search(ctx, query.Search{Predicate: predicate, Page: page})
	finish(err)
	return result, err
}

// SearchQuery выполняет произвольный поисковый запрос. Незаполненная
// страница заменяется страницей по умолчанию.
func (r *SearchRepository[T]) SearchQuery(ctx context.Context, q query.Search) (query.Page[T], error) {
	if q.Page.IsZero() {
		q.Page = query.DefaultPage()
	}

	if err := r.syncBeforeSearch(ctx); err != nil {
		return query.EmptyPage[T](), err
	}

	ctx, finish := r.track(ctx, "SearchQuery", opSearch)
	result, err := r.ops.Search(ctx, q)
	finish(err)
	return result, err
}

// SearchSimilar возвращает страницу по умолчанию сущностей, похожих
// на переданную. Сущность должна иметь идентификатор и быть
// проиндексированной.
func (r *SearchRepository[T]) SearchSimilar(ctx context.Context, entity T, fields []string) (query.Page[T], error) {
	return r.SearchSimilarPage(ctx, entity, fields, query.DefaultPage())
}

// SearchSimilarPage возвращает запрошенную страницу сущностей, похожих
// на переданную
func (r *SearchRepository[T]) SearchSimilarPage(ctx context.Context, entity T, fields []string, page query.PageRequest) (query.Page[T], error) {
	id := r.provider.ID(entity)
	if id == "" {
		return query.EmptyPage[T](), core.NewError(core.ErrInvalidUsage,
			"cannot search for similar entities without an id")
	}

	if err := r.syncBeforeSearch(ctx); err != nil {
		return query.EmptyPage[T](), err
	}

	ctx, finish := r.track(ctx, "SearchSimilar", opSearch)
	result, err := r.ops.MoreLikeThis(ctx, query.MoreLikeThis{
		ID:     id,
		Fields: fields,
		Page:   page,
	})
	finish(err)
	return result, err
}

// DeleteByID удаляет сущность по идентификатору. Удаление отсутствующего
// документа не является ошибкой.
func (r *SearchRepository[T]) DeleteByID(ctx context.Context, id string) error {
	if id == "" {
		return core.NewError(core.ErrInvalidUsage, "id cannot be empty")
	}

	ctx, finish := r.track(ctx, "DeleteByID", opDelete)
	err := r.ops.DeleteByID(ctx, id)
	finish(err)
	if err != nil {
		return err
	}
	return r.syncAfterWrite(ctx)
}

// Delete удаляет сущность. Идентификатор извлекается провайдером метаданных.
func (r *SearchRepository[T]) Delete(ctx context.Context, entity T) error {
	id := r.provider.ID(entity)
	if id == "" {
		return core.NewError(core.ErrInvalidUsage, "cannot delete an entity without an id")
	}
	if err := r.DeleteByID(ctx, id); err != nil {
		return err
	}
	// Исторический контракт: удаление сущности завершается еще одним refresh
	return r.syncAfterWrite(ctx)
}

// DeleteMany удаляет набор сущностей. Сущности удаляются по одной,
// каждая со своим циклом синхронизации.
func (r *SearchRepository[T]) DeleteMany(ctx context.Context, entities []T) error {
	if entities == nil {
		return core.NewError(core.ErrInvalidUsage, "entities cannot be nil")
	}
	for _, entity := range entities {
		if err := r.Delete(ctx, entity); err != nil {
			return err
		}
	}
	return nil
}

// DeleteAll удаляет все документы индекса
func (r *SearchRepository[T]) DeleteAll(ctx context.Context) error {
	ctx, finish := r.track(ctx, "DeleteAll", opDelete)
	err := r.ops.DeleteByQuery(ctx, query.Delete{Predicate: query.MatchAll()})
	finish(err)
	if err != nil {
		return err
	}
	return r.syncAfterWrite(ctx)
}

// DeleteByQuery удаляет все документы, подходящие под предикат
func (r *SearchRepository[T]) DeleteByQuery(ctx context.Context, predicate query.Predicate) error {
	ctx, finish := r.track(ctx, "DeleteByQuery", opDelete)
	err := r.ops.DeleteByQuery(ctx, query.Delete{Predicate: predicate})
	finish(err)
	if err != nil {
		return err
	}
	return r.syncAfterWrite(ctx)
}

// Refresh принудительно делает все записи видимыми для поиска
func (r *SearchRepository[T]) Refresh(ctx context.Context) error {
	if err := r.ops.Refresh(ctx, true); err != nil {
		return core.Wrap(err, core.ErrBackendFailure, "failed to refresh index")
	}
	if r.opts.metrics != nil {
		r.opts.metrics.RecordRefresh(ctx, r.meta.IndexName)
	}
	r.dirtyMu.Lock()
	r.dirty = false
	r.dirtyMu.Unlock()
	return nil
}

// syncAfterWrite применяет RefreshPolicy после записи или удаления
func (r *SearchRepository[T]) syncAfterWrite(ctx context.Context) error {
	switch r.opts.policy {
	case RefreshImmediate:
		return r.Refresh(ctx)
	case RefreshDeferred:
		r.dirtyMu.Lock()
		r.dirty = true
		r.dirtyMu.Unlock()
		return nil
	default:
		return nil
	}
}

// syncBeforeSearch выполняет отложенный refresh перед поисковым чтением
func (r *SearchRepository[T]) syncBeforeSearch(ctx context.Context) error {
	if r.opts.policy != RefreshDeferred {
		return nil
	}
	r.dirtyMu.Lock()
	dirty := r.dirty
	r.dirtyMu.Unlock()
	if !dirty {
		return nil
	}
	return r.Refresh(ctx)
}

// Категории операций для метрик
type opKind int

const (
	opRead opKind = iota
	opSearch
	opWrite
	opDelete
)

// track открывает span и возвращает функцию завершения операции
func (r *SearchRepository[T]) track(ctx context.Context, operation string, kind opKind) (context.Context, func(error)) {
	var span trace.Span
	if r.opts.tracer != nil {
		ctx, span = r.opts.tracer.Start(ctx, "repository."+operation)
	}
	if r.opts.metrics != nil {
		r.opts.metrics.IncrementActiveOperations(ctx)
	}
	start := time.Now()

	return ctx, func(err error) {
		if r.opts.metrics != nil {
			duration := time.Since(start)
			success := err == nil
			switch kind {
			case opRead:
				r.opts.metrics.RecordRead(ctx, r.meta.IndexName, duration, success)
			case opSearch:
				r.opts.metrics.RecordSearch(ctx, r.meta.IndexName, duration, success)
			case opWrite:
				r.opts.metrics.RecordWrite(ctx, r.meta.IndexName, duration, success)
			case opDelete:
				r.opts.metrics.RecordDelete(ctx, r.meta.IndexName, duration, success)
			}
			r.opts.metrics.DecrementActiveOperations(ctx)
		}
		if span != nil {
			if err != nil {
				span.RecordError(err)
			}
			span.End()
		}
	}
}
