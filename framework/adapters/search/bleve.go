// Package search предоставляет generic адаптеры для работы с различными search-engine backends.
package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	bquery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/google/uuid"

	"github.com/lodestone-framework/lodestone/framework/core"
	"github.com/lodestone-framework/lodestone/framework/metadata"
	"github.com/lodestone-framework/lodestone/framework/query"
)

// BleveConfig конфигурация для Bleve адаптера
type BleveConfig struct {
	// Path путь к каталогу индекса; пустой = индекс в памяти
	Path string
}

// DefaultBleveConfig возвращает конфигурацию Bleve по умолчанию
func DefaultBleveConfig() BleveConfig {
	return BleveConfig{}
}

// BleveOperations generic адаптер встраиваемого поискового движка Bleve.
//
// Bleve индексирует документы, но не хранит их исходное представление,
// поэтому адаптер держит параллельное хранилище сущностей для гидрации
// результатов. Хранилище живет в памяти процесса: persistent-сценарии
// обслуживает Elasticsearch адаптер. Записи видимы поиску сразу, Refresh
// для этого адаптера - no-op.
type BleveOperations[T any] struct {
	config BleveConfig
	meta   metadata.Metadata
	index  bleve.Index
	docs   map[string]T
	mu     sync.RWMutex
}

// NewBleveOperations создает новый Bleve адаптер
func NewBleveOperations[T any](config BleveConfig, meta metadata.Metadata) (*BleveOperations[T], error) {
	if meta.IndexName == "" {
		return nil, core.NewError(core.ErrInvalidConfig, "index name cannot be empty")
	}

	mapping := bleve.NewIndexMapping()

	var index bleve.Index
	var err error
	if config.Path == "" {
		index, err = bleve.NewMemOnly(mapping)
	} else {
		index, err = bleve.New(config.Path, mapping)
		if err == bleve.ErrorIndexPathExists {
			index, err = bleve.Open(config.Path)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open bleve index: %w", err)
	}

	return &BleveOperations[T]{
		config: config,
		meta:   meta,
		index:  index,
		docs:   make(map[string]T),
	}, nil
}

// Name возвращает имя компонента (реализация core.Component)
func (b *BleveOperations[T]) Name() string {
	return "bleve-search"
}

// Type возвращает тип компонента (реализация core.Component)
func (b *BleveOperations[T]) Type() core.ComponentType {
	return core.ComponentTypeAdapter
}

// Close закрывает индекс
func (b *BleveOperations[T]) Close() error {
	return b.index.Close()
}

// CreateIndex создает индекс (открывается в конструкторе, поэтому no-op)
func (b *BleveOperations[T]) CreateIndex(ctx context.Context) error {
	return nil
}

// PutMapping применяет mapping (задается при открытии индекса, поэтому no-op)
func (b *BleveOperations[T]) PutMapping(ctx context.Context) error {
	return nil
}

// Get возвращает документ по идентификатору; (nil, nil) если не найден
func (b *BleveOperations[T]) Get(ctx context.Context, q query.Get) (*T, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	entity, exists := b.docs[q.ID]
	if !exists {
		return nil, nil
	}
	return &entity, nil
}

// Index записывает один документ
func (b *BleveOperations[T]) Index(ctx context.Context, req query.IndexRequest[T]) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}

	if err := b.index.Index(id, req.Entity); err != nil {
		return fmt.Errorf("failed to index document %s: %w", id, err)
	}
	b.docs[id] = req.Entity
	return nil
}

// BulkIndex записывает набор документов одним batch
func (b *BleveOperations[T]) BulkIndex(ctx context.Context, reqs []query.IndexRequest[T]) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	batch := b.index.NewBatch()
	ids := make([]string, len(reqs))
	for i, req := range reqs {
		id := req.ID
		if id == "" {
			id = uuid.NewString()
		}
		ids[i] = id
		if err := batch.Index(id, req.Entity); err != nil {
			return fmt.Errorf("failed to add document %s to batch: %w", id, err)
		}
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to execute batch: %w", err)
	}
	for i, req := range reqs {
		b.docs[ids[i]] = req.Entity
	}
	return nil
}

// DeleteByID удаляет документ по идентификатору
func (b *BleveOperations[T]) DeleteByID(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.index.Delete(id); err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	delete(b.docs, id)
	return nil
}

// DeleteByQuery удаляет все документы, подходящие под предикат
func (b *BleveOperations[T]) DeleteByQuery(ctx context.Context, q query.Delete) error {
	ids, _, err := b.searchIDs(ctx, query.Search{Predicate: q.Predicate})
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, id := range ids {
		if err := b.index.Delete(id); err != nil {
			return fmt.Errorf("failed to delete document %s: %w", id, err)
		}
		delete(b.docs, id)
	}
	return nil
}

// Count возвращает количество документов, подходящих под запрос
func (b *BleveOperations[T]) Count(ctx context.Context, q query.Search) (int64, error) {
	compiled, err := b.compile(q.Predicate)
	if err != nil {
		return 0, err
	}

	req := bleve.NewSearchRequestOptions(compiled, 0, 0, false)
	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("failed to count: %w", err)
	}
	return int64(res.Total), nil
}

// Search выполняет поисковый запрос и возвращает страницу результатов
func (b *BleveOperations[T]) Search(ctx context.Context, q query.Search) (query.Page[T], error) {
	ids, total, err := b.searchIDs(ctx, q)
	if err != nil {
		return query.EmptyPage[T](), err
	}
	return b.hydrate(ids, total, q.Page), nil
}

// MoreLikeThis возвращает документы, разделяющие термы с опорным документом.
// Bleve не имеет нативного more-like-this: запрос строится из термов
// строковых полей опорного документа.
func (b *BleveOperations[T]) MoreLikeThis(ctx context.Context, q query.MoreLikeThis) (query.Page[T], error) {
	b.mu.RLock()
	ref, exists := b.docs[q.ID]
	b.mu.RUnlock()
	if !exists {
		return query.EmptyPage[T](), nil
	}

	fields, err := entityFields(ref)
	if err != nil {
		return query.EmptyPage[T](), fmt.Errorf("failed to encode reference document: %w", err)
	}
	terms := termSet(fields, q.Fields)
	if len(terms) == 0 {
		return query.EmptyPage[T](), nil
	}

	sorted := make([]string, 0, len(terms))
	for term := range terms {
		sorted = append(sorted, term)
	}
	sort.Strings(sorted)
	if q.MaxQueryTerms > 0 && len(sorted) > q.MaxQueryTerms {
		sorted = sorted[:q.MaxQueryTerms]
	}

	likeQuery := bleve.NewMatchQuery(strings.Join(sorted, " "))
	boolQuery := bleve.NewBooleanQuery()
	boolQuery.AddMust(likeQuery)
	boolQuery.AddMustNot(bleve.NewDocIDQuery([]string{q.ID}))

	page := q.Page
	size := page.Size
	if size <= 0 {
		size = query.DefaultPageSize
	}
	req := bleve.NewSearchRequestOptions(boolQuery, size, page.Offset, false)
	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return query.EmptyPage[T](), fmt.Errorf("failed to execute similarity search: %w", err)
	}

	ids := make([]string, 0, len(res.Hits))
	for _, h := range res.Hits {
		ids = append(ids, h.ID)
	}
	return b.hydrate(ids, int64(res.Total), page), nil
}

// Refresh для встраиваемого движка no-op: записи видимы сразу
func (b *BleveOperations[T]) Refresh(ctx context.Context, wait bool) error {
	return nil
}

// searchIDs выполняет запрос и возвращает идентификаторы страницы и total
func (b *BleveOperations[T]) searchIDs(ctx context.Context, q query.Search) ([]string, int64, error) {
	compiled, err := b.compile(q.Predicate)
	if err != nil {
		return nil, 0, err
	}

	size := q.Page.Size
	if size <= 0 {
		// Без ограничения: запрашиваем все документы индекса
		count, err := b.index.DocCount()
		if err != nil {
			return nil, 0, fmt.Errorf("failed to get doc count: %w", err)
		}
		size = int(count)
		if size == 0 {
			size = 1
		}
	}

	req := bleve.NewSearchRequestOptions(compiled, size, q.Page.Offset, false)
	if len(q.Page.Sorts) > 0 {
		order := make([]string, 0, len(q.Page.Sorts))
		for _, s := range q.Page.Sorts {
			if s.Desc {
				order = append(order, "-"+s.Field)
			} else {
				order = append(order, s.Field)
			}
		}
		req.SortBy(order)
	}

	res, err := b.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to execute search: %w", err)
	}

	ids := make([]string, 0, len(res.Hits))
	for _, h := range res.Hits {
		ids = append(ids, h.ID)
	}
	return ids, int64(res.Total), nil
}

// hydrate восстанавливает сущности страницы из хранилища документов
func (b *BleveOperations[T]) hydrate(ids []string, total int64, page query.PageRequest) query.Page[T] {
	b.mu.RLock()
	defer b.mu.RUnlock()

	items := make([]T, 0, len(ids))
	for _, id := range ids {
		if entity, exists := b.docs[id]; exists {
			items = append(items, entity)
		}
	}
	return query.Page[T]{Items: items, Total: total, Request: page}
}

// compile транслирует переносимый предикат в bleve query
func (b *BleveOperations[T]) compile(p query.Predicate) (bquery.Query, error) {
	switch pred := p.(type) {
	case nil:
		return bleve.NewMatchAllQuery(), nil
	case query.MatchAllPredicate:
		return bleve.NewMatchAllQuery(), nil
	case query.IDsPredicate:
		return bleve.NewDocIDQuery(pred.Values), nil
	case query.TermPredicate:
		if str, ok := pred.Value.(string); ok {
			tq := bleve.NewTermQuery(str)
			tq.SetField(pred.Field)
			return tq, nil
		}
		value, ok := toFloat(pred.Value)
		if !ok {
			return nil, core.NewError(core.ErrUnsupported,
				fmt.Sprintf("term predicate value type %T is not supported by the bleve adapter", pred.Value))
		}
		inclusive := true
		nq := bleve.NewNumericRangeInclusiveQuery(&value, &value, &inclusive, &inclusive)
		nq.SetField(pred.Field)
		return nq, nil
	case query.MatchPredicate:
		mq := bleve.NewMatchQuery(pred.Text)
		mq.SetField(pred.Field)
		return mq, nil
	case query.PrefixPredicate:
		pq := bleve.NewPrefixQuery(pred.Prefix)
		pq.SetField(pred.Field)
		return pq, nil
	case query.RangePredicate:
		rq := bleve.NewNumericRangeQuery(pred.GTE, pred.LTE)
		rq.SetField(pred.Field)
		return rq, nil
	case query.BoolPredicate:
		bq := bleve.NewBooleanQuery()
		for _, inner := range pred.Must {
			c, err := b.compile(inner)
			if err != nil {
				return nil, err
			}
			bq.AddMust(c)
		}
		for _, inner := range pred.Should {
			c, err := b.compile(inner)
			if err != nil {
				return nil, err
			}
			bq.AddShould(c)
		}
		for _, inner := range pred.MustNot {
			c, err := b.compile(inner)
			if err != nil {
				return nil, err
			}
			bq.AddMustNot(c)
		}
		// Bleve требует хотя бы одно позитивное условие
		if len(pred.Must) == 0 && len(pred.Should) == 0 {
			bq.AddMust(bleve.NewMatchAllQuery())
		}
		return bq, nil
	case query.RawPredicate:
		return nil, core.NewError(core.ErrUnsupported,
			"raw predicates are backend-native and not supported by the bleve adapter")
	default:
		return nil, core.NewError(core.ErrUnsupported, "unknown predicate type")
	}
}
