// Package search предоставляет generic адаптеры для работы с различными search-engine backends.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/lodestone-framework/lodestone/framework/core"
	"github.com/lodestone-framework/lodestone/framework/metadata"
	"github.com/lodestone-framework/lodestone/framework/query"
)

// InMemoryConfig конфигурация для InMemory адаптера
type InMemoryConfig struct {
	// MaxDocuments максимальное количество документов (0 = без ограничений)
	// При достижении лимита Index вернет ошибку
	MaxDocuments int
}

// DefaultInMemoryConfig возвращает конфигурацию InMemory по умолчанию
func DefaultInMemoryConfig() InMemoryConfig {
	return InMemoryConfig{
		MaxDocuments: 0, // Без ограничений по умолчанию
	}
}

// document хранимый документ: сущность плюс ее json-представление для
// вычисления предикатов и сортировки
type document[T any] struct {
	entity T
	fields map[string]interface{}
}

// InMemoryOperations generic in-memory адаптер.
//
// Повторяет модель видимости поискового движка: Get видит запись сразу,
// Search и Count - только после Refresh. Это позволяет наблюдать
// refresh-семантику репозитория в тестах без внешнего кластера.
type InMemoryOperations[T any] struct {
	config     InMemoryConfig
	meta       metadata.Metadata
	live       map[string]*document[T]
	searchable map[string]*document[T]
	mu         sync.RWMutex
}

// NewInMemoryOperations создает новый in-memory адаптер
func NewInMemoryOperations[T any](config InMemoryConfig, meta metadata.Metadata) *InMemoryOperations[T] {
	return &InMemoryOperations[T]{
		config:     config,
		meta:       meta,
		live:       make(map[string]*document[T]),
		searchable: make(map[string]*document[T]),
	}
}

// Name возвращает имя компонента (реализация core.Component)
func (m *InMemoryOperations[T]) Name() string {
	return "inmemory-search"
}

// Type возвращает тип компонента (реализация core.Component)
func (m *InMemoryOperations[T]) Type() core.ComponentType {
	return core.ComponentTypeAdapter
}

// CreateIndex создает индекс (для in-memory адаптера - no-op)
func (m *InMemoryOperations[T]) CreateIndex(ctx context.Context) error {
	return nil
}

// PutMapping применяет mapping (для in-memory адаптера - no-op)
func (m *InMemoryOperations[T]) PutMapping(ctx context.Context) error {
	return nil
}

// Get возвращает документ по идентификатору; (nil, nil) если не найден
func (m *InMemoryOperations[T]) Get(ctx context.Context, q query.Get) (*T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, exists := m.live[q.ID]
	if !exists {
		return nil, nil
	}
	entity := doc.entity
	return &entity, nil
}

// Index записывает документ. Документ становится видимым для Get сразу,
// для Search - после Refresh.
func (m *InMemoryOperations[T]) Index(ctx context.Context, req query.IndexRequest[T]) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.indexLocked(req)
}

// BulkIndex записывает набор документов под одной блокировкой
func (m *InMemoryOperations[T]) BulkIndex(ctx context.Context, reqs []query.IndexRequest[T]) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, req := range reqs {
		if err := m.indexLocked(req); err != nil {
			return err
		}
	}
	return nil
}

func (m *InMemoryOperations[T]) indexLocked(req query.IndexRequest[T]) error {
	id := req.ID
	if id == "" {
		// Как и настоящий движок, генерируем идентификатор документа сами
		id = uuid.NewString()
	}

	if m.config.MaxDocuments > 0 {
		if _, exists := m.live[id]; !exists {
			if len(m.live) >= m.config.MaxDocuments {
				return fmt.Errorf("index limit reached: max %d documents", m.config.MaxDocuments)
			}
		}
	}

	fields, err := entityFields(req.Entity)
	if err != nil {
		return fmt.Errorf("failed to encode document %s: %w", id, err)
	}

	m.live[id] = &document[T]{entity: req.Entity, fields: fields}
	return nil
}

// DeleteByID удаляет документ. Из Get документ пропадает сразу,
// из поисковой выдачи - после Refresh.
func (m *InMemoryOperations[T]) DeleteByID(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.live, id)
	return nil
}

// DeleteByQuery удаляет все документы, подходящие под предикат.
// Предикат вычисляется над searchable-представлением, как в настоящем движке.
func (m *InMemoryOperations[T]) DeleteByQuery(ctx context.Context, q query.Delete) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, doc := range m.searchable {
		ok, err := evalPredicate(doc.fields, id, q.Predicate)
		if err != nil {
			return err
		}
		if ok {
			delete(m.live, id)
		}
	}
	return nil
}

// Count возвращает количество документов, подходящих под запрос
func (m *InMemoryOperations[T]) Count(ctx context.Context, q query.Search) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var count int64
	for id, doc := range m.searchable {
		ok, err := evalPredicate(doc.fields, id, q.Predicate)
		if err != nil {
			return 0, err
		}
		if ok {
			count++
		}
	}
	return count, nil
}

// Search выполняет поисковый запрос над searchable-представлением
func (m *InMemoryOperations[T]) Search(ctx context.Context, q query.Search) (query.Page[T], error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched, err := m.matchLocked(q.Predicate)
	if err != nil {
		return query.EmptyPage[T](), err
	}

	sortHits(matched, q.Page.Sorts)
	return paginate(matched, q.Page), nil
}

// MoreLikeThis возвращает документы, разделяющие термы с опорным документом.
// Упрощенная похожесть: количество общих термов по строковым полям.
// MinTermFreq/MinDocFreq/MaxQueryTerms локальным адаптером игнорируются.
func (m *InMemoryOperations[T]) MoreLikeThis(ctx context.Context, q query.MoreLikeThis) (query.Page[T], error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ref, exists := m.searchable[q.ID]
	if !exists {
		return query.EmptyPage[T](), nil
	}

	refTerms := termSet(ref.fields, q.Fields)
	if len(refTerms) == 0 {
		return query.EmptyPage[T](), nil
	}

	var matched []hit[T]
	for id, doc := range m.searchable {
		if id == q.ID {
			continue
		}
		shared := 0
		for term := range termSet(doc.fields, q.Fields) {
			if refTerms[term] {
				shared++
			}
		}
		if shared > 0 {
			matched = append(matched, hit[T]{id: id, doc: doc, score: float64(shared)})
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].score != matched[j].score {
			return matched[i].score > matched[j].score
		}
		return matched[i].id < matched[j].id
	})

	return paginate(matched, q.Page), nil
}

// Refresh делает записанные и удаленные документы видимыми для поиска
func (m *InMemoryOperations[T]) Refresh(ctx context.Context, wait bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := make(map[string]*document[T], len(m.live))
	for id, doc := range m.live {
		snapshot[id] = doc
	}
	m.searchable = snapshot
	return nil
}

// Clear очищает адаптер (для тестирования)
func (m *InMemoryOperations[T]) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.live = make(map[string]*document[T])
	m.searchable = make(map[string]*document[T])
	return nil
}

// hit промежуточный результат поиска
type hit[T any] struct {
	id    string
	doc   *document[T]
	score float64
}

func (m *InMemoryOperations[T]) matchLocked(p query.Predicate) ([]hit[T], error) {
	var matched []hit[T]
	for id, doc := range m.searchable {
		ok, err := evalPredicate(doc.fields, id, p)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, hit[T]{id: id, doc: doc})
		}
	}
	return matched, nil
}

// paginate применяет offset/size к отсортированным результатам.
// Size <= 0 означает "без ограничения".
func paginate[T any](matched []hit[T], page query.PageRequest) query.Page[T] {
	total := int64(len(matched))

	start := page.Offset
	if start < 0 {
		start = 0
	}
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if page.Size > 0 && start+page.Size < end {
		end = start + page.Size
	}

	items := make([]T, 0, end-start)
	for _, h := range matched[start:end] {
		items = append(items, h.doc.entity)
	}
	return query.Page[T]{Items: items, Total: total, Request: page}
}

// sortHits сортирует результаты по запрошенным полям, по умолчанию по id
func sortHits[T any](matched []hit[T], sorts []query.Sort) {
	sort.Slice(matched, func(i, j int) bool {
		for _, s := range sorts {
			cmp := compareValues(matched[i].doc.fields[s.Field], matched[j].doc.fields[s.Field])
			if cmp == 0 {
				continue
			}
			if s.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return matched[i].id < matched[j].id
	})
}

// compareValues сравнивает значения полей; отсутствующие значения идут последними
func compareValues(a, b interface{}) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return 1
	}
	if b == nil {
		return -1
	}

	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}

	return strings.Compare(fmt.Sprintf("%v", a), fmt.Sprintf("%v", b))
}

// entityFields возвращает json-представление сущности для вычисления предикатов
func entityFields(entity interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(entity)
	if err != nil {
		return nil, err
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// termSet собирает множество термов строковых полей документа.
// Если fields не пуст, учитываются только перечисленные поля.
func termSet(fields map[string]interface{}, only []string) map[string]bool {
	terms := make(map[string]bool)
	for name, value := range fields {
		if len(only) > 0 && !containsString(only, name) {
			continue
		}
		str, ok := value.(string)
		if !ok {
			continue
		}
		for _, term := range tokenize(str) {
			terms[term] = true
		}
	}
	return terms
}

func containsString(values []string, v string) bool {
	for _, value := range values {
		if value == v {
			return true
		}
	}
	return false
}

// tokenize разбивает текст на термы в нижнем регистре
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9') && !('а' <= r && r <= 'я')
	})
}
