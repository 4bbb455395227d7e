// Package search предоставляет generic адаптеры для работы с различными search-engine backends.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/lodestone-framework/lodestone/framework/core"
	"github.com/lodestone-framework/lodestone/framework/metadata"
	"github.com/lodestone-framework/lodestone/framework/query"
)

// ElasticsearchConfig конфигурация для Elasticsearch адаптера
type ElasticsearchConfig struct {
	Addresses []string
	Username  string
	Password  string
	// Mapping JSON маппинга индекса; пустой = dynamic mapping
	Mapping json.RawMessage
	// Settings JSON настроек индекса, применяется при создании
	Settings json.RawMessage
}

// Validate проверяет корректность конфигурации
func (c ElasticsearchConfig) Validate() error {
	if len(c.Addresses) == 0 {
		return fmt.Errorf("addresses cannot be empty")
	}
	return nil
}

// DefaultElasticsearchConfig возвращает конфигурацию Elasticsearch по умолчанию
func DefaultElasticsearchConfig() ElasticsearchConfig {
	return ElasticsearchConfig{
		Addresses: []string{"http://localhost:9200"},
	}
}

// ElasticsearchOperations generic Elasticsearch адаптер.
//
// Транслирует переносимые query-объекты в Elasticsearch query DSL и
// выполняет их через esapi клиент. Версия документа отображается на
// external versioning движка.
type ElasticsearchOperations[T any] struct {
	config ElasticsearchConfig
	client *elasticsearch.Client
	meta   metadata.Metadata
}

// NewElasticsearchOperations создает новый Elasticsearch адаптер
func NewElasticsearchOperations[T any](config ElasticsearchConfig, meta metadata.Metadata) (*ElasticsearchOperations[T], error) {
	if err := config.Validate(); err != nil {
		return nil, core.Wrap(err, core.ErrInvalidConfig, "invalid elasticsearch config")
	}
	if meta.IndexName == "" {
		return nil, core.NewError(core.ErrInvalidConfig, "index name cannot be empty")
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: config.Addresses,
		Username:  config.Username,
		Password:  config.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	return &ElasticsearchOperations[T]{
		config: config,
		client: client,
		meta:   meta,
	}, nil
}

// Name возвращает имя компонента (реализация core.Component)
func (e *ElasticsearchOperations[T]) Name() string {
	return "elasticsearch-search"
}

// Type возвращает тип компонента (реализация core.Component)
func (e *ElasticsearchOperations[T]) Type() core.ComponentType {
	return core.ComponentTypeAdapter
}

// HealthCheck проверяет доступность кластера (реализация core.HealthCheckable)
func (e *ElasticsearchOperations[T]) HealthCheck(ctx context.Context) error {
	res, err := e.client.Ping(e.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to ping elasticsearch: %w", err)
	}
	defer res.Body.Close()
	return responseError(res)
}

// CreateIndex создает индекс сущности, если он еще не существует
func (e *ElasticsearchOperations[T]) CreateIndex(ctx context.Context) error {
	res, err := e.client.Indices.Exists(
		[]string{e.meta.IndexName},
		e.client.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to check index %s: %w", e.meta.IndexName, err)
	}
	defer res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	opts := []func(*esapi.IndicesCreateRequest){
		e.client.Indices.Create.WithContext(ctx),
	}
	if len(e.config.Settings) > 0 {
		body, err := json.Marshal(map[string]json.RawMessage{"settings": e.config.Settings})
		if err != nil {
			return fmt.Errorf("failed to encode index settings: %w", err)
		}
		opts = append(opts, e.client.Indices.Create.WithBody(bytes.NewReader(body)))
	}

	created, err := e.client.Indices.Create(e.meta.IndexName, opts...)
	if err != nil {
		return fmt.Errorf("failed to create index %s: %w", e.meta.IndexName, err)
	}
	defer created.Body.Close()
	return responseError(created)
}

// PutMapping применяет сконфигурированный mapping индекса
func (e *ElasticsearchOperations[T]) PutMapping(ctx context.Context) error {
	if len(e.config.Mapping) == 0 {
		return nil
	}

	res, err := e.client.Indices.PutMapping(
		[]string{e.meta.IndexName},
		bytes.NewReader(e.config.Mapping),
		e.client.Indices.PutMapping.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to put mapping for %s: %w", e.meta.IndexName, err)
	}
	defer res.Body.Close()
	return responseError(res)
}

// Get возвращает документ по идентификатору; (nil, nil) если не найден
func (e *ElasticsearchOperations[T]) Get(ctx context.Context, q query.Get) (*T, error) {
	res, err := e.client.Get(e.meta.IndexName, q.ID, e.client.Get.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s: %w", q.ID, err)
	}
	defer res.Body.Close()

	if res.StatusCode == 404 {
		return nil, nil
	}
	if err := responseError(res); err != nil {
		return nil, err
	}

	var envelope struct {
		Found  bool            `json:"found"`
		Source json.RawMessage `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode get response: %w", err)
	}
	if !envelope.Found {
		return nil, nil
	}

	var entity T
	if err := json.Unmarshal(envelope.Source, &entity); err != nil {
		return nil, fmt.Errorf("failed to decode document %s: %w", q.ID, err)
	}
	return &entity, nil
}

// Search выполняет поисковый запрос и возвращает страницу результатов
func (e *ElasticsearchOperations[T]) Search(ctx context.Context, q query.Search) (query.Page[T], error) {
	body, err := searchBody(q)
	if err != nil {
		return query.EmptyPage[T](), err
	}

	res, err := e.client.Search(
		e.client.Search.WithContext(ctx),
		e.client.Search.WithIndex(e.meta.IndexName),
		e.client.Search.WithBody(bytes.NewReader(body)),
		e.client.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return query.EmptyPage[T](), fmt.Errorf("failed to execute search: %w", err)
	}
	defer res.Body.Close()

	return decodeSearchResponse[T](res, q.Page)
}

// Count возвращает количество документов, подходящих под запрос
func (e *ElasticsearchOperations[T]) Count(ctx context.Context, q query.Search) (int64, error) {
	compiled, err := compileES(q.Predicate)
	if err != nil {
		return 0, err
	}
	body, err := json.Marshal(map[string]interface{}{"query": compiled})
	if err != nil {
		return 0, fmt.Errorf("failed to encode count query: %w", err)
	}

	res, err := e.client.Count(
		e.client.Count.WithContext(ctx),
		e.client.Count.WithIndex(e.meta.IndexName),
		e.client.Count.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to count: %w", err)
	}
	defer res.Body.Close()
	if err := responseError(res); err != nil {
		return 0, err
	}

	var envelope struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		return 0, fmt.Errorf("failed to decode count response: %w", err)
	}
	return envelope.Count, nil
}

// Index записывает один документ
func (e *ElasticsearchOperations[T]) Index(ctx context.Context, req query.IndexRequest[T]) error {
	doc, err := json.Marshal(req.Entity)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	opts := []func(*esapi.IndexRequest){
		e.client.Index.WithContext(ctx),
	}
	if req.ID != "" {
		opts = append(opts, e.client.Index.WithDocumentID(req.ID))
	}
	if req.Version != nil {
		opts = append(opts,
			e.client.Index.WithVersion(int(*req.Version)),
			e.client.Index.WithVersionType("external"),
		)
	}

	res, err := e.client.Index(e.meta.IndexName, bytes.NewReader(doc), opts...)
	if err != nil {
		return fmt.Errorf("failed to index document %s: %w", req.ID, err)
	}
	defer res.Body.Close()
	return responseError(res)
}

// BulkIndex записывает набор документов одним bulk-вызовом
func (e *ElasticsearchOperations[T]) BulkIndex(ctx context.Context, reqs []query.IndexRequest[T]) error {
	var buf bytes.Buffer
	for _, req := range reqs {
		action := map[string]map[string]interface{}{
			"index": {"_index": e.meta.IndexName},
		}
		if req.ID != "" {
			action["index"]["_id"] = req.ID
		}
		if req.Version != nil {
			action["index"]["version"] = *req.Version
			action["index"]["version_type"] = "external"
		}
		meta, err := json.Marshal(action)
		if err != nil {
			return fmt.Errorf("failed to encode bulk action: %w", err)
		}
		doc, err := json.Marshal(req.Entity)
		if err != nil {
			return fmt.Errorf("failed to encode document %s: %w", req.ID, err)
		}
		buf.Write(meta)
		buf.WriteByte('\n')
		buf.Write(doc)
		buf.WriteByte('\n')
	}

	res, err := e.client.Bulk(bytes.NewReader(buf.Bytes()), e.client.Bulk.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to execute bulk: %w", err)
	}
	defer res.Body.Close()
	if err := responseError(res); err != nil {
		return err
	}

	var envelope struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode bulk response: %w", err)
	}
	if envelope.Errors {
		return core.NewError(core.ErrBackendFailure, "bulk indexing completed with item failures")
	}
	return nil
}

// DeleteByID удаляет документ по идентификатору.
// Отсутствие документа не считается ошибкой.
func (e *ElasticsearchOperations[T]) DeleteByID(ctx context.Context, id string) error {
	res, err := e.client.Delete(e.meta.IndexName, id, e.client.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	defer res.Body.Close()
	if res.StatusCode == 404 {
		return nil
	}
	return responseError(res)
}

// DeleteByQuery удаляет все документы, подходящие под предикат
func (e *ElasticsearchOperations[T]) DeleteByQuery(ctx context.Context, q query.Delete) error {
	compiled, err := compileES(q.Predicate)
	if err != nil {
		return err
	}
	body, err := json.Marshal(map[string]interface{}{"query": compiled})
	if err != nil {
		return fmt.Errorf("failed to encode delete query: %w", err)
	}

	res, err := e.client.DeleteByQuery(
		[]string{e.meta.IndexName},
		bytes.NewReader(body),
		e.client.DeleteByQuery.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to delete by query: %w", err)
	}
	defer res.Body.Close()
	return responseError(res)
}

// MoreLikeThis возвращает документы, похожие на опорный документ
func (e *ElasticsearchOperations[T]) MoreLikeThis(ctx context.Context, q query.MoreLikeThis) (query.Page[T], error) {
	mlt := map[string]interface{}{
		"like": []map[string]interface{}{
			{"_index": e.meta.IndexName, "_id": q.ID},
		},
	}
	if len(q.Fields) > 0 {
		mlt["fields"] = q.Fields
	}
	if q.MinTermFreq > 0 {
		mlt["min_term_freq"] = q.MinTermFreq
	}
	if q.MinDocFreq > 0 {
		mlt["min_doc_freq"] = q.MinDocFreq
	}
	if q.MaxQueryTerms > 0 {
		mlt["max_query_terms"] = q.MaxQueryTerms
	}

	body := map[string]interface{}{
		"query": map[string]interface{}{"more_like_this": mlt},
		"from":  q.Page.Offset,
	}
	if q.Page.Size > 0 {
		body["size"] = q.Page.Size
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return query.EmptyPage[T](), fmt.Errorf("failed to encode more_like_this query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithContext(ctx),
		e.client.Search.WithIndex(e.meta.IndexName),
		e.client.Search.WithBody(bytes.NewReader(encoded)),
		e.client.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return query.EmptyPage[T](), fmt.Errorf("failed to execute more_like_this: %w", err)
	}
	defer res.Body.Close()

	return decodeSearchResponse[T](res, q.Page)
}

// Refresh делает записанные документы видимыми для последующих поисков
func (e *ElasticsearchOperations[T]) Refresh(ctx context.Context, wait bool) error {
	res, err := e.client.Indices.Refresh(
		e.client.Indices.Refresh.WithContext(ctx),
		e.client.Indices.Refresh.WithIndex(e.meta.IndexName),
	)
	if err != nil {
		return fmt.Errorf("failed to refresh index %s: %w", e.meta.IndexName, err)
	}
	defer res.Body.Close()
	return responseError(res)
}

// searchBody строит тело поискового запроса
func searchBody(q query.Search) ([]byte, error) {
	compiled, err := compileES(q.Predicate)
	if err != nil {
		return nil, err
	}

	body := map[string]interface{}{
		"query": compiled,
		"from":  q.Page.Offset,
	}
	if q.Page.Size > 0 {
		body["size"] = q.Page.Size
	}
	if len(q.Page.Sorts) > 0 {
		sorts := make([]map[string]interface{}, 0, len(q.Page.Sorts))
		for _, s := range q.Page.Sorts {
			order := "asc"
			if s.Desc {
				order = "desc"
			}
			sorts = append(sorts, map[string]interface{}{s.Field: map[string]string{"order": order}})
		}
		body["sort"] = sorts
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode search query: %w", err)
	}
	return encoded, nil
}

// compileES транслирует переносимый предикат в Elasticsearch query DSL
func compileES(p query.Predicate) (interface{}, error) {
	switch pred := p.(type) {
	case nil:
		return map[string]interface{}{"match_all": map[string]interface{}{}}, nil
	case query.MatchAllPredicate:
		return map[string]interface{}{"match_all": map[string]interface{}{}}, nil
	case query.IDsPredicate:
		return map[string]interface{}{
			"ids": map[string]interface{}{"values": pred.Values},
		}, nil
	case query.TermPredicate:
		return map[string]interface{}{
			"term": map[string]interface{}{pred.Field: map[string]interface{}{"value": pred.Value}},
		}, nil
	case query.MatchPredicate:
		return map[string]interface{}{
			"match": map[string]interface{}{pred.Field: pred.Text},
		}, nil
	case query.PrefixPredicate:
		return map[string]interface{}{
			"prefix": map[string]interface{}{pred.Field: pred.Prefix},
		}, nil
	case query.RangePredicate:
		bounds := map[string]interface{}{}
		if pred.GTE != nil {
			bounds["gte"] = *pred.GTE
		}
		if pred.LTE != nil {
			bounds["lte"] = *pred.LTE
		}
		return map[string]interface{}{
			"range": map[string]interface{}{pred.Field: bounds},
		}, nil
	case query.BoolPredicate:
		clause := map[string]interface{}{}
		for name, preds := range map[string][]query.Predicate{
			"must": pred.Must, "should": pred.Should, "must_not": pred.MustNot,
		} {
			if len(preds) == 0 {
				continue
			}
			compiled := make([]interface{}, 0, len(preds))
			for _, inner := range preds {
				c, err := compileES(inner)
				if err != nil {
					return nil, err
				}
				compiled = append(compiled, c)
			}
			clause[name] = compiled
		}
		return map[string]interface{}{"bool": clause}, nil
	case query.RawPredicate:
		var raw map[string]interface{}
		if err := json.Unmarshal(pred.Source, &raw); err != nil {
			return nil, core.Wrap(err, core.ErrInvalidUsage, "raw predicate is not valid JSON")
		}
		return raw, nil
	default:
		return nil, core.NewError(core.ErrUnsupported, "unknown predicate type")
	}
}

// decodeSearchResponse разбирает ответ поиска в страницу сущностей
func decodeSearchResponse[T any](res *esapi.Response, page query.PageRequest) (query.Page[T], error) {
	if err := responseError(res); err != nil {
		return query.EmptyPage[T](), err
	}

	var envelope struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source json.RawMessage `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&envelope); err != nil {
		return query.EmptyPage[T](), fmt.Errorf("failed to decode search response: %w", err)
	}

	items := make([]T, 0, len(envelope.Hits.Hits))
	for _, h := range envelope.Hits.Hits {
		var entity T
		if err := json.Unmarshal(h.Source, &entity); err != nil {
			return query.EmptyPage[T](), fmt.Errorf("failed to decode hit: %w", err)
		}
		items = append(items, entity)
	}

	return query.Page[T]{Items: items, Total: envelope.Hits.Total.Value, Request: page}, nil
}

// responseError превращает ошибочный HTTP статус в ошибку backend
func responseError(res *esapi.Response) error {
	if !res.IsError() {
		return nil
	}
	return core.NewError(core.ErrBackendFailure, fmt.Sprintf("elasticsearch responded with %s", res.Status()))
}
