// Package search предоставляет generic адаптеры для работы с различными search-engine backends.
package search

import (
	"context"

	"github.com/lodestone-framework/lodestone/framework/query"
)

// Operations контракт backend-клиента поискового движка.
//
// Каждая операция - один blocking вызов к backend. Ошибки backend
// пробрасываются вызывающему без retry и трансляции.
type Operations[T any] interface {
	// CreateIndex создает индекс сущности, если он еще не существует
	CreateIndex(ctx context.Context) error
	// PutMapping применяет mapping индекса
	PutMapping(ctx context.Context) error
	// Get возвращает документ по идентификатору; (nil, nil) если не найден
	Get(ctx context.Context, q query.Get) (*T, error)
	// Search выполняет поисковый запрос и возвращает страницу результатов
	Search(ctx context.Context, q query.Search) (query.Page[T], error)
	// Count возвращает количество документов, подходящих под запрос
	Count(ctx context.Context, q query.Search) (int64, error)
	// Index записывает один документ
	Index(ctx context.Context, req query.IndexRequest[T]) error
	// BulkIndex записывает набор документов одним bulk-вызовом
	BulkIndex(ctx context.Context, reqs []query.IndexRequest[T]) error
	// DeleteByID удаляет документ по идентификатору
	DeleteByID(ctx context.Context, id string) error
	// DeleteByQuery удаляет все документы, подходящие под предикат
	DeleteByQuery(ctx context.Context, q query.Delete) error
	// MoreLikeThis возвращает документы, похожие на опорный документ
	MoreLikeThis(ctx context.Context, q query.MoreLikeThis) (query.Page[T], error)
	// Refresh делает записанные документы видимыми для последующих поисков
	Refresh(ctx context.Context, wait bool) error
}
