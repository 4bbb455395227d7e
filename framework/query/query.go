// Package query предоставляет транзитные query-объекты для поисковых репозиториев.
package query

// Get запрос документа по идентификатору
type Get struct {
	ID string
}

// Search поисковый запрос: предикат плюс страница
type Search struct {
	Predicate Predicate
	Page      PageRequest
}

// NewSearch создает поисковый запрос
func NewSearch(predicate Predicate, page PageRequest) Search {
	return Search{Predicate: predicate, Page: page}
}

// Delete запрос удаления всех документов, подходящих под предикат
type Delete struct {
	Predicate Predicate
}

// MoreLikeThis запрос похожих документов относительно опорного документа
type MoreLikeThis struct {
	// ID опорного документа
	ID string
	// Fields поля, по которым считается похожесть (пусто = все текстовые)
	Fields []string
	// MinTermFreq минимальная частота терма в опорном документе (0 = значение backend по умолчанию)
	MinTermFreq int
	// MinDocFreq минимальная документная частота терма
	MinDocFreq int
	// MaxQueryTerms максимальное число термов в построенном запросе
	MaxQueryTerms int
	// Page запрашиваемая страница
	Page PageRequest
}

// IndexRequest[T] запрос записи одного документа
type IndexRequest[T any] struct {
	// ID идентификатор документа
	ID string
	// Version optimistic-concurrency версия; nil отключает проверку
	Version *int64
	// Entity сам документ
	Entity T
}
