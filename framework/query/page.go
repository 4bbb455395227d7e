// Package query предоставляет транзитные query-объекты для поисковых репозиториев.
//
// Объекты запросов одноразовые: строятся заново на каждый вызов и никогда
// не кэшируются и не переиспользуются.
package query

// DefaultPageSize размер страницы по умолчанию
const DefaultPageSize = 10

// Sort сортировка по полю
type Sort struct {
	Field string
	Desc  bool
}

// Asc создает сортировку по возрастанию
func Asc(field string) Sort {
	return Sort{Field: field}
}

// Desc создает сортировку по убыванию
func Desc(field string) Sort {
	return Sort{Field: field, Desc: true}
}

// PageRequest описание запрашиваемой страницы (offset, size, сортировка)
type PageRequest struct {
	Offset int
	Size   int
	Sorts  []Sort
}

// DefaultPage возвращает страницу по умолчанию (offset 0, size 10)
func DefaultPage() PageRequest {
	return PageRequest{Offset: 0, Size: DefaultPageSize}
}

// NewPageRequest создает PageRequest с указанными offset и size
func NewPageRequest(offset, size int, sorts ...Sort) PageRequest {
	return PageRequest{Offset: offset, Size: size, Sorts: sorts}
}

// IsZero проверяет, не заполнен ли PageRequest
func (p PageRequest) IsZero() bool {
	return p.Offset == 0 && p.Size == 0 && len(p.Sorts) == 0
}

// Page[T] упорядоченный ограниченный срез результатов с общим количеством
type Page[T any] struct {
	// Items результаты страницы в порядке, определенном backend
	Items []T
	// Total общее количество документов, подходящих под запрос
	Total int64
	// Request страница, которая была запрошена
	Request PageRequest
}

// EmptyPage возвращает пустую страницу с нулевым total
func EmptyPage[T any]() Page[T] {
	return Page[T]{Items: []T{}, Total: 0}
}

// Len возвращает количество элементов на странице
func (p Page[T]) Len() int {
	return len(p.Items)
}

// IsEmpty проверяет, пуста ли страница
func (p Page[T]) IsEmpty() bool {
	return len(p.Items) == 0
}
