// Package metadata связывает тип сущности с именем индекса и правилами
// извлечения идентификатора и версии.
//
// Провайдер метаданных задается при конструировании репозитория и далее
// неизменяем. Удобный путь - Resolve, который выводит маппинг из struct-тегов;
// явный путь - FuncProvider с функциями извлечения.
package metadata

import (
	"github.com/lodestone-framework/lodestone/framework/core"
)

// DefaultTypeName имя типа документа по умолчанию
const DefaultTypeName = "_doc"

// Metadata связывает тип сущности с индексом
type Metadata struct {
	// IndexName имя индекса, в котором живут документы типа
	IndexName string
	// TypeName имя типа документа внутри индекса
	TypeName string
}

// Provider стратегия извлечения метаданных сущности
type Provider[T any] interface {
	// Meta возвращает привязку типа к индексу
	Meta() Metadata
	// ID извлекает идентификатор сущности ("" если не задан)
	ID(entity T) string
	// Version извлекает optimistic-concurrency версию (nil если не задана)
	Version(entity T) *int64
}

// IDAssigner опциональная способность провайдера записывать идентификатор
// обратно в сущность. Используется репозиторием при сохранении сущности
// без идентификатора.
type IDAssigner[T any] interface {
	AssignID(entity *T, id string) error
}

// FuncProvider провайдер метаданных на основе функций
type FuncProvider[T any] struct {
	Metadata    Metadata
	IDFunc      func(T) string
	VersionFunc func(T) *int64
	AssignFunc  func(*T, string) error
}

// NewFuncProvider создает FuncProvider с обязательной функцией извлечения id
func NewFuncProvider[T any](meta Metadata, idFunc func(T) string) (*FuncProvider[T], error) {
	if meta.IndexName == "" {
		return nil, core.NewError(core.ErrInvalidConfig, "index name cannot be empty")
	}
	if idFunc == nil {
		return nil, core.NewError(core.ErrInvalidConfig, "id extraction function cannot be nil")
	}
	if meta.TypeName == "" {
		meta.TypeName = DefaultTypeName
	}
	return &FuncProvider[T]{Metadata: meta, IDFunc: idFunc}, nil
}

// Meta возвращает привязку типа к индексу
func (p *FuncProvider[T]) Meta() Metadata {
	return p.Metadata
}

// ID извлекает идентификатор сущности
func (p *FuncProvider[T]) ID(entity T) string {
	return p.IDFunc(entity)
}

// Version извлекает версию сущности
func (p *FuncProvider[T]) Version(entity T) *int64 {
	if p.VersionFunc == nil {
		return nil
	}
	return p.VersionFunc(entity)
}

// AssignID записывает идентификатор обратно в сущность
func (p *FuncProvider[T]) AssignID(entity *T, id string) error {
	if p.AssignFunc == nil {
		return core.NewError(core.ErrUnsupported, "provider has no id assignment function")
	}
	return p.AssignFunc(entity, id)
}
