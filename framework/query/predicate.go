// Package query предоставляет транзитные query-объекты для поисковых репозиториев.
package query

import "encoding/json"

// Predicate переносимое описание условия поиска.
// Каждый backend-адаптер компилирует Predicate в свой нативный query DSL.
type Predicate interface {
	predicate()
}

// MatchAllPredicate подходит под все документы
type MatchAllPredicate struct{}

func (MatchAllPredicate) predicate() {}

// IDsPredicate фильтр "id входит в множество"
type IDsPredicate struct {
	Values []string
}

func (IDsPredicate) predicate() {}

// TermPredicate точное совпадение значения поля
type TermPredicate struct {
	Field string
	Value interface{}
}

func (TermPredicate) predicate() {}

// MatchPredicate полнотекстовое совпадение по полю
type MatchPredicate struct {
	Field string
	Text  string
}

func (MatchPredicate) predicate() {}

// PrefixPredicate совпадение по префиксу значения поля
type PrefixPredicate struct {
	Field  string
	Prefix string
}

func (PrefixPredicate) predicate() {}

// RangePredicate числовой диапазон; nil граница означает "не ограничено"
type RangePredicate struct {
	Field string
	GTE   *float64
	LTE   *float64
}

func (RangePredicate) predicate() {}

// BoolPredicate логическая комбинация условий
type BoolPredicate struct {
	Must    []Predicate
	Should  []Predicate
	MustNot []Predicate
}

func (BoolPredicate) predicate() {}

// RawPredicate нативный query backend'а как есть, без трансляции.
// Используется для passthrough запросов; локальные адаптеры его не поддерживают.
type RawPredicate struct {
	Source json.RawMessage
}

func (RawPredicate) predicate() {}

// MatchAll создает предикат, подходящий под все документы
func MatchAll() Predicate {
	return MatchAllPredicate{}
}

// IDs создает фильтр по множеству идентификаторов
func IDs(values ...string) Predicate {
	return IDsPredicate{Values: values}
}

// Term создает предикат точного совпадения
func Term(field string, value interface{}) Predicate {
	return TermPredicate{Field: field, Value: value}
}

// Match создает полнотекстовый предикат
func Match(field, text string) Predicate {
	return MatchPredicate{Field: field, Text: text}
}

// Prefix создает префиксный предикат
func Prefix(field, prefix string) Predicate {
	return PrefixPredicate{Field: field, Prefix: prefix}
}

// Range создает диапазонный предикат; nil граница не ограничивает
func Range(field string, gte, lte *float64) Predicate {
	return RangePredicate{Field: field, GTE: gte, LTE: lte}
}

// And комбинирует предикаты через логическое И
func And(predicates ...Predicate) Predicate {
	return BoolPredicate{Must: predicates}
}

// Or комбинирует предикаты через логическое ИЛИ
func Or(predicates ...Predicate) Predicate {
	return BoolPredicate{Should: predicates}
}

// Not инвертирует предикаты
func Not(predicates ...Predicate) Predicate {
	return BoolPredicate{MustNot: predicates}
}

// Raw оборачивает нативный query backend'а
func Raw(source json.RawMessage) Predicate {
	return RawPredicate{Source: source}
}
