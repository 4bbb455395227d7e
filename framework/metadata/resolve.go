// Package metadata связывает тип сущности с именем индекса и правилами
// извлечения идентификатора и версии.
package metadata

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/lodestone-framework/lodestone/framework/core"
)

// TagName имя struct-тега с ролями полей: `search:"id"`, `search:"version"`
const TagName = "search"

// ResolveOption опция разрешения метаданных
type ResolveOption func(*Metadata)

// WithIndexName переопределяет имя индекса
func WithIndexName(name string) ResolveOption {
	return func(m *Metadata) { m.IndexName = name }
}

// WithTypeName переопределяет имя типа документа
func WithTypeName(name string) ResolveOption {
	return func(m *Metadata) { m.TypeName = name }
}

// ReflectProvider провайдер метаданных, выведенный из struct-тегов.
// Разрешение выполняется один раз в Resolve; результат неизменяем.
type ReflectProvider[T any] struct {
	meta         Metadata
	idIndex      []int
	versionIndex []int
	versionPtr   bool
}

// Resolve выводит провайдер метаданных из структуры типа T.
//
// Поле идентификатора - первое поле с тегом `search:"id"`, иначе строковое
// поле с именем ID. Поле версии - первое поле с тегом `search:"version"`
// (int64 или *int64). Имя индекса по умолчанию - snake_case имени типа.
//
// Возвращает ошибку конфигурации, если T не структура или поле идентификатора
// не найдено; в этом случае задайте провайдер явно через NewFuncProvider.
func Resolve[T any](opts ...ResolveOption) (*ReflectProvider[T], error) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if t.Kind() == reflect.Pointer {
		return nil, core.NewError(core.ErrInvalidConfig,
			fmt.Sprintf("entity type %s must be a struct, not a pointer; use the value type as the type argument", t))
	}
	if t.Kind() != reflect.Struct {
		return nil, core.NewError(core.ErrInvalidConfig,
			fmt.Sprintf("unable to resolve metadata for %s: entity type must be a struct, please supply an explicit provider", t))
	}

	p := &ReflectProvider[T]{
		meta: Metadata{
			IndexName: toSnake(t.Name()),
			TypeName:  DefaultTypeName,
		},
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		switch field.Tag.Get(TagName) {
		case "id":
			if field.Type.Kind() != reflect.String {
				return nil, core.NewError(core.ErrInvalidConfig,
					fmt.Sprintf("id field %s.%s must be a string", t.Name(), field.Name))
			}
			if p.idIndex == nil {
				p.idIndex = field.Index
			}
		case "version":
			if err := checkVersionField(t, field); err != nil {
				return nil, err
			}
			if p.versionIndex == nil {
				p.versionIndex = field.Index
				p.versionPtr = field.Type.Kind() == reflect.Pointer
			}
		}
	}

	// Fallback: строковое поле с именем ID
	if p.idIndex == nil {
		if field, ok := t.FieldByName("ID"); ok && field.Type.Kind() == reflect.String {
			p.idIndex = field.Index
		}
	}
	if p.idIndex == nil {
		return nil, core.NewError(core.ErrInvalidConfig,
			fmt.Sprintf("unable to resolve id attribute for %s: tag a string field with `%s:\"id\"` or supply an explicit provider", t.Name(), TagName))
	}

	for _, opt := range opts {
		opt(&p.meta)
	}
	if p.meta.IndexName == "" {
		return nil, core.NewError(core.ErrInvalidConfig, "index name cannot be empty")
	}

	return p, nil
}

func checkVersionField(t reflect.Type, field reflect.StructField) error {
	ft := field.Type
	if ft.Kind() == reflect.Pointer {
		ft = ft.Elem()
	}
	if ft.Kind() != reflect.Int64 {
		return core.NewError(core.ErrInvalidConfig,
			fmt.Sprintf("version field %s.%s must be int64 or *int64", t.Name(), field.Name))
	}
	return nil
}

// Meta возвращает привязку типа к индексу
func (p *ReflectProvider[T]) Meta() Metadata {
	return p.meta
}

// ID извлекает идентификатор сущности
func (p *ReflectProvider[T]) ID(entity T) string {
	return reflect.ValueOf(entity).FieldByIndex(p.idIndex).String()
}

// Version извлекает версию сущности.
// Для поля int64 нулевое значение трактуется как "версия не задана".
func (p *ReflectProvider[T]) Version(entity T) *int64 {
	if p.versionIndex == nil {
		return nil
	}
	v := reflect.ValueOf(entity).FieldByIndex(p.versionIndex)
	if p.versionPtr {
		if v.IsNil() {
			return nil
		}
		version := v.Elem().Int()
		return &version
	}
	version := v.Int()
	if version == 0 {
		return nil
	}
	return &version
}

// AssignID записывает идентификатор обратно в сущность
func (p *ReflectProvider[T]) AssignID(entity *T, id string) error {
	v := reflect.ValueOf(entity).Elem().FieldByIndex(p.idIndex)
	if !v.CanSet() {
		return core.NewError(core.ErrInvalidUsage,
			"id field is not settable")
	}
	v.SetString(id)
	return nil
}

// toSnake переводит CamelCase имя типа в snake_case имя индекса
func toSnake(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (!unicode.IsUpper(runes[i-1]) || (i+1 < len(runes) && !unicode.IsUpper(runes[i+1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
