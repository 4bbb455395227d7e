// Package search предоставляет generic адаптеры для работы с различными search-engine backends.
package search

import (
	"strings"

	"github.com/lodestone-framework/lodestone/framework/core"
	"github.com/lodestone-framework/lodestone/framework/query"
)

// evalPredicate вычисляет предикат над json-представлением документа.
// nil предикат эквивалентен MatchAll.
func evalPredicate(fields map[string]interface{}, id string, p query.Predicate) (bool, error) {
	switch pred := p.(type) {
	case nil:
		return true, nil
	case query.MatchAllPredicate:
		return true, nil
	case query.IDsPredicate:
		for _, v := range pred.Values {
			if v == id {
				return true, nil
			}
		}
		return false, nil
	case query.TermPredicate:
		return termEquals(fieldValue(fields, pred.Field), pred.Value), nil
	case query.MatchPredicate:
		return matchText(fieldValue(fields, pred.Field), pred.Text), nil
	case query.PrefixPredicate:
		str, ok := fieldValue(fields, pred.Field).(string)
		return ok && strings.HasPrefix(str, pred.Prefix), nil
	case query.RangePredicate:
		return matchRange(fieldValue(fields, pred.Field), pred.GTE, pred.LTE), nil
	case query.BoolPredicate:
		return evalBool(fields, id, pred)
	case query.RawPredicate:
		return false, core.NewError(core.ErrUnsupported,
			"raw predicates are backend-native and cannot be evaluated locally")
	default:
		return false, core.NewError(core.ErrUnsupported, "unknown predicate type")
	}
}

func evalBool(fields map[string]interface{}, id string, pred query.BoolPredicate) (bool, error) {
	for _, p := range pred.Must {
		ok, err := evalPredicate(fields, id, p)
		if err != nil || !ok {
			return false, err
		}
	}
	for _, p := range pred.MustNot {
		ok, err := evalPredicate(fields, id, p)
		if err != nil {
			return false, err
		}
		if ok {
			return false, nil
		}
	}
	// Should обязателен только когда нет must-условий
	if len(pred.Should) > 0 && len(pred.Must) == 0 {
		for _, p := range pred.Should {
			ok, err := evalPredicate(fields, id, p)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}
	return true, nil
}

// fieldValue возвращает значение поля; точка в имени спускается по вложенным объектам
func fieldValue(fields map[string]interface{}, name string) interface{} {
	parts := strings.Split(name, ".")
	var current interface{} = fields
	for _, part := range parts {
		obj, ok := current.(map[string]interface{})
		if !ok {
			return nil
		}
		current, ok = obj[part]
		if !ok {
			return nil
		}
	}
	return current
}

// termEquals сравнивает значение поля с искомым с учетом json-числовой модели
func termEquals(field, value interface{}) bool {
	if field == nil {
		return false
	}
	ff, fok := toFloat(field)
	vf, vok := toFloat(value)
	if fok && vok {
		return ff == vf
	}
	if fs, ok := field.(string); ok {
		if vs, ok := value.(string); ok {
			return fs == vs
		}
	}
	if fb, ok := field.(bool); ok {
		if vb, ok := value.(bool); ok {
			return fb == vb
		}
	}
	return false
}

// matchText проверяет, что хотя бы один терм запроса встречается в поле
func matchText(field interface{}, text string) bool {
	str, ok := field.(string)
	if !ok {
		return false
	}
	fieldTerms := make(map[string]bool)
	for _, term := range tokenize(str) {
		fieldTerms[term] = true
	}
	for _, term := range tokenize(text) {
		if fieldTerms[term] {
			return true
		}
	}
	return false
}

func matchRange(field interface{}, gte, lte *float64) bool {
	value, ok := toFloat(field)
	if !ok {
		return false
	}
	if gte != nil && value < *gte {
		return false
	}
	if lte != nil && value > *lte {
		return false
	}
	return true
}

// toFloat приводит json-числа и числовые типы Go к float64
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
