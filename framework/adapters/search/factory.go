// Package search предоставляет generic адаптеры для работы с различными search-engine backends.
package search

import (
	"fmt"

	"github.com/lodestone-framework/lodestone/framework/metadata"
)

// Типы встроенных backend-адаптеров
const (
	BackendInMemory      = "inmemory"
	BackendBleve         = "bleve"
	BackendElasticsearch = "elasticsearch"
)

// CreateOperations создает backend-адаптер указанного типа.
//
// nil config подставляет конфигурацию адаптера по умолчанию; config
// неподходящего типа - ошибка.
func CreateOperations[T any](backendType string, config interface{}, meta metadata.Metadata) (Operations[T], error) {
	switch backendType {
	case BackendInMemory:
		cfg := DefaultInMemoryConfig()
		if config != nil {
			typed, ok := config.(InMemoryConfig)
			if !ok {
				return nil, fmt.Errorf("invalid inmemory config type: %T", config)
			}
			cfg = typed
		}
		return NewInMemoryOperations[T](cfg, meta), nil

	case BackendBleve:
		cfg := DefaultBleveConfig()
		if config != nil {
			typed, ok := config.(BleveConfig)
			if !ok {
				return nil, fmt.Errorf("invalid bleve config type: %T", config)
			}
			cfg = typed
		}
		return NewBleveOperations[T](cfg, meta)

	case BackendElasticsearch:
		cfg, ok := config.(ElasticsearchConfig)
		if !ok {
			return nil, fmt.Errorf("invalid elasticsearch config type: %T", config)
		}
		return NewElasticsearchOperations[T](cfg, meta)

	default:
		return nil, fmt.Errorf("unknown search backend type: %s", backendType)
	}
}
