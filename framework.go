// Package lodestone предоставляет универсальные компоненты для построения
// сервисов поверх search-engine хранилищ.
//
// Основные возможности:
//   - Generic CRUD+search репозиторий с переносимым языком предикатов
//   - Backend-адаптеры: Elasticsearch, встраиваемый Bleve, in-memory
//   - Metadata-провайдеры для привязки типов сущностей к индексам
//   - Управляемая политика видимости записей (refresh)
//   - Метрики и трейсинг на основе OpenTelemetry
//
// Пример использования:
//
//	ls := lodestone.New()
//	if err := ls.Initialize(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer ls.Shutdown(ctx)
package lodestone

import (
	"context"
	"fmt"

	"github.com/lodestone-framework/lodestone/framework/core"
)

// Version представляет версию фреймворка
const (
	Version = "1.0.0"
	Major   = 1
	Minor   = 0
	Patch   = 0
)

// Metadata содержит метаданные о фреймворке
type Metadata struct {
	Name        string
	Version     string
	Description string
	Author      string
	License     string
}

// GetMetadata возвращает метаданные фреймворка
func GetMetadata() Metadata {
	return Metadata{
		Name:        "Lodestone Framework",
		Version:     Version,
		Description: "Framework for building services on top of search-engine storage",
		Author:      "Lodestone Team",
		License:     "Apache-2.0",
	}
}

// Framework основной интерфейс фреймворка
type Framework interface {
	// Initialize инициализирует фреймворк
	Initialize(ctx context.Context) error
	// Shutdown корректно завершает работу фреймворка
	Shutdown(ctx context.Context) error
	// GetComponent возвращает компонент по имени
	GetComponent(name string) (core.Component, error)
	// RegisterComponent регистрирует компонент
	RegisterComponent(component core.Component) error
}

// BaseFramework базовая реализация фреймворка: реестр компонентов
// (репозиториев и адаптеров) с управлением их жизненным циклом
type BaseFramework struct {
	components map[string]core.Component
	order      []string
	metadata   Metadata
}

// New создает новый экземпляр фреймворка
func New() *BaseFramework {
	return &BaseFramework{
		components: make(map[string]core.Component),
		metadata:   GetMetadata(),
	}
}

// Initialize запускает все компоненты, реализующие core.Lifecycle,
// в порядке регистрации
func (f *BaseFramework) Initialize(ctx context.Context) error {
	for _, name := range f.order {
		if lc, ok := f.components[name].(core.Lifecycle); ok {
			if err := lc.Start(ctx); err != nil {
				return fmt.Errorf("failed to start component %s: %w", name, err)
			}
		}
	}
	return nil
}

// Shutdown останавливает lifecycle-компоненты в обратном порядке
func (f *BaseFramework) Shutdown(ctx context.Context) error {
	var firstErr error
	for i := len(f.order) - 1; i >= 0; i-- {
		if lc, ok := f.components[f.order[i]].(core.Lifecycle); ok {
			if err := lc.Stop(ctx); err != nil && firstErr == nil {
				firstErr = fmt.Errorf("failed to stop component %s: %w", f.order[i], err)
			}
		}
	}
	return firstErr
}

// GetComponent возвращает компонент по имени
func (f *BaseFramework) GetComponent(name string) (core.Component, error) {
	component, exists := f.components[name]
	if !exists {
		return nil, fmt.Errorf("component %s not found", name)
	}
	return component, nil
}

// RegisterComponent регистрирует компонент
func (f *BaseFramework) RegisterComponent(component core.Component) error {
	if _, exists := f.components[component.Name()]; exists {
		return fmt.Errorf("component %s already registered", component.Name())
	}
	f.components[component.Name()] = component
	f.order = append(f.order, component.Name())
	return nil
}

// FrameworkVersion возвращает версию фреймворка
func FrameworkVersion() string {
	return Version
}
