// Package testing предоставляет утилиты для тестирования приложений на базе фреймворка.
package testing

import (
	"context"
	"testing"

	"github.com/lodestone-framework/lodestone/framework/adapters/search"
	"github.com/lodestone-framework/lodestone/framework/metadata"
	"github.com/lodestone-framework/lodestone/framework/repository"
)

// Environment тестовая среда с готовым in-memory репозиторием
type Environment[T any] struct {
	Provider   metadata.Provider[T]
	Ops        *search.InMemoryOperations[T]
	Repository *repository.SearchRepository[T]
}

// NewEnvironment создает новую тестовую среду для типа T.
// Метаданные выводятся из struct-тегов; если вывод или сборка репозитория
// завершается с ошибкой, тест завершается с t.Fatalf.
func NewEnvironment[T any](t *testing.T, opts ...repository.Option) *Environment[T] {
	provider, err := metadata.Resolve[T]()
	if err != nil {
		t.Fatalf("failed to resolve entity metadata: %v", err)
	}

	ops := search.NewInMemoryOperations[T](search.DefaultInMemoryConfig(), provider.Meta())
	repo, err := repository.New[T](context.Background(), ops, provider, opts...)
	if err != nil {
		t.Fatalf("failed to build test repository: %v", err)
	}

	return &Environment[T]{
		Provider:   provider,
		Ops:        ops,
		Repository: repo,
	}
}

// Seed сохраняет набор сущностей, завершая тест при ошибке
func (e *Environment[T]) Seed(t *testing.T, entities ...T) []T {
	saved, err := e.Repository.SaveAll(context.Background(), entities)
	if err != nil {
		t.Fatalf("failed to seed test data: %v", err)
	}
	return saved
}

// Reset очищает хранилище тестовой среды
func (e *Environment[T]) Reset(t *testing.T) {
	if err := e.Ops.Clear(context.Background()); err != nil {
		t.Fatalf("failed to reset test environment: %v", err)
	}
}
