package metadata

import (
	"testing"

	"github.com/lodestone-framework/lodestone/framework/core"
)

// Article для тестирования разрешения по тегам
type Article struct {
	DocID    string `search:"id" json:"doc_id"`
	Title    string `json:"title"`
	Revision int64  `search:"version" json:"revision"`
}

// UserProfile для тестирования fallback на поле ID
type UserProfile struct {
	ID   string
	Name string
}

// NoIdentifier структура без поля идентификатора
type NoIdentifier struct {
	Name string
}

func TestResolve_Tagged(t *testing.T) {
	provider, err := Resolve[Article]()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	meta := provider.Meta()
	if meta.IndexName != "article" {
		t.Errorf("Expected index 'article', got %s", meta.IndexName)
	}
	if meta.TypeName != DefaultTypeName {
		t.Errorf("Expected type %s, got %s", DefaultTypeName, meta.TypeName)
	}

	entity := Article{DocID: "a-1", Title: "Title"}
	if provider.ID(entity) != "a-1" {
		t.Errorf("Expected id 'a-1', got %s", provider.ID(entity))
	}
}

func TestResolve_IDFallback(t *testing.T) {
	provider, err := Resolve[UserProfile]()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if provider.Meta().IndexName != "user_profile" {
		t.Errorf("Expected index 'user_profile', got %s", provider.Meta().IndexName)
	}

	entity := UserProfile{ID: "u-1", Name: "John"}
	if provider.ID(entity) != "u-1" {
		t.Errorf("Expected id 'u-1', got %s", provider.ID(entity))
	}
}

func TestResolve_NoIdentifier(t *testing.T) {
	_, err := Resolve[NoIdentifier]()
	if err == nil {
		t.Fatal("Expected error for struct without id field")
	}
	if !core.IsCode(err, core.ErrInvalidConfig) {
		t.Errorf("Expected INVALID_CONFIG, got %v", err)
	}
}

func TestResolve_NotAStruct(t *testing.T) {
	_, err := Resolve[int]()
	if err == nil {
		t.Fatal("Expected error for non-struct entity type")
	}
	if !core.IsCode(err, core.ErrInvalidConfig) {
		t.Errorf("Expected INVALID_CONFIG, got %v", err)
	}
}

func TestResolve_PointerType(t *testing.T) {
	_, err := Resolve[*Article]()
	if err == nil {
		t.Fatal("Expected error for pointer entity type")
	}
}

func TestResolve_Overrides(t *testing.T) {
	provider, err := Resolve[Article](WithIndexName("articles-v2"), WithTypeName("article"))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	meta := provider.Meta()
	if meta.IndexName != "articles-v2" {
		t.Errorf("Expected index 'articles-v2', got %s", meta.IndexName)
	}
	if meta.TypeName != "article" {
		t.Errorf("Expected type 'article', got %s", meta.TypeName)
	}
}

func TestReflectProvider_Version(t *testing.T) {
	provider, err := Resolve[Article]()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	// Нулевая версия трактуется как "не задана"
	if v := provider.Version(Article{DocID: "a-1"}); v != nil {
		t.Errorf("Expected nil version, got %d", *v)
	}

	v := provider.Version(Article{DocID: "a-1", Revision: 7})
	if v == nil || *v != 7 {
		t.Errorf("Expected version 7, got %v", v)
	}
}

func TestReflectProvider_AssignID(t *testing.T) {
	provider, err := Resolve[Article]()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	entity := Article{Title: "Untitled"}
	if err := provider.AssignID(&entity, "generated-1"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if entity.DocID != "generated-1" {
		t.Errorf("Expected assigned id, got %s", entity.DocID)
	}
}

func TestFuncProvider(t *testing.T) {
	provider, err := NewFuncProvider[UserProfile](
		Metadata{IndexName: "profiles"},
		func(u UserProfile) string { return u.ID },
	)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if provider.Meta().TypeName != DefaultTypeName {
		t.Errorf("Expected default type name, got %s", provider.Meta().TypeName)
	}
	if provider.ID(UserProfile{ID: "u-1"}) != "u-1" {
		t.Error("Expected id extraction via function")
	}
	if provider.Version(UserProfile{ID: "u-1"}) != nil {
		t.Error("Expected nil version without version function")
	}

	entity := UserProfile{}
	if err := provider.AssignID(&entity, "x"); err == nil {
		t.Error("Expected error for provider without assignment function")
	}
}

func TestFuncProvider_Validation(t *testing.T) {
	if _, err := NewFuncProvider[UserProfile](Metadata{}, func(u UserProfile) string { return u.ID }); err == nil {
		t.Error("Expected error for empty index name")
	}
	if _, err := NewFuncProvider[UserProfile](Metadata{IndexName: "profiles"}, nil); err == nil {
		t.Error("Expected error for nil id function")
	}
}
