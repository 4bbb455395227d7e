package search

import (
	"testing"
)

func TestCreateOperations_InMemory(t *testing.T) {
	ops, err := CreateOperations[Product](BackendInMemory, nil, testMeta())
	if err != nil {
		t.Fatalf("Failed to create adapter: %v", err)
	}
	if _, ok := ops.(*InMemoryOperations[Product]); !ok {
		t.Errorf("Expected inmemory adapter, got %T", ops)
	}
}

func TestCreateOperations_Bleve(t *testing.T) {
	ops, err := CreateOperations[Product](BackendBleve, nil, testMeta())
	if err != nil {
		t.Fatalf("Failed to create adapter: %v", err)
	}
	if _, ok := ops.(*BleveOperations[Product]); !ok {
		t.Errorf("Expected bleve adapter, got %T", ops)
	}
}

func TestCreateOperations_InvalidConfigType(t *testing.T) {
	_, err := CreateOperations[Product](BackendInMemory, "not a config", testMeta())
	if err == nil {
		t.Error("Expected error for invalid config type")
	}
}

func TestCreateOperations_UnknownBackend(t *testing.T) {
	_, err := CreateOperations[Product]("cassandra", nil, testMeta())
	if err == nil {
		t.Error("Expected error for unknown backend type")
	}
}
