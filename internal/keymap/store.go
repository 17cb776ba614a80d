package keymap

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"sync"
)

// StorageKey is the fixed key of the persisted shortcut document.
const StorageKey = "shortcut-storage"

// Document is the persisted layout: one logical document holding every
// binding. Keys unknown to this build are preserved on save.
type Document struct {
	Shortcuts map[string]string `json:"shortcuts"`
}

// Store is the save/load port for the shortcut document. Load returns an
// empty document when nothing has been persisted yet.
type Store interface {
	Load(ctx context.Context) (Document, error)
	Save(ctx context.Context, doc Document) error
}

// ValueStore is a durable byte-oriented key/value store.
type ValueStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
}

// KVStore persists the document as JSON under StorageKey in a ValueStore.
type KVStore struct {
	KV ValueStore
}

// NewKVStore wraps kv.
func NewKVStore(kv ValueStore) *KVStore {
	return &KVStore{KV: kv}
}

func (s *KVStore) Load(ctx context.Context) (Document, error) {
	raw, ok, err := s.KV.Get(ctx, StorageKey)
	if err != nil {
		return Document{}, fmt.Errorf("load shortcut document: %w", err)
	}
	if !ok || len(raw) == 0 {
		return Document{}, nil
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Document{}, fmt.Errorf("decode shortcut document: %w", err)
	}
	return doc, nil
}

func (s *KVStore) Save(ctx context.Context, doc Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode shortcut document: %w", err)
	}
	if err := s.KV.Put(ctx, StorageKey, raw); err != nil {
		return fmt.Errorf("save shortcut document: %w", err)
	}
	return nil
}

// MemoryStore keeps the document in process memory.
type MemoryStore struct {
	mu  sync.Mutex
	doc Document
	// Saves counts successful Save calls.
	Saves int
}

func (m *MemoryStore) Load(context.Context) (Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Document{Shortcuts: maps.Clone(m.doc.Shortcuts)}, nil
}

func (m *MemoryStore) Save(_ context.Context, doc Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doc = Document{Shortcuts: maps.Clone(doc.Shortcuts)}
	m.Saves++
	return nil
}
