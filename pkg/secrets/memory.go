// Copyright 2026 fanjia1024
// In-memory secret store (for development only)

package secrets

import (
	"context"
	"maps"
	"sync"
)

// MemoryStore 内存 secret store，测试与本地开发使用
type MemoryStore struct {
	mu      sync.RWMutex
	secrets map[string]string
}

// NewMemoryStore 创建内存 secret store，initial 会被复制
func NewMemoryStore(initial map[string]string) *MemoryStore {
	m := &MemoryStore{secrets: make(map[string]string, len(initial))}
	maps.Copy(m.secrets, initial)
	return m
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	value, ok := m.secrets[key]
	if !ok {
		return "", notFound(key)
	}
	return value, nil
}

// Set 设置 secret 值
func (m *MemoryStore) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secrets[key] = value
}
