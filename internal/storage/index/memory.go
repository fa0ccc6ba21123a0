// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package index

import (
	"context"
	"sort"
	"sync"
)

// MemoryIndex 内存侧表实现
type MemoryIndex struct {
	entries map[string]map[string]struct{}
	mu      sync.RWMutex
}

// NewMemoryIndex 创建新的内存侧表
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		entries: make(map[string]map[string]struct{}),
	}
}

func entryKey(scope, id string) string {
	return scope + "\x00" + id
}

// Add 记录物理键
func (x *MemoryIndex) Add(ctx context.Context, scope, id, key string) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	k := entryKey(scope, id)
	set, ok := x.entries[k]
	if !ok {
		set = make(map[string]struct{})
		x.entries[k] = set
	}
	set[key] = struct{}{}
	return nil
}

// Remove 移除物理键
func (x *MemoryIndex) Remove(ctx context.Context, scope, id, key string) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	k := entryKey(scope, id)
	set, ok := x.entries[k]
	if !ok {
		return nil
	}
	delete(set, key)
	if len(set) == 0 {
		delete(x.entries, k)
	}
	return nil
}

// Keys 返回物理键列表
func (x *MemoryIndex) Keys(ctx context.Context, scope, id string) ([]string, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	set := x.entries[entryKey(scope, id)]
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

// Close 关闭侧表
func (x *MemoryIndex) Close() error {
	return nil
}
