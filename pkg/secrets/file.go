// Copyright 2026 fanjia1024
// Mounted-file secret store (Kubernetes secret volumes, docker secrets)

package secrets

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	pkgerrors "doc-repository/pkg/errors"
)

// DefaultSecretsDir file provider 默认挂载目录
const DefaultSecretsDir = "/etc/secrets"

type fileStore struct {
	dir   string
	mu    sync.RWMutex
	cache map[string]string
}

// NewFileStore 创建挂载目录 secret store：key 为目录下的相对路径，值为文件内容（去掉末尾换行）
func NewFileStore(dir string) Store {
	if dir == "" {
		dir = DefaultSecretsDir
	}
	return &fileStore{dir: dir, cache: make(map[string]string)}
}

func (f *fileStore) Get(_ context.Context, key string) (string, error) {
	if !filepath.IsLocal(key) {
		return "", pkgerrors.InvalidArgf("secret key %q escapes %s", key, f.dir)
	}
	f.mu.RLock()
	if val, ok := f.cache[key]; ok {
		f.mu.RUnlock()
		return val, nil
	}
	f.mu.RUnlock()

	data, err := os.ReadFile(filepath.Join(f.dir, key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", notFound(key)
		}
		return "", err
	}
	val := strings.TrimRight(string(data), "\r\n")
	f.mu.Lock()
	f.cache[key] = val
	f.mu.Unlock()
	return val, nil
}
