// Copyright 2026 fanjia1024
// Environment variable secret store

package secrets

import (
	"context"
	"os"
)

type envStore struct{}

// NewEnvStore 创建环境变量 secret store，key 即变量名
func NewEnvStore() Store {
	return envStore{}
}

func (envStore) Get(_ context.Context, key string) (string, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return "", notFound(key)
	}
	return value, nil
}
