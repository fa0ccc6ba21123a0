// Copyright 2026 fanjia1024
// Secret references in configuration

package secrets

import (
	"context"
	"fmt"
	"strings"

	pkgerrors "doc-repository/pkg/errors"
)

// RefPrefix 配置值以此开头时视为密钥引用，例如 secret://blob/dsn
const RefPrefix = "secret://"

// Store 只读密钥源
type Store interface {
	// Get 读取 key 对应的值；不存在时返回可被 errors.Is(err, ErrNotFound) 识别的错误
	Get(ctx context.Context, key string) (string, error)
}

// Config Secret Store 配置
type Config struct {
	Provider string // env | memory | file | vault，空等价于 env
	Address  string // vault 地址
	Token    string // vault token，空则使用 VAULT_TOKEN
	Mount    string // vault KV v2 挂载点，默认 secret
	Dir      string // file provider 的挂载目录，默认 /etc/secrets
}

// NewStore 创建 Secret Store
func NewStore(cfg Config) (Store, error) {
	switch cfg.Provider {
	case "", "env":
		return NewEnvStore(), nil
	case "memory":
		return NewMemoryStore(nil), nil
	case "file", "k8s":
		return NewFileStore(cfg.Dir), nil
	case "vault":
		return NewVaultStore(VaultConfig{Address: cfg.Address, Token: cfg.Token, Mount: cfg.Mount})
	default:
		return nil, fmt.Errorf("unsupported secret provider: %s", cfg.Provider)
	}
}

// IsRef 判断配置值是否为密钥引用
func IsRef(value string) bool {
	return strings.HasPrefix(value, RefPrefix)
}

// Resolve 解析密钥引用；普通值原样返回
func Resolve(ctx context.Context, s Store, value string) (string, error) {
	if !IsRef(value) {
		return value, nil
	}
	key := strings.TrimPrefix(value, RefPrefix)
	if key == "" {
		return "", pkgerrors.InvalidArgf("empty secret reference")
	}
	if s == nil {
		return "", fmt.Errorf("secret reference %q without secret store", value)
	}
	v, err := s.Get(ctx, key)
	if err != nil {
		return "", pkgerrors.Wrapf(err, "resolve secret %s", key)
	}
	return v, nil
}

func notFound(key string) error {
	return pkgerrors.Wrapf(pkgerrors.ErrNotFound, "secret %s", key)
}
