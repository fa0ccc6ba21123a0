// Copyright 2026 fanjia1024
// HashiCorp Vault secret store

package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	vault "github.com/hashicorp/vault/api"
)

// VaultConfig Vault 配置
type VaultConfig struct {
	Address string // Vault server address (e.g., http://vault:8200)，空则使用 VAULT_ADDR
	Token   string // 空则使用 VAULT_TOKEN
	Mount   string // KV v2 mount，默认 secret
}

type vaultStore struct {
	kv *vault.KVv2
}

// NewVaultStore 创建 Vault KV v2 secret store。
// key 形如 path#field，省略 field 时读取 value 字段，没有 value 字段且只有一个字段时返回该字段。
func NewVaultStore(config VaultConfig) (Store, error) {
	cfg := vault.DefaultConfig()
	if cfg.Error != nil {
		return nil, fmt.Errorf("failed to load vault config: %w", cfg.Error)
	}
	if config.Address != "" {
		cfg.Address = config.Address
	}
	client, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if config.Token != "" {
		client.SetToken(config.Token)
	}
	mount := config.Mount
	if mount == "" {
		mount = "secret"
	}
	return &vaultStore{kv: client.KVv2(mount)}, nil
}

func (v *vaultStore) Get(ctx context.Context, key string) (string, error) {
	path, field, hasField := strings.Cut(key, "#")
	secret, err := v.kv.Get(ctx, path)
	if err != nil {
		if errors.Is(err, vault.ErrSecretNotFound) {
			return "", notFound(key)
		}
		return "", fmt.Errorf("failed to read secret from vault: %w", err)
	}
	return pickField(secret.Data, key, field, hasField)
}

func pickField(data map[string]interface{}, key, field string, hasField bool) (string, error) {
	if !hasField {
		field = "value"
	}
	if s, ok := data[field].(string); ok {
		return s, nil
	}
	if !hasField && len(data) == 1 {
		for _, val := range data {
			if s, ok := val.(string); ok {
				return s, nil
			}
		}
	}
	return "", notFound(key)
}
