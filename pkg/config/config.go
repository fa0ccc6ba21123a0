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

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// DefaultConfigPath CLI 未指定时使用的配置文件
const DefaultConfigPath = "configs/docrepo.yaml"

// Config 应用配置结构体
type Config struct {
	Repository RepositoryConfig `mapstructure:"repository"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Secrets    SecretsConfig    `mapstructure:"secrets"`
	Log        LogConfig        `mapstructure:"log"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// RepositoryConfig 文档仓库作用域与调优参数
type RepositoryConfig struct {
	Bucket          string  `mapstructure:"bucket"`           // 必填；为空时回退到 storage.object.bucket
	Prefix          string  `mapstructure:"prefix"`           // 可选，规范化为以单个 / 结尾
	ListConcurrency int     `mapstructure:"list_concurrency"` // list 拉取正文的并发上限，<=0 使用默认 8
	RateLimit       float64 `mapstructure:"rate_limit"`       // 每秒读请求上限，<=0 不限流
	Burst           int     `mapstructure:"burst"`            // 限流突发，<=0 时取 list_concurrency
}

// StorageConfig 存储配置
type StorageConfig struct {
	Object ObjectConfig `mapstructure:"object"`
	Index  IndexConfig  `mapstructure:"index"`
}

// ObjectConfig 对象存储配置
type ObjectConfig struct {
	Type      string `mapstructure:"type"` // memory | postgres | s3
	Endpoint  string `mapstructure:"endpoint"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	DSN       string `mapstructure:"dsn"`        // Postgres 连接串，type=postgres 时必填
	PageSize  int    `mapstructure:"page_size"`  // 单页列举条数，<=0 使用后端默认
	PathStyle bool   `mapstructure:"path_style"` // S3 兼容存储（MinIO 等）使用 path-style 寻址
}

// IndexConfig logical id -> physical key 索引侧表配置
type IndexConfig struct {
	Type      string `mapstructure:"type"` // none | memory | redis
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	Namespace string `mapstructure:"namespace"` // Redis 键前缀，空则默认 docrepo:idx
}

// SecretsConfig secret://<key> 引用的解析来源
type SecretsConfig struct {
	Provider string `mapstructure:"provider"` // env | memory | file | vault
	Address  string `mapstructure:"address"`
	Token    string `mapstructure:"token"`
	Mount    string `mapstructure:"mount"`
	Dir      string `mapstructure:"dir"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// MonitoringConfig 监控配置
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
}

// TracingConfig 链路追踪配置（OpenTelemetry）
type TracingConfig struct {
	Enable         bool   `mapstructure:"enable"`
	ServiceName    string `mapstructure:"service_name"`
	ExportEndpoint string `mapstructure:"export_endpoint"`
	Insecure       bool   `mapstructure:"insecure"`
}

// PrometheusConfig Prometheus 配置
type PrometheusConfig struct {
	Enable bool `mapstructure:"enable"`
	Port   int  `mapstructure:"port"`
}

// LoadConfig 加载配置文件，环境变量覆盖同名键（repository.bucket -> REPOSITORY_BUCKET）
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("无法读取配置文件: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("无法解析配置文件: %w", err)
	}

	replaceEnvVars(&config)

	if config.Repository.Bucket == "" {
		config.Repository.Bucket = config.Storage.Object.Bucket
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.object.type", "memory")
	v.SetDefault("storage.index.type", "none")
	v.SetDefault("secrets.provider", "env")
	v.SetDefault("repository.list_concurrency", 8)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("monitoring.tracing.service_name", "doc-repository")
}

// replaceEnvVars 替换 ${VAR} 形式的密钥引用
func replaceEnvVars(config *Config) {
	config.Storage.Object.DSN = expandEnvRef(config.Storage.Object.DSN)
	config.Storage.Index.Password = expandEnvRef(config.Storage.Index.Password)
	config.Secrets.Token = expandEnvRef(config.Secrets.Token)
}

func expandEnvRef(s string) string {
	if !strings.HasPrefix(s, "$") {
		return s
	}
	envVar := strings.TrimPrefix(strings.TrimSuffix(s, "}"), "${")
	envVar = strings.TrimPrefix(envVar, "$")
	if val := os.Getenv(envVar); val != "" {
		return val
	}
	return s
}

// LoadFromEnv 按 DOCREPO_CONFIG 指定路径加载配置，未设置时使用 DefaultConfigPath
func LoadFromEnv() (*Config, error) {
	path := os.Getenv("DOCREPO_CONFIG")
	if path == "" {
		path = DefaultConfigPath
	}
	return LoadConfig(path)
}
