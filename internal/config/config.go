package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// JWTConfig defines issuer/secret pair for auth verification.
type JWTConfig struct {
	Issuer string
	Secret []byte
}

// CosmosDBConfig は Cosmos DB アカウント(Mongo API 経由)への接続情報。
type CosmosDBConfig struct {
	Endpoint      string `yaml:"endpoint"`
	Key           string `yaml:"key"`
	DatabaseName  string `yaml:"database_name"`
	ContainerName string `yaml:"container_name"`
}

// PromptsConfig は AI へ渡すシステムプロンプトとユーザーテンプレート。
type PromptsConfig struct {
	UserTemplate   string `yaml:"user_template"`
	FeedbackSystem string `yaml:"feedback_system"`
}

// CopilotConfig は chat-completion エンドポイントと生成パラメータ。
type CopilotConfig struct {
	APIURL      string  `yaml:"api_url"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// fileConfig は config.yaml のトップレベル構造。
type fileConfig struct {
	CosmosDB      CosmosDBConfig `yaml:"cosmosdb"`
	Prompts       PromptsConfig  `yaml:"prompts"`
	GitHubCopilot CopilotConfig  `yaml:"github_copilot"`
}

// Config holds runtime configuration shared across the application.
type Config struct {
	Addr           string
	CosmosDB       CosmosDBConfig
	Prompts        PromptsConfig
	GitHubCopilot  CopilotConfig
	GitHubToken    string
	Timeout        time.Duration
	AllowedOrigins []string
	JWTConfigs     []JWTConfig
	JWTAudience    string
	ServerLog      *log.Logger
}

// dummyCosmosKey はローカル開発用のプレースホルダ。config.yaml の既定値。
const dummyCosmosKey = "dummy_key_for_development"

// Load は config.yaml を読み込み、環境変数による上書きを適用した Config を返す。
// 接続情報は COSMOSDB_ENDPOINT / COSMOSDB_KEY が設定ファイルの値より優先される。
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("設定ファイル読み込みエラー: %w", err)
	}

	var file fileConfig
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return Config{}, fmt.Errorf("設定ファイル解析エラー: %w", err)
	}

	file.CosmosDB.Endpoint = envOrDefault("COSMOSDB_ENDPOINT", file.CosmosDB.Endpoint)
	file.CosmosDB.Key = envOrDefault("COSMOSDB_KEY", file.CosmosDB.Key)

	timeout := 10 * time.Second
	if v := strings.TrimSpace(os.Getenv("COSMOSDB_CONNECT_TIMEOUT")); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			timeout = parsed
		}
	}

	var jwtConfigs []JWTConfig
	if secret := strings.TrimSpace(os.Getenv("AUTH_JWT_SECRET")); secret != "" {
		jwtConfigs = append(jwtConfigs, JWTConfig{
			Issuer: envOrDefault("AUTH_JWT_ISSUER", "daily-report-auth"),
			Secret: []byte(secret),
		})
	}

	cfg := Config{
		Addr:           envOrDefault("HTTP_ADDR", ":8080"),
		CosmosDB:       file.CosmosDB,
		Prompts:        file.Prompts,
		GitHubCopilot:  file.GitHubCopilot,
		GitHubToken:    strings.TrimSpace(os.Getenv("GITHUB_TOKEN")),
		Timeout:        timeout,
		AllowedOrigins: parseList("API_ALLOWED_ORIGINS", []string{"*"}),
		JWTConfigs:     jwtConfigs,
		JWTAudience:    strings.TrimSpace(os.Getenv("AUTH_JWT_AUDIENCE")),
		ServerLog:      log.New(os.Stdout, "[daily-report-api] ", log.LstdFlags|log.Lshortfile),
	}

	return cfg, nil
}

// CosmosEnabled は実際の接続情報が揃っているかを判定する。
// 未設定・${...} プレースホルダのまま・開発用ダミーキーの場合は
// ストアクライアントを構築しない(ストア操作は呼び出し時に失敗する)。
func (c Config) CosmosEnabled() bool {
	endpoint := strings.TrimSpace(c.CosmosDB.Endpoint)
	key := strings.TrimSpace(c.CosmosDB.Key)
	if endpoint == "" || key == "" {
		return false
	}
	if strings.HasPrefix(endpoint, "${") || strings.HasPrefix(key, "${") {
		return false
	}
	if key == dummyCosmosKey {
		return false
	}
	return true
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseList(key string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			values = append(values, part)
		}
	}

	if len(values) == 0 {
		return fallback
	}
	return values
}
