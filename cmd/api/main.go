package main

import (
	"context"
	"log"
	"net/url"
	"strings"

	"github.com/papaHasuo/daily-report-feedback/api/internal/config"
	"github.com/papaHasuo/daily-report-feedback/api/internal/server"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	var client *mongo.Client
	if cfg.CosmosEnabled() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
		defer cancel()

		connected, err := mongo.Connect(ctx, cosmosClientOptions(cfg.CosmosDB))
		if err != nil {
			cfg.ServerLog.Printf("CosmosDB接続エラー (開発時は無視可能): %v", err)
		} else {
			client = connected
		}
	} else {
		cfg.ServerLog.Printf("開発モード: CosmosDB接続をスキップ")
	}

	app, err := server.New(cfg, client)
	if err != nil {
		cfg.ServerLog.Fatalf("サーバー初期化に失敗: %v", err)
	}
	if err := app.Run(); err != nil {
		log.Fatalf("サーバー起動に失敗: %v", err)
	}
}

// cosmosClientOptions は Mongo API 経由で Cosmos DB アカウントへ接続する
// オプションを組み立てる。アカウントキーはパスワード資格情報として渡し、
// ユーザー名にはエンドポイントのホスト先頭ラベル(アカウント名)を使う。
func cosmosClientOptions(c config.CosmosDBConfig) *options.ClientOptions {
	opts := options.Client().ApplyURI(c.Endpoint)
	if key := strings.TrimSpace(c.Key); key != "" {
		opts.SetAuth(options.Credential{
			Username: accountName(c.Endpoint),
			Password: key,
		})
	}
	return opts
}

// accountName は接続 URI のホスト名から Cosmos アカウント名を切り出す。
func accountName(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return ""
	}
	host := u.Hostname()
	if i := strings.IndexByte(host, '.'); i > 0 {
		return host[:i]
	}
	return host
}
