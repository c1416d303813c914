// Package database はMongoDB接続とインデックスマイグレーション管理を提供する。
package database

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const defaultDatabaseName = "travelmate"

// DB はMongoDB接続とアプリケーションが使用するデータベースハンドルを保持する。
// グローバル変数ではなく、起動時に生成して依存として引き回す。
type DB struct {
	client *mongo.Client
	name   string
}

// Open はMongoDB接続を開く。
// databaseURLはMongoDBの接続URLを指定する
// （例: "mongodb://localhost:27017/travelmate"）。
// mongo.Connectはこの時点では通信しないため、実際の接続確認にはPing()を使用すること。
func Open(ctx context.Context, databaseURL string) (*DB, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(databaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &DB{
		client: client,
		name:   databaseName(databaseURL),
	}, nil
}

// Ping はプライマリへの到達性を確認する。
func (db *DB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// Close は接続を閉じる。
func (db *DB) Close(ctx context.Context) error {
	if err := db.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// Database はアプリケーションのデータベースハンドルを返す。
func (db *DB) Database() *mongo.Database {
	return db.client.Database(db.name)
}

// Collection は指定コレクションのハンドルを返す。
func (db *DB) Collection(name string) *mongo.Collection {
	return db.Database().Collection(name)
}

// databaseName は接続URLのパス部からデータベース名を取り出す。
// パスが空の場合は既定のデータベース名を返す。
func databaseName(databaseURL string) string {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return defaultDatabaseName
	}
	name := strings.TrimPrefix(u.Path, "/")
	if name == "" {
		return defaultDatabaseName
	}
	return name
}
