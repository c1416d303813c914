package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hitoshi/travelmate/internal/model"
)

const sessionsCollection = "sessions"

// MongoSessionRepo はMongoDBを使用したセッションリポジトリ。
type MongoSessionRepo struct {
	col *mongo.Collection
}

// NewMongoSessionRepo はMongoSessionRepoを生成する。
func NewMongoSessionRepo(db *mongo.Database) *MongoSessionRepo {
	return &MongoSessionRepo{col: db.Collection(sessionsCollection)}
}

// Create はセッションを作成する。
func (r *MongoSessionRepo) Create(ctx context.Context, session *model.Session) error {
	if _, err := r.col.InsertOne(ctx, session); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
// TTLインデックスによる物理削除は最大60秒遅れるため、クエリ側でも失効を判定する。
func (r *MongoSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	session := &model.Session{}
	err := r.col.FindOne(ctx, bson.M{
		"_id":       id,
		"expiresAt": bson.M{"$gt": time.Now()},
	}).Decode(session)

	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	return session, nil
}

// DeleteByID は指定IDのセッションを削除する。
func (r *MongoSessionRepo) DeleteByID(ctx context.Context, id string) error {
	if _, err := r.col.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteByUserID は指定ユーザーの全セッションを削除する。
func (r *MongoSessionRepo) DeleteByUserID(ctx context.Context, userID string) error {
	if _, err := r.col.DeleteMany(ctx, bson.M{"userId": userID}); err != nil {
		return fmt.Errorf("failed to delete sessions by user ID: %w", err)
	}
	return nil
}

// compile-time interface check
var _ SessionRepository = (*MongoSessionRepo)(nil)
