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

const usersCollection = "users"

// providerIDFields はプロバイダー名からusersドキュメントのフィールド名への対応。
var providerIDFields = map[string]string{
	"facebook":  "facebookId",
	"google":    "googleId",
	"instagram": "instagramId",
}

// MongoUserRepo はMongoDBを使用したユーザーリポジトリ。
type MongoUserRepo struct {
	col *mongo.Collection
}

// NewMongoUserRepo はMongoUserRepoを生成する。
func NewMongoUserRepo(db *mongo.Database) *MongoUserRepo {
	return &MongoUserRepo{col: db.Collection(usersCollection)}
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *MongoUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	user := &model.User{}
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(user)

	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}

	return user, nil
}

// FindByProviderID はプロバイダー連携IDでユーザーを検索する。見つからない場合はnilを返す。
func (r *MongoUserRepo) FindByProviderID(ctx context.Context, provider, providerUserID string) (*model.User, error) {
	field, ok := providerIDFields[provider]
	if !ok {
		return nil, model.NewUnknownProviderError(provider)
	}

	user := &model.User{}
	err := r.col.FindOne(ctx, bson.M{field: providerUserID}).Decode(user)

	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by provider ID: %w", err)
	}

	return user, nil
}

// Create はユーザードキュメントを作成する。
func (r *MongoUserRepo) Create(ctx context.Context, user *model.User) error {
	if _, err := r.col.InsertOne(ctx, user); err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// SetLobbyCompleted はデジタルロビーの完了フラグを更新する。
// 対象ユーザーが存在しない場合はエラーを返す。
func (r *MongoUserRepo) SetLobbyCompleted(ctx context.Context, id string, completed bool) error {
	result, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"hasCompletedDigitalLobby": completed,
			"updatedAt":                time.Now(),
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to update lobby completion flag: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("user not found: %s", id)
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*MongoUserRepo)(nil)
