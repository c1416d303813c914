// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/travelmate/internal/model"
)

// UserRepository はユーザードキュメントの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByProviderID はプロバイダー連携IDでユーザーを検索する。
	// providerは"facebook"、"google"、"instagram"のいずれか。
	// 見つからない場合はnilを返す。
	FindByProviderID(ctx context.Context, provider, providerUserID string) (*model.User, error)

	// Create はユーザードキュメントを作成する。
	Create(ctx context.Context, user *model.User) error

	// SetLobbyCompleted はデジタルロビーの完了フラグを更新する。
	SetLobbyCompleted(ctx context.Context, id string, completed bool) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}
