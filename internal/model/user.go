// Package model はドメインモデルを定義する。
package model

import "time"

// User はTravel Mateの利用ユーザーを表す。
// usersコレクションの1ドキュメントに対応するフラットなレコード。
// メール/パスワードとソーシャルプロバイダーIDが同居しており、
// どのプロバイダーIDが設定されるかはサインイン経路に依存する
// （排他制約は設けていない）。
type User struct {
	ID        string `bson:"_id"`
	Email     string `bson:"email,omitempty"`
	Password  string `bson:"password,omitempty"`

	// ソーシャルログインのプロバイダー連携ID。
	FacebookID  string `bson:"facebookId,omitempty"`
	GoogleID    string `bson:"googleId,omitempty"`
	InstagramID string `bson:"instagramId,omitempty"`

	// デジタルロビーのオンボーディング完了フラグ。
	HasCompletedDigitalLobby bool `bson:"hasCompletedDigitalLobby"`

	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// Session はユーザーのログインセッションを表す。
// sessionsコレクションに保存し、expiresAtのTTLインデックスで失効させる。
type Session struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"userId"`
	ExpiresAt time.Time `bson:"expiresAt"`
	CreatedAt time.Time `bson:"createdAt"`
}
