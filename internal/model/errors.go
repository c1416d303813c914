// Package model はドメインモデルを定義する。
package model

import "fmt"

// AppError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type AppError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnknownProvider = "UNKNOWN_PROVIDER"
	ErrCodeAuthFailed      = "AUTH_FAILED"
	ErrCodeUserNotFound    = "USER_NOT_FOUND"
	ErrCodeSessionExpired  = "SESSION_EXPIRED"
)

// NewUnknownProviderError は未対応のプロバイダー名が指定された場合のエラーを生成する。
func NewUnknownProviderError(provider string) *AppError {
	return &AppError{
		Code:     ErrCodeUnknownProvider,
		Message:  fmt.Sprintf("対応していない認証プロバイダーです: %s", provider),
		Category: "validation",
		Action:   "facebook、google、instagram のいずれかを指定してください。",
	}
}

// NewAuthFailedError は認証フローの失敗エラーを生成する。
func NewAuthFailedError(reason string) *AppError {
	return &AppError{
		Code:     ErrCodeAuthFailed,
		Message:  fmt.Sprintf("認証に失敗しました: %s", reason),
		Category: "auth",
		Action:   "もう一度ログインをやり直してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *AppError {
	return &AppError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewSessionExpiredError はセッション失効エラーを生成する。
func NewSessionExpiredError() *AppError {
	return &AppError{
		Code:     ErrCodeSessionExpired,
		Message:  "セッションの有効期限が切れています。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}
