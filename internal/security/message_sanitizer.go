// Package security はアプリケーションのセキュリティ機能を提供する。
//
// MessageSanitizer はロビーのブロードキャスト文字列に埋め込まれる
// クライアント提供の識別子をサニタイズし、同梱のチャットページで
// 描画される際のXSSを防ぐ。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// MessageSanitizer はブロードキャスト向け文字列のサニタイズ機能を定義する。
type MessageSanitizer interface {
	// Sanitize は入力からすべてのHTMLタグを除去し、前後の空白を落として返す。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// messageSanitizer はMessageSanitizerの実装。
// bluemondayのStrictPolicy（全タグ除去）を保持し、スレッドセーフに処理する。
type messageSanitizer struct {
	policy *bluemonday.Policy
}

// NewMessageSanitizer はMessageSanitizerの新しいインスタンスを生成する。
// ロビーのuserIdは表示用の識別子にすぎないため、許可タグは一切ない。
func NewMessageSanitizer() *messageSanitizer {
	return &messageSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は入力からすべてのHTMLタグを除去する。
func (s *messageSanitizer) Sanitize(raw string) string {
	return strings.TrimSpace(s.policy.Sanitize(raw))
}

// compile-time interface check
var _ MessageSanitizer = (*messageSanitizer)(nil)
