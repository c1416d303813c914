package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/travelmate/internal/middleware"
	"github.com/hitoshi/travelmate/internal/model"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// CompleteLobby はユーザーのデジタルロビー完了フラグを立てる。
	CompleteLobby(ctx context.Context, userID string) error
}

// UserHandler はユーザー管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// CompleteLobby はログイン中のユーザーのデジタルロビー完了フラグを立てる。
// POST /api/users/me/lobby-complete
func (h *UserHandler) CompleteLobby(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAppErrorResponse(w, http.StatusUnauthorized, &model.AppError{
			Code:     "UNAUTHORIZED",
			Message:  "認証が必要です。",
			Category: "auth",
			Action:   "ログインしてください。",
		})
		return
	}

	if err := h.service.CompleteLobby(r.Context(), userID); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
