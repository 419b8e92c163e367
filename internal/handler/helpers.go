package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/tsuzuri/internal/middleware"
	"github.com/hitoshi/tsuzuri/internal/model"
	"github.com/hitoshi/tsuzuri/internal/view"
)

// CurrentUserProvider はセッションCookieから現在のユーザーを解決するインターフェース。
// 公開ページでもナビゲーション表示のためにログイン状態を知る必要がある。
type CurrentUserProvider interface {
	GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error)
}

// currentUserID はセッションCookieからユーザーIDを解決する。
// 未ログイン・セッション無効・解決失敗はいずれも空文字列を返す。
func currentUserID(r *http.Request, users CurrentUserProvider) string {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err != nil || cookie.Value == "" {
		return ""
	}

	user, err := users.GetCurrentUser(r.Context(), cookie.Value)
	if err != nil {
		slog.Error("failed to resolve current user", slog.String("error", err.Error()))
		return ""
	}
	if user == nil {
		return ""
	}
	return user.ID
}

// renderPage はテンプレートを描画する。描画失敗は500として扱う。
func renderPage(w http.ResponseWriter, renderer *view.Renderer, name string, data any) {
	if err := renderer.Render(w, name, data); err != nil {
		slog.Error("failed to render template",
			slog.String("template", name),
			slog.String("error", err.Error()),
		)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
