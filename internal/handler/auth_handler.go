// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/tsuzuri/internal/middleware"
	"github.com/hitoshi/tsuzuri/internal/model"
	"github.com/hitoshi/tsuzuri/internal/view"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Register(ctx context.Context, username, password string) error
	Login(ctx context.Context, username, password string) (*model.Session, error)
	Logout(ctx context.Context, sessionID string) error
	GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieSecure  bool
	SessionMaxAge int // セッションCookieの有効期間（秒）
}

// AuthHandler はユーザー登録・ログイン・ログアウトのHTTPハンドラー。
type AuthHandler struct {
	service  AuthServiceInterface
	renderer *view.Renderer
	config   AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AuthServiceInterface, renderer *view.Renderer, config AuthHandlerConfig) *AuthHandler {
	return &AuthHandler{
		service:  service,
		renderer: renderer,
		config:   config,
	}
}

// credentialsForm は登録・ログインフォームの型付きリクエスト。
type credentialsForm struct {
	Username string
	Password string
}

// parseCredentialsForm はフォームボディを型付き構造体に変換する。
func parseCredentialsForm(r *http.Request) credentialsForm {
	return credentialsForm{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
	}
}

// ShowRegister は登録フォームを表示する。
// GET /register
func (h *AuthHandler) ShowRegister(w http.ResponseWriter, r *http.Request) {
	renderPage(w, h.renderer, "register", map[string]any{
		"Title":  "ユーザー登録",
		"UserID": currentUserID(r, h.service),
		"Error":  "",
	})
}

// Register は新規ユーザーを登録する。
// POST /register
//
// バリデーションエラー（空欄・ユーザー名の重複）は登録フォームを
// エラーメッセージ付きで再表示する。保存系の内部エラーはユーザーに
// 詳細を見せず、汎用メッセージに丸める。
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	form := parseCredentialsForm(r)

	if err := h.service.Register(r.Context(), form.Username, form.Password); err != nil {
		msg := "登録に失敗しました。時間をおいて再度お試しください。"
		if appErr, ok := model.AsAppError(err); ok {
			msg = appErr.Message
		} else {
			slog.Error("failed to register user", slog.String("error", err.Error()))
		}
		renderPage(w, h.renderer, "register", map[string]any{
			"Title":  "ユーザー登録",
			"UserID": "",
			"Error":  msg,
		})
		return
	}

	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// ShowLogin はログインフォームを表示する。
// GET /login
func (h *AuthHandler) ShowLogin(w http.ResponseWriter, r *http.Request) {
	renderPage(w, h.renderer, "login", map[string]any{
		"Title":  "ログイン",
		"UserID": currentUserID(r, h.service),
		"Error":  "",
	})
}

// Login は認証情報を検証し、セッションCookieを発行する。
// POST /login
//
// ユーザー不在とパスワード不一致は同一のメッセージで再表示し、
// どちらが誤っているかを漏らさない。
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	form := parseCredentialsForm(r)

	session, err := h.service.Login(r.Context(), form.Username, form.Password)
	if err != nil {
		msg := "ログインに失敗しました。時間をおいて再度お試しください。"
		if appErr, ok := model.AsAppError(err); ok {
			msg = appErr.Message
		} else {
			slog.Error("failed to login", slog.String("error", err.Error()))
		}
		renderPage(w, h.renderer, "login", map[string]any{
			"Title":  "ログイン",
			"UserID": "",
			"Error":  msg,
		})
		return
	}

	// セッションCookieを設定（HTTP Only）
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    session.ID,
		Path:     "/",
		MaxAge:   h.config.SessionMaxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, "/posts", http.StatusSeeOther)
}

// Logout はセッションを破棄する。
// GET /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err == nil && cookie.Value != "" {
		// セッションをDBから削除
		if logoutErr := h.service.Logout(r.Context(), cookie.Value); logoutErr != nil {
			slog.Error("failed to logout", slog.String("error", logoutErr.Error()))
			// ログアウト失敗してもCookieはクリアする
		}
	}

	// セッションCookieをクリア
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, "/posts", http.StatusSeeOther)
}
