package handler

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/tsuzuri/internal/metrics"
	"github.com/hitoshi/tsuzuri/internal/middleware"
	"github.com/hitoshi/tsuzuri/internal/model"
	"github.com/hitoshi/tsuzuri/internal/post"
	"github.com/hitoshi/tsuzuri/internal/upload"
	"github.com/hitoshi/tsuzuri/internal/view"
)

// maxMultipartMemory はマルチパート解析時にメモリに保持する上限。
// 超過分は一時ファイルに退避される。
const maxMultipartMemory = 32 << 20

// PostServiceInterface は記事ハンドラーが必要とするサービスインターフェース。
type PostServiceInterface interface {
	ListAll(ctx context.Context) ([]model.PostWithAuthor, error)
	Get(ctx context.Context, id string) (*model.PostWithAuthor, error)
	Create(ctx context.Context, authorID, title, content, imagePath string) (*model.Post, error)
	Update(ctx context.Context, id, requesterID string, fields post.UpdateFields) (*model.Post, error)
	Delete(ctx context.Context, id, requesterID string) error
}

// ImageSaver は添付画像の検証・保存インターフェース。
// upload.Storeの部分集合として定義する。
type ImageSaver interface {
	SaveImage(file multipart.File, header *multipart.FileHeader) (string, error)
}

// PostHandler は記事CRUDのHTTPハンドラー。
type PostHandler struct {
	service   PostServiceInterface
	uploader  ImageSaver
	users     CurrentUserProvider
	renderer  *view.Renderer
	collector metrics.MetricsCollector
}

// NewPostHandler はPostHandlerを生成する。collectorはnil可。
func NewPostHandler(
	service PostServiceInterface,
	uploader ImageSaver,
	users CurrentUserProvider,
	renderer *view.Renderer,
	collector metrics.MetricsCollector,
) *PostHandler {
	return &PostHandler{
		service:   service,
		uploader:  uploader,
		users:     users,
		renderer:  renderer,
		collector: collector,
	}
}

// postForm は記事作成・更新フォームの型付きリクエスト。
type postForm struct {
	Title   string
	Content string
}

// parsePostForm はマルチパートボディを解析して型付き構造体に変換する。
func parsePostForm(r *http.Request) (postForm, error) {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return postForm{}, err
	}
	return postForm{
		Title:   r.FormValue("title"),
		Content: r.FormValue("content"),
	}, nil
}

// Index は全記事を新しい順で一覧表示する。
// GET /posts
func (h *PostHandler) Index(w http.ResponseWriter, r *http.Request) {
	posts, err := h.service.ListAll(r.Context())
	if err != nil {
		slog.Error("failed to list posts", slog.String("error", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	renderPage(w, h.renderer, "posts_index", map[string]any{
		"Title":  "すべての記事",
		"UserID": currentUserID(r, h.users),
		"Posts":  posts,
	})
}

// Show は記事詳細を表示する。
// GET /posts/{id}
//
// 存在しない記事・不正な形式のIDはいずれも一覧へリダイレクトする。
func (h *PostHandler) Show(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.redirectOnError(w, r, err, "/posts")
		return
	}

	userID := currentUserID(r, h.users)
	renderPage(w, h.renderer, "posts_show", map[string]any{
		"Title":  p.Title,
		"UserID": userID,
		"Post":   p,
		// 保存時にサニタイズ済みのHTMLをそのまま描画する
		"Content":  template.HTML(p.Content),
		"IsAuthor": userID != "" && userID == p.AuthorID,
	})
}

// New は新規投稿フォームを表示する。
// GET /posts/new（要ログイン）
func (h *PostHandler) New(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	renderPage(w, h.renderer, "posts_new", map[string]any{
		"Title":  "新規投稿",
		"UserID": userID,
		"Error":  "",
	})
}

// Create は新規記事を作成する。
// POST /posts（要ログイン、multipart/form-data）
//
// 画像の検証・保存は記事の永続化より先に行い、検証に失敗した場合は
// 記事を一切書き込まずにフォームを再表示する。
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	form, err := parsePostForm(r)
	if err != nil {
		h.renderNewWithError(w, userID, "フォームの解析に失敗しました。")
		return
	}

	imagePath, err := h.saveUploadedImage(r)
	if err != nil {
		h.recordUploadRejected()
		msg := "画像のアップロードに失敗しました。"
		if appErr, ok := model.AsAppError(err); ok {
			msg = appErr.Message
		} else {
			slog.Error("failed to save uploaded image", slog.String("error", err.Error()))
		}
		h.renderNewWithError(w, userID, msg)
		return
	}

	p, err := h.service.Create(r.Context(), userID, form.Title, form.Content, imagePath)
	if err != nil {
		slog.Error("failed to create post", slog.String("error", err.Error()))
		h.renderNewWithError(w, userID, "記事の作成に失敗しました。時間をおいて再度お試しください。")
		return
	}

	h.recordPostCreated()
	http.Redirect(w, r, "/posts/"+p.ID, http.StatusSeeOther)
}

// Edit は記事の編集フォームを表示する。
// GET /posts/{id}/edit（要ログイン、投稿者限定）
func (h *PostHandler) Edit(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	id := chi.URLParam(r, "id")
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.redirectOnError(w, r, err, "/posts")
		return
	}

	// 投稿者以外には編集フォームを見せない
	if p.AuthorID != userID {
		http.Redirect(w, r, "/posts/"+id, http.StatusSeeOther)
		return
	}

	renderPage(w, h.renderer, "posts_edit", map[string]any{
		"Title":  "記事の編集",
		"UserID": userID,
		"Post":   p,
		"Error":  "",
	})
}

// Update は記事を更新する。
// PUT /posts/{id}（要ログイン、投稿者限定）
//
// 画像フィールドが送信された場合のみ差し替える。検証に失敗した場合は
// 記事を変更せずに編集フォームを再表示する。
func (h *PostHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	id := chi.URLParam(r, "id")

	form, err := parsePostForm(r)
	if err != nil {
		h.renderEditWithError(w, r, id, userID, "フォームの解析に失敗しました。")
		return
	}

	fields := post.UpdateFields{
		Title:   form.Title,
		Content: form.Content,
	}

	imagePath, err := h.saveUploadedImage(r)
	if err != nil {
		h.recordUploadRejected()
		msg := "画像のアップロードに失敗しました。"
		if appErr, ok := model.AsAppError(err); ok {
			msg = appErr.Message
		} else {
			slog.Error("failed to save uploaded image", slog.String("error", err.Error()))
		}
		h.renderEditWithError(w, r, id, userID, msg)
		return
	}
	if imagePath != "" {
		fields.ImagePath = imagePath
		fields.NewImage = true
	}

	if _, err := h.service.Update(r.Context(), id, userID, fields); err != nil {
		h.redirectOnError(w, r, err, "/posts/"+id)
		return
	}

	http.Redirect(w, r, "/posts/"+id, http.StatusSeeOther)
}

// Delete は記事を削除する。
// DELETE /posts/{id}（要ログイン、投稿者限定）
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	id := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), id, userID); err != nil {
		h.redirectOnError(w, r, err, "/posts/"+id)
		return
	}

	http.Redirect(w, r, "/posts", http.StatusSeeOther)
}

// saveUploadedImage はマルチパートフォームの画像フィールドを保存し、公開パスを返す。
// フィールドが送信されていない場合は空文字列を返す（画像は任意）。
func (h *PostHandler) saveUploadedImage(r *http.Request) (string, error) {
	file, header, err := r.FormFile(upload.FieldName)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil
		}
		return "", err
	}
	defer file.Close()

	return h.uploader.SaveImage(file, header)
}

// redirectOnError はサービス層のエラーをリダイレクトに変換する。
// 記事不在は一覧へ、権限エラーはfallbackへ、それ以外は500を返す。
func (h *PostHandler) redirectOnError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	appErr, ok := model.AsAppError(err)
	if !ok {
		slog.Error("post operation failed", slog.String("error", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	switch appErr.Code {
	case model.ErrCodePostNotFound:
		http.Redirect(w, r, "/posts", http.StatusSeeOther)
	case model.ErrCodeNotPostAuthor:
		slog.Warn("mutation denied for non-author",
			slog.String("code", appErr.Code),
		)
		http.Redirect(w, r, fallback, http.StatusSeeOther)
	default:
		slog.Error("post operation failed",
			slog.String("code", appErr.Code),
			slog.String("error", appErr.Error()),
		)
		http.Redirect(w, r, fallback, http.StatusSeeOther)
	}
}

// renderNewWithError は新規投稿フォームをエラーメッセージ付きで再表示する。
func (h *PostHandler) renderNewWithError(w http.ResponseWriter, userID, msg string) {
	renderPage(w, h.renderer, "posts_new", map[string]any{
		"Title":  "新規投稿",
		"UserID": userID,
		"Error":  msg,
	})
}

// renderEditWithError は編集フォームをエラーメッセージ付きで再表示する。
// 記事の取得に失敗した場合は一覧へ逃がす。
func (h *PostHandler) renderEditWithError(w http.ResponseWriter, r *http.Request, id, userID, msg string) {
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		http.Redirect(w, r, "/posts", http.StatusSeeOther)
		return
	}

	renderPage(w, h.renderer, "posts_edit", map[string]any{
		"Title":  "記事の編集",
		"UserID": userID,
		"Post":   p,
		"Error":  msg,
	})
}

func (h *PostHandler) recordPostCreated() {
	if h.collector != nil {
		h.collector.RecordPostCreated()
	}
}

func (h *PostHandler) recordUploadRejected() {
	if h.collector != nil {
		h.collector.RecordUploadRejected()
	}
}
