// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// AppError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type AppError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, post, upload, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeDuplicateUsername  = "DUPLICATE_USERNAME"
	ErrCodeEmptyCredentials   = "EMPTY_CREDENTIALS"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeNotPostAuthor      = "NOT_POST_AUTHOR"
	ErrCodePostNotFound       = "POST_NOT_FOUND"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeInvalidUpload      = "INVALID_UPLOAD"
	ErrCodeUploadTooLarge     = "UPLOAD_TOO_LARGE"
	ErrCodePersistence        = "PERSISTENCE_ERROR"
)

// AsAppError はエラーチェーンからAppErrorを取り出す。
// サービス層のエラーをハンドラー層で分類するために使用する。
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// NewDuplicateUsernameError はユーザー名重複エラーを生成する。
func NewDuplicateUsernameError(username string) *AppError {
	return &AppError{
		Code:     ErrCodeDuplicateUsername,
		Message:  fmt.Sprintf("このユーザー名は既に使用されています: %s", username),
		Category: "validation",
		Action:   "別のユーザー名を入力してください。",
	}
}

// NewEmptyCredentialsError はユーザー名またはパスワードが空の場合のエラーを生成する。
func NewEmptyCredentialsError() *AppError {
	return &AppError{
		Code:     ErrCodeEmptyCredentials,
		Message:  "ユーザー名とパスワードは必須です。",
		Category: "validation",
		Action:   "ユーザー名とパスワードを入力してください。",
	}
}

// NewInvalidCredentialsError は認証失敗エラーを生成する。
// ユーザー不在とパスワード不一致を区別せず、同一のエラーを返す。
func NewInvalidCredentialsError() *AppError {
	return &AppError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "ユーザー名またはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewNotPostAuthorError は投稿者以外による記事変更エラーを生成する。
func NewNotPostAuthorError(postID string) *AppError {
	return &AppError{
		Code:     ErrCodeNotPostAuthor,
		Message:  fmt.Sprintf("この記事を変更する権限がありません: %s", postID),
		Category: "auth",
		Action:   "自分が投稿した記事のみ編集・削除できます。",
	}
}

// NewPostNotFoundError は記事未検出エラーを生成する。
func NewPostNotFoundError(postID string) *AppError {
	return &AppError{
		Code:     ErrCodePostNotFound,
		Message:  fmt.Sprintf("指定された記事が見つかりません: %s", postID),
		Category: "post",
		Action:   "記事の一覧から選び直してください。",
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

// NewInvalidUploadError は不正なアップロードファイルのエラーを生成する。
func NewInvalidUploadError(reason string) *AppError {
	return &AppError{
		Code:     ErrCodeInvalidUpload,
		Message:  fmt.Sprintf("アップロードできないファイルです: %s", reason),
		Category: "upload",
		Action:   "jpeg、jpg、png、gifのいずれかの画像ファイルを選択してください。",
	}
}

// NewUploadTooLargeError はサイズ超過アップロードのエラーを生成する。
func NewUploadTooLargeError(size, limit int64) *AppError {
	return &AppError{
		Code:     ErrCodeUploadTooLarge,
		Message:  fmt.Sprintf("ファイルサイズが上限を超えています: %dバイト（上限%dバイト）", size, limit),
		Category: "upload",
		Action:   "より小さい画像を選択してください。",
	}
}

// NewPersistenceError はストア操作の失敗エラーを生成する。
// 下層のエラー詳細はログのみに記録し、ユーザーには一般的なメッセージを返す。
func NewPersistenceError() *AppError {
	return &AppError{
		Code:     ErrCodePersistence,
		Message:  "データの保存に失敗しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
