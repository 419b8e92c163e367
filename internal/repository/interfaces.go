// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/tsuzuri/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByUsername はユーザー名でユーザーを検索する。見つからない場合はnilを返す。
	FindByUsername(ctx context.Context, username string) (*model.User, error)

	// Create はユーザーを作成する。
	// ユーザー名が重複している場合はmodel.ErrCodeDuplicateUsernameのAppErrorを返す。
	Create(ctx context.Context, user *model.User) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。存在しないIDに対してもエラーにならない。
	DeleteByID(ctx context.Context, id string) error
	// DeleteExpired は期限切れセッションを一括削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// PostRepository は記事データの永続化インターフェース。
type PostRepository interface {
	// FindByID は指定IDの記事を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Post, error)

	// FindByIDWithAuthor は指定IDの記事を投稿者情報付きで取得する。見つからない場合はnilを返す。
	FindByIDWithAuthor(ctx context.Context, id string) (*model.PostWithAuthor, error)

	// ListAllWithAuthors は全記事を投稿者情報付きでcreated_at降順（新しい順）に返す。
	ListAllWithAuthors(ctx context.Context) ([]model.PostWithAuthor, error)

	// Create は記事を作成する。
	Create(ctx context.Context, post *model.Post) error

	// Update は記事のtitle、content、image_path、updated_atを更新する。
	// author_idとcreated_atは変更しない。
	Update(ctx context.Context, post *model.Post) error

	// Delete は指定IDの記事を削除する。削除対象が存在しない場合はfalseを返す。
	Delete(ctx context.Context, id string) (bool, error)

	// ListImagePaths は全記事のimage_path（空を除く）を返す。
	// アップロードディレクトリの孤児ファイル掃除に使用する。
	ListImagePaths(ctx context.Context) ([]string, error)
}
