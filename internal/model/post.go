// Package model はドメインモデルを定義する。
package model

import "time"

// Post はブログ記事を表す。
// AuthorIDは作成時に確定し、以降変更されない。
// ImagePathは添付画像の公開パス（例: "/uploads/image-123.png"）で、未添付の場合は空文字列。
type Post struct {
	ID        string
	Title     string
	Content   string // サニタイズ済みHTML
	ImagePath string
	AuthorID  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PostWithAuthor は記事と投稿者情報を結合したモデル。
// usersテーブルとJOINして取得される。
type PostWithAuthor struct {
	Post
	AuthorName string
}
