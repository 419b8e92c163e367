// Package model はドメインモデルを定義する。
package model

import "time"

// User はブログの投稿者アカウントを表す。
// PasswordHashにはbcryptハッシュのみを保存し、平文パスワードは保持しない。
// 登録後の更新・削除ルートは存在しないため、作成以降はイミュータブルに扱う。
type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Session はユーザーのログインセッションを表す。
// IDはCookieで運ばれる不透明トークンで、ログイン時に発行され
// ログアウトまたは期限切れで破棄される。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
