package repository

import (
	"testing"
)

// PostgresUserRepoはUserRepositoryインターフェースを満たすことを検証
func TestPostgresUserRepo_ImplementsInterface(t *testing.T) {
	var _ UserRepository = (*PostgresUserRepo)(nil)
}

// PostgresSessionRepoはSessionRepositoryインターフェースを満たすことを検証
func TestPostgresSessionRepo_ImplementsInterface(t *testing.T) {
	var _ SessionRepository = (*PostgresSessionRepo)(nil)
}

// PostgresPostRepoはPostRepositoryインターフェースを満たすことを検証
func TestPostgresPostRepo_ImplementsInterface(t *testing.T) {
	var _ PostRepository = (*PostgresPostRepo)(nil)
}

// NewPostgresUserRepoが正しく初期化されることを検証
func TestNewPostgresUserRepo_Initializes(t *testing.T) {
	repo := NewPostgresUserRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// NewPostgresSessionRepoが正しく初期化されることを検証
func TestNewPostgresSessionRepo_Initializes(t *testing.T) {
	repo := NewPostgresSessionRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// NewPostgresPostRepoが正しく初期化されることを検証
func TestNewPostgresPostRepo_Initializes(t *testing.T) {
	repo := NewPostgresPostRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}
