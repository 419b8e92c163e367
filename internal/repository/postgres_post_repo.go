package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/tsuzuri/internal/model"
)

// PostgresPostRepo はPostgreSQLを使用した記事リポジトリ。
type PostgresPostRepo struct {
	db *sql.DB
}

// NewPostgresPostRepo はPostgresPostRepoを生成する。
func NewPostgresPostRepo(db *sql.DB) *PostgresPostRepo {
	return &PostgresPostRepo{db: db}
}

// FindByID は指定IDの記事を取得する。見つからない場合はnilを返す。
func (r *PostgresPostRepo) FindByID(ctx context.Context, id string) (*model.Post, error) {
	post := &model.Post{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, content, image_path, author_id, created_at, updated_at
		 FROM posts WHERE id = $1`,
		id,
	).Scan(&post.ID, &post.Title, &post.Content, &post.ImagePath, &post.AuthorID, &post.CreatedAt, &post.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find post by ID: %w", err)
	}

	return post, nil
}

// FindByIDWithAuthor は指定IDの記事を投稿者情報付きで取得する。見つからない場合はnilを返す。
func (r *PostgresPostRepo) FindByIDWithAuthor(ctx context.Context, id string) (*model.PostWithAuthor, error) {
	post := &model.PostWithAuthor{}
	err := r.db.QueryRowContext(ctx,
		`SELECT p.id, p.title, p.content, p.image_path, p.author_id, p.created_at, p.updated_at, u.username
		 FROM posts p
		 JOIN users u ON u.id = p.author_id
		 WHERE p.id = $1`,
		id,
	).Scan(&post.ID, &post.Title, &post.Content, &post.ImagePath, &post.AuthorID,
		&post.CreatedAt, &post.UpdatedAt, &post.AuthorName)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find post with author: %w", err)
	}

	return post, nil
}

// ListAllWithAuthors は全記事を投稿者情報付きでcreated_at降順（新しい順）に返す。
func (r *PostgresPostRepo) ListAllWithAuthors(ctx context.Context) ([]model.PostWithAuthor, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT p.id, p.title, p.content, p.image_path, p.author_id, p.created_at, p.updated_at, u.username
		 FROM posts p
		 JOIN users u ON u.id = p.author_id
		 ORDER BY p.created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	var posts []model.PostWithAuthor
	for rows.Next() {
		var post model.PostWithAuthor
		if err := rows.Scan(&post.ID, &post.Title, &post.Content, &post.ImagePath, &post.AuthorID,
			&post.CreatedAt, &post.UpdatedAt, &post.AuthorName); err != nil {
			return nil, fmt.Errorf("failed to scan post row: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate post rows: %w", err)
	}

	return posts, nil
}

// Create は記事を作成する。
func (r *PostgresPostRepo) Create(ctx context.Context, post *model.Post) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO posts (id, title, content, image_path, author_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		post.ID, post.Title, post.Content, post.ImagePath, post.AuthorID, post.CreatedAt, post.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert post: %w", err)
	}
	return nil
}

// Update は記事のtitle、content、image_path、updated_atを更新する。
// author_idとcreated_atは変更しない。
func (r *PostgresPostRepo) Update(ctx context.Context, post *model.Post) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE posts
		 SET title = $1, content = $2, image_path = $3, updated_at = $4
		 WHERE id = $5`,
		post.Title, post.Content, post.ImagePath, post.UpdatedAt, post.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update post: %w", err)
	}
	return nil
}

// Delete は指定IDの記事を削除する。削除対象が存在しない場合はfalseを返す。
func (r *PostgresPostRepo) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM posts WHERE id = $1`,
		id,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete post: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// ListImagePaths は全記事のimage_path（空を除く）を返す。
func (r *PostgresPostRepo) ListImagePaths(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT image_path FROM posts WHERE image_path <> ''`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list image paths: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, fmt.Errorf("failed to scan image path: %w", err)
		}
		paths = append(paths, path)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate image path rows: %w", err)
	}

	return paths, nil
}

// compile-time interface check
var _ PostRepository = (*PostgresPostRepo)(nil)
