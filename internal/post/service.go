// Package post はブログ記事のドメインロジックを提供する。
package post

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/tsuzuri/internal/model"
	"github.com/hitoshi/tsuzuri/internal/repository"
)

// Sanitizer は記事本文のHTMLサニタイズインターフェース。
// security.ContentSanitizerServiceの部分集合として定義する。
type Sanitizer interface {
	Sanitize(rawHTML string) string
}

// ImageRemover は添付画像ファイルの削除インターフェース。
// 記事削除時に不要になった画像を片付けるために使用する。
type ImageRemover interface {
	Remove(imagePath string) error
}

// Service は記事のCRUDと投稿者限定の変更制御を提供する。
type Service struct {
	postRepo     repository.PostRepository
	userRepo     repository.UserRepository
	sanitizer    Sanitizer
	imageRemover ImageRemover
}

// NewService はServiceを生成する。
// imageRemoverはnil可（削除時の画像掃除を行わない構成用）。
func NewService(
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	sanitizer Sanitizer,
	imageRemover ImageRemover,
) *Service {
	return &Service{
		postRepo:     postRepo,
		userRepo:     userRepo,
		sanitizer:    sanitizer,
		imageRemover: imageRemover,
	}
}

// ListAll は全記事を投稿者付き・新しい順で返す。ページネーションは行わない。
func (s *Service) ListAll(ctx context.Context) ([]model.PostWithAuthor, error) {
	posts, err := s.postRepo.ListAllWithAuthors(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return posts, nil
}

// Get は指定IDの記事を投稿者付きで返す。
// 不正な形式のIDはストアに渡さず、存在しない記事と同じPOST_NOT_FOUNDとして扱う。
func (s *Service) Get(ctx context.Context, id string) (*model.PostWithAuthor, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, model.NewPostNotFoundError(id)
	}

	post, err := s.postRepo.FindByIDWithAuthor(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	if post == nil {
		return nil, model.NewPostNotFoundError(id)
	}
	return post, nil
}

// Create は新規記事を作成する。
// 本文はサニタイズしてから保存する。タイトル・本文の空文字列は許容する（参照実装の挙動を維持）。
// HTTP層の認証ゲートを通過済みでも、authorIDの実在は防御的に確認する。
func (s *Service) Create(ctx context.Context, authorID, title, content, imagePath string) (*model.Post, error) {
	author, err := s.userRepo.FindByID(ctx, authorID)
	if err != nil {
		return nil, fmt.Errorf("failed to verify author: %w", err)
	}
	if author == nil {
		return nil, model.NewUserNotFoundError()
	}

	now := time.Now()
	post := &model.Post{
		ID:        uuid.New().String(),
		Title:     title,
		Content:   s.sanitizer.Sanitize(content),
		ImagePath: imagePath,
		AuthorID:  authorID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	slog.Info("post created",
		slog.String("post_id", post.ID),
		slog.String("author_id", authorID),
	)
	return post, nil
}

// UpdateFields は更新対象のフィールドをまとめた構造体。
// ImagePathはNewImageがtrueの場合のみ反映される。
type UpdateFields struct {
	Title     string
	Content   string
	ImagePath string
	NewImage  bool
}

// Update は記事を更新する。
// 投稿者以外からの更新はNOT_POST_AUTHORで拒否し、一切の変更を加えない。
// author_idとcreated_atは更新しない。
func (s *Service) Update(ctx context.Context, id, requesterID string, fields UpdateFields) (*model.Post, error) {
	post, err := s.findOwned(ctx, id, requesterID)
	if err != nil {
		return nil, err
	}

	post.Title = fields.Title
	post.Content = s.sanitizer.Sanitize(fields.Content)
	oldImage := ""
	if fields.NewImage {
		oldImage = post.ImagePath
		post.ImagePath = fields.ImagePath
	}
	post.UpdatedAt = time.Now()

	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}

	// 差し替え前の画像は更新確定後に片付ける。失敗してもリクエストは成功扱い。
	if oldImage != "" && oldImage != post.ImagePath {
		s.removeImage(oldImage)
	}

	slog.Info("post updated",
		slog.String("post_id", post.ID),
		slog.String("author_id", requesterID),
	)
	return post, nil
}

// Delete は記事を削除する。
// 投稿者以外からの削除はNOT_POST_AUTHORで拒否する。
// 行の削除後、添付画像ファイルをベストエフォートで削除する
// （取りこぼしはcleanupワーカーが回収する）。
func (s *Service) Delete(ctx context.Context, id, requesterID string) error {
	post, err := s.findOwned(ctx, id, requesterID)
	if err != nil {
		return err
	}

	deleted, err := s.postRepo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	if !deleted {
		return model.NewPostNotFoundError(id)
	}

	if post.ImagePath != "" {
		s.removeImage(post.ImagePath)
	}

	slog.Info("post deleted",
		slog.String("post_id", id),
		slog.String("author_id", requesterID),
	)
	return nil
}

// findOwned は記事を取得し、requesterIDが投稿者であることを確認する。
// 記事の不在はPOST_NOT_FOUND、投稿者不一致はNOT_POST_AUTHORを返す。
// 双方のIDをuuid文字列の正準形に揃えてから比較する。
func (s *Service) findOwned(ctx context.Context, id, requesterID string) (*model.Post, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, model.NewPostNotFoundError(id)
	}

	post, err := s.postRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to find post: %w", err)
	}
	if post == nil {
		return nil, model.NewPostNotFoundError(id)
	}

	author, err := uuid.Parse(post.AuthorID)
	if err != nil {
		return nil, fmt.Errorf("stored author ID is not a valid uuid: %w", err)
	}
	requester, err := uuid.Parse(requesterID)
	if err != nil {
		return nil, model.NewNotPostAuthorError(id)
	}
	if author != requester {
		return nil, model.NewNotPostAuthorError(id)
	}

	return post, nil
}

// removeImage は添付画像ファイルを削除する。失敗はログのみに記録する。
func (s *Service) removeImage(imagePath string) {
	if s.imageRemover == nil {
		return
	}
	if err := s.imageRemover.Remove(imagePath); err != nil {
		slog.Warn("failed to remove image file",
			slog.String("image_path", imagePath),
			slog.String("error", err.Error()),
		)
	}
}
