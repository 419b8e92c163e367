// Package cleanup は定期掃除ジョブを提供する。
// 期限切れセッションの行削除と、どの記事からも参照されていない
// 孤児画像ファイルの回収を行う。記事削除時の画像削除はベストエフォートの
// ため、失敗分はこのジョブが回収する。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hitoshi/tsuzuri/internal/upload"
)

// SessionSweeper は期限切れセッションの一括削除インターフェース。
// repository.SessionRepositoryの部分集合として定義する。
type SessionSweeper interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// ImagePathLister は参照中の画像パス一覧の取得インターフェース。
// repository.PostRepositoryの部分集合として定義する。
type ImagePathLister interface {
	ListImagePaths(ctx context.Context) ([]string, error)
}

// Job は定期掃除ジョブ。冪等で、掃除対象がなくてもエラーにならない。
type Job struct {
	sessions  SessionSweeper
	posts     ImagePathLister
	uploadDir string
	logger    *slog.Logger

	// MinFileAge より新しいファイルは回収しない。
	// 記事の永続化前に保存された書き込み直後の画像を誤回収しないための猶予。
	MinFileAge time.Duration
}

// NewJob は新しいJobを生成する。デフォルトの猶予は1時間。
func NewJob(sessions SessionSweeper, posts ImagePathLister, uploadDir string, logger *slog.Logger) *Job {
	return &Job{
		sessions:   sessions,
		posts:      posts,
		uploadDir:  uploadDir,
		logger:     logger,
		MinFileAge: time.Hour,
	}
}

// Run は期限切れセッションの削除と孤児画像の回収を1回実行する。
func (j *Job) Run(ctx context.Context) error {
	start := time.Now()

	expiredSessions, err := j.sessions.DeleteExpired(ctx)
	if err != nil {
		j.logger.Error("期限切れセッションの削除に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	orphanImages, err := j.sweepOrphanImages(ctx)
	if err != nil {
		j.logger.Error("孤児画像の回収に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to sweep orphan images: %w", err)
	}

	j.logger.Info("クリーンアップジョブが完了しました",
		slog.Int64("expired_sessions", expiredSessions),
		slog.Int("orphan_images", orphanImages),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}

// sweepOrphanImages はアップロードディレクトリを走査し、
// どの記事のimage_pathからも参照されていないファイルを削除する。
// ディレクトリが存在しない場合は何もしない。
func (j *Job) sweepOrphanImages(ctx context.Context) (int, error) {
	paths, err := j.posts.ListImagePaths(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list referenced image paths: %w", err)
	}

	referenced := make(map[string]bool, len(paths))
	for _, p := range paths {
		referenced[filepath.Base(strings.TrimPrefix(p, upload.PublicPrefix))] = true
	}

	entries, err := os.ReadDir(j.uploadDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read upload directory: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || referenced[entry.Name()] {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if time.Since(info.ModTime()) < j.MinFileAge {
			continue
		}

		if err := os.Remove(filepath.Join(j.uploadDir, entry.Name())); err != nil {
			j.logger.Warn("failed to remove orphan image",
				slog.String("file", entry.Name()),
				slog.String("error", err.Error()),
			)
			continue
		}
		removed++
	}

	return removed, nil
}
