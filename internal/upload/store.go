// Package upload は添付画像ファイルの検証と保存を提供する。
package upload

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hitoshi/tsuzuri/internal/model"
)

// FieldName はアップロードフォームのファイルフィールド名。
const FieldName = "image"

// PublicPrefix は保存した画像の公開URLパスの接頭辞。
const PublicPrefix = "/uploads/"

// allowedExtensions は受け付ける拡張子（小文字）。
var allowedExtensions = map[string]bool{
	".jpeg": true,
	".jpg":  true,
	".png":  true,
	".gif":  true,
}

// allowedMIMETypes は受け付けるContent-Type。
var allowedMIMETypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/gif":  true,
}

// Store は画像ファイルをローカルディスクに保存するアップロードストア。
// 保存先ディレクトリは静的配信され、返すパスはそのままPost.ImagePathに格納できる。
type Store struct {
	dir      string
	maxBytes int64
}

// NewStore はStoreを生成し、保存先ディレクトリを作成する。
func NewStore(dir string, maxBytes int64) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &Store{dir: dir, maxBytes: maxBytes}, nil
}

// SaveImage はアップロードされた画像を検証して保存し、公開パスを返す。
// 検証内容:
//   - 拡張子がjpeg/jpg/png/gifのいずれか（大文字小文字を区別しない）
//   - 申告されたContent-Typeが同じ許可リストに含まれる
//   - サイズがmaxBytes以下
//
// いずれかに失敗した場合はuploadカテゴリのAppErrorを返し、ファイルは一切書き込まない。
// 保存名は「image-<ナノ秒タイムスタンプ><拡張子>」で衝突を避ける。
func (s *Store) SaveImage(file multipart.File, header *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedExtensions[ext] {
		return "", model.NewInvalidUploadError(fmt.Sprintf("拡張子 %q は許可されていません", ext))
	}

	contentType := strings.ToLower(header.Header.Get("Content-Type"))
	if !allowedMIMETypes[contentType] {
		return "", model.NewInvalidUploadError(fmt.Sprintf("Content-Type %q は許可されていません", contentType))
	}

	if header.Size > s.maxBytes {
		return "", model.NewUploadTooLargeError(header.Size, s.maxBytes)
	}

	name := fmt.Sprintf("%s-%d%s", FieldName, time.Now().UnixNano(), ext)
	dstPath := filepath.Join(s.dir, name)

	dst, err := os.Create(dstPath)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	defer dst.Close()

	// 申告サイズを信用せず、書き込み量も上限で打ち切る
	written, err := io.Copy(dst, io.LimitReader(file, s.maxBytes+1))
	if err != nil {
		os.Remove(dstPath)
		return "", fmt.Errorf("failed to write upload file: %w", err)
	}
	if written > s.maxBytes {
		os.Remove(dstPath)
		return "", model.NewUploadTooLargeError(written, s.maxBytes)
	}

	return PublicPrefix + name, nil
}

// Remove は公開パスで指定された画像ファイルを削除する。
// パスの要素はファイル名だけを使用し、ディレクトリ外への到達を防ぐ。
// ファイルが既に存在しない場合はエラーにしない（冪等）。
func (s *Store) Remove(imagePath string) error {
	name := filepath.Base(strings.TrimPrefix(imagePath, PublicPrefix))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return nil
	}
	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove image file: %w", err)
	}
	return nil
}

// Dir は保存先ディレクトリを返す。静的配信とcleanupワーカーが使用する。
func (s *Store) Dir() string {
	return s.dir
}
