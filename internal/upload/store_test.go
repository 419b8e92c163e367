package upload

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hitoshi/tsuzuri/internal/model"
)

// multipartFile はテスト用のmultipartリクエストを組み立てて
// ファイルとヘッダーを取り出すヘルパー。
func multipartFile(t *testing.T, filename, contentType string, content []byte) (multipart.File, *multipart.FileHeader) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="`+FieldName+`"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		t.Fatalf("failed to create part: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("failed to write part: %v", err)
	}
	w.Close()

	req := httptest.NewRequest("POST", "/posts", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	file, header, err := req.FormFile(FieldName)
	if err != nil {
		t.Fatalf("failed to read form file: %v", err)
	}
	t.Cleanup(func() { file.Close() })
	return file, header
}

func newTestStore(t *testing.T, maxBytes int64) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir(), maxBytes)
	if err != nil {
		t.Fatalf("NewStore returned error: %v", err)
	}
	return store
}

// 有効なpngの保存が成功し、公開パスが返ることを検証
func TestSaveImage_ValidPNG(t *testing.T) {
	store := newTestStore(t, 10000000)
	file, header := multipartFile(t, "photo.png", "image/png", bytes.Repeat([]byte{0xAB}, 1024))

	path, err := store.SaveImage(file, header)
	if err != nil {
		t.Fatalf("SaveImage returned error: %v", err)
	}
	if !strings.HasPrefix(path, PublicPrefix+FieldName+"-") {
		t.Errorf("path = %q, want prefix %q", path, PublicPrefix+FieldName+"-")
	}
	if !strings.HasSuffix(path, ".png") {
		t.Errorf("path = %q, want .png suffix", path)
	}

	// ファイルが実際に書き込まれている
	name := strings.TrimPrefix(path, PublicPrefix)
	data, err := os.ReadFile(filepath.Join(store.Dir(), name))
	if err != nil {
		t.Fatalf("stored file not readable: %v", err)
	}
	if len(data) != 1024 {
		t.Errorf("stored %d bytes, want 1024", len(data))
	}
}

// 大文字拡張子も受け付けることを検証
func TestSaveImage_CaseInsensitiveExtension(t *testing.T) {
	store := newTestStore(t, 10000000)
	file, header := multipartFile(t, "PHOTO.JPG", "image/jpeg", []byte("data"))

	if _, err := store.SaveImage(file, header); err != nil {
		t.Errorf("SaveImage returned error for uppercase extension: %v", err)
	}
}

// 許可外拡張子（.exe）が拒否されることを検証
func TestSaveImage_RejectsExecutable(t *testing.T) {
	store := newTestStore(t, 10000000)
	file, header := multipartFile(t, "malware.exe", "image/png", []byte("data"))

	_, err := store.SaveImage(file, header)
	if err == nil {
		t.Fatal("expected error for .exe upload, got nil")
	}
	appErr, ok := model.AsAppError(err)
	if !ok || appErr.Code != model.ErrCodeInvalidUpload {
		t.Errorf("error = %v, want code %s", err, model.ErrCodeInvalidUpload)
	}
	assertDirEmpty(t, store.Dir())
}

// 拡張子は正しいがContent-Typeが画像でない場合の拒否を検証
func TestSaveImage_RejectsMismatchedContentType(t *testing.T) {
	store := newTestStore(t, 10000000)
	file, header := multipartFile(t, "fake.png", "application/octet-stream", []byte("data"))

	_, err := store.SaveImage(file, header)
	if err == nil {
		t.Fatal("expected error for non-image content type, got nil")
	}
	appErr, ok := model.AsAppError(err)
	if !ok || appErr.Code != model.ErrCodeInvalidUpload {
		t.Errorf("error = %v, want code %s", err, model.ErrCodeInvalidUpload)
	}
	assertDirEmpty(t, store.Dir())
}

// サイズ上限以下は成功、超過は拒否されることを検証
func TestSaveImage_SizeLimit(t *testing.T) {
	// 上限10MBに対して5MBは成功
	store := newTestStore(t, 10000000)
	file, header := multipartFile(t, "big.png", "image/png", bytes.Repeat([]byte{0x01}, 5_000_000))
	if _, err := store.SaveImage(file, header); err != nil {
		t.Errorf("SaveImage(5MB) returned error: %v", err)
	}

	// 上限10MBに対して15MBは拒否
	store2 := newTestStore(t, 10000000)
	file2, header2 := multipartFile(t, "huge.png", "image/png", bytes.Repeat([]byte{0x01}, 15_000_000))
	_, err := store2.SaveImage(file2, header2)
	if err == nil {
		t.Fatal("expected error for 15MB upload, got nil")
	}
	appErr, ok := model.AsAppError(err)
	if !ok || appErr.Code != model.ErrCodeUploadTooLarge {
		t.Errorf("error = %v, want code %s", err, model.ErrCodeUploadTooLarge)
	}
	assertDirEmpty(t, store2.Dir())
}

// Removeが保存ファイルを削除し、2回目も成功することを検証
func TestRemove_Idempotent(t *testing.T) {
	store := newTestStore(t, 10000000)
	file, header := multipartFile(t, "photo.png", "image/png", []byte("data"))

	path, err := store.SaveImage(file, header)
	if err != nil {
		t.Fatalf("SaveImage returned error: %v", err)
	}

	if err := store.Remove(path); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}
	assertDirEmpty(t, store.Dir())

	if err := store.Remove(path); err != nil {
		t.Errorf("second Remove returned error: %v", err)
	}
}

// Removeがディレクトリ外のパスに到達しないことを検証
func TestRemove_IgnoresPathTraversal(t *testing.T) {
	base := t.TempDir()
	outside := filepath.Join(base, "secret.txt")
	if err := os.WriteFile(outside, []byte("keep"), 0o644); err != nil {
		t.Fatalf("failed to write outside file: %v", err)
	}

	store, err := NewStore(filepath.Join(base, "uploads"), 10000000)
	if err != nil {
		t.Fatalf("NewStore returned error: %v", err)
	}

	if err := store.Remove("/uploads/../secret.txt"); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}
	if _, err := os.Stat(outside); err != nil {
		t.Errorf("file outside upload dir was removed: %v", err)
	}
}

func assertDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("upload dir has %d entries, want 0", len(entries))
	}
}
