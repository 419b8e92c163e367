package post

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/tsuzuri/internal/model"
)

// --- モック ---

type mockPostRepo struct {
	posts map[string]*model.Post
}

func newMockPostRepo() *mockPostRepo {
	return &mockPostRepo{posts: map[string]*model.Post{}}
}

func (m *mockPostRepo) FindByID(ctx context.Context, id string) (*model.Post, error) {
	p, ok := m.posts[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}
func (m *mockPostRepo) FindByIDWithAuthor(ctx context.Context, id string) (*model.PostWithAuthor, error) {
	p, ok := m.posts[id]
	if !ok {
		return nil, nil
	}
	return &model.PostWithAuthor{Post: *p, AuthorName: "author"}, nil
}
func (m *mockPostRepo) ListAllWithAuthors(ctx context.Context) ([]model.PostWithAuthor, error) {
	var out []model.PostWithAuthor
	for _, p := range m.posts {
		out = append(out, model.PostWithAuthor{Post: *p, AuthorName: "author"})
	}
	// created_at降順（リポジトリ実装のORDER BYを模倣）
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
func (m *mockPostRepo) Create(ctx context.Context, post *model.Post) error {
	cp := *post
	m.posts[post.ID] = &cp
	return nil
}
func (m *mockPostRepo) Update(ctx context.Context, post *model.Post) error {
	cp := *post
	m.posts[post.ID] = &cp
	return nil
}
func (m *mockPostRepo) Delete(ctx context.Context, id string) (bool, error) {
	if _, ok := m.posts[id]; !ok {
		return false, nil
	}
	delete(m.posts, id)
	return true, nil
}
func (m *mockPostRepo) ListImagePaths(ctx context.Context) ([]string, error) {
	var paths []string
	for _, p := range m.posts {
		if p.ImagePath != "" {
			paths = append(paths, p.ImagePath)
		}
	}
	return paths, nil
}

type mockUserRepo struct {
	users map[string]*model.User
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	return u, nil
}
func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return nil, nil
}
func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	return nil
}

// passthroughSanitizer は入力をそのまま返すサニタイザ。
type passthroughSanitizer struct{}

func (passthroughSanitizer) Sanitize(rawHTML string) string { return rawHTML }

// markingSanitizer はサニタイズが呼ばれたことを記録する。
type markingSanitizer struct {
	called bool
}

func (m *markingSanitizer) Sanitize(rawHTML string) string {
	m.called = true
	return rawHTML
}

type mockImageRemover struct {
	removed []string
}

func (m *mockImageRemover) Remove(imagePath string) error {
	m.removed = append(m.removed, imagePath)
	return nil
}

// --- テストヘルパー ---

func newTestService(t *testing.T) (*Service, *mockPostRepo, *mockImageRemover, string) {
	t.Helper()
	authorID := uuid.New().String()
	postRepo := newMockPostRepo()
	userRepo := &mockUserRepo{users: map[string]*model.User{
		authorID: {ID: authorID, Username: "alice"},
	}}
	remover := &mockImageRemover{}
	svc := NewService(postRepo, userRepo, passthroughSanitizer{}, remover)
	return svc, postRepo, remover, authorID
}

// --- テスト ---

// 作成された記事が投稿者と作成時刻を持つことを検証
func TestService_Create(t *testing.T) {
	svc, postRepo, _, authorID := newTestService(t)

	post, err := svc.Create(context.Background(), authorID, "タイトル", "本文", "/uploads/image-1.png")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if post.AuthorID != authorID {
		t.Errorf("AuthorID = %q, want %q", post.AuthorID, authorID)
	}
	if post.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
	if _, ok := postRepo.posts[post.ID]; !ok {
		t.Error("post was not persisted")
	}
}

// 実在しない投稿者での作成が拒否されることを検証
func TestService_Create_UnknownAuthor(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.Create(context.Background(), uuid.New().String(), "t", "c", "")
	if err == nil {
		t.Fatal("expected error for unknown author, got nil")
	}
	appErr, ok := model.AsAppError(err)
	if !ok || appErr.Code != model.ErrCodeUserNotFound {
		t.Errorf("error = %v, want code %s", err, model.ErrCodeUserNotFound)
	}
}

// 本文がサニタイザを通ってから保存されることを検証
func TestService_Create_SanitizesContent(t *testing.T) {
	authorID := uuid.New().String()
	userRepo := &mockUserRepo{users: map[string]*model.User{
		authorID: {ID: authorID, Username: "alice"},
	}}
	sanitizer := &markingSanitizer{}
	svc := NewService(newMockPostRepo(), userRepo, sanitizer, nil)

	if _, err := svc.Create(context.Background(), authorID, "t", `<script>x</script>`, ""); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if !sanitizer.called {
		t.Error("expected content to pass through sanitizer")
	}
}

// 空タイトル・空本文の作成が許容されることを検証（参照実装の挙動）
func TestService_Create_AllowsEmptyFields(t *testing.T) {
	svc, _, _, authorID := newTestService(t)

	if _, err := svc.Create(context.Background(), authorID, "", "", ""); err != nil {
		t.Errorf("Create with empty fields returned error: %v", err)
	}
}

// ListAllが作成時刻の降順で返すことを検証
func TestService_ListAll_NewestFirst(t *testing.T) {
	svc, postRepo, _, authorID := newTestService(t)

	base := time.Now()
	for i, title := range []string{"P1", "P2", "P3"} {
		id := uuid.New().String()
		postRepo.posts[id] = &model.Post{
			ID:        id,
			Title:     title,
			AuthorID:  authorID,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}
	}

	posts, err := svc.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll returned error: %v", err)
	}
	if len(posts) != 3 {
		t.Fatalf("len(posts) = %d, want 3", len(posts))
	}
	want := []string{"P3", "P2", "P1"}
	for i, p := range posts {
		if p.Title != want[i] {
			t.Errorf("posts[%d].Title = %q, want %q", i, p.Title, want[i])
		}
	}
}

// 不正な形式のIDがストアに渡らずNOT_FOUNDになることを検証
func TestService_Get_MalformedID(t *testing.T) {
	svc, _, _, _ := newTestService(t)

	_, err := svc.Get(context.Background(), "not-a-uuid")
	if err == nil {
		t.Fatal("expected error for malformed ID, got nil")
	}
	appErr, ok := model.AsAppError(err)
	if !ok || appErr.Code != model.ErrCodePostNotFound {
		t.Errorf("error = %v, want code %s", err, model.ErrCodePostNotFound)
	}
}

// 他人の記事の更新・削除が拒否され、記事が変更されないことを検証
func TestService_UpdateDelete_NotAuthor(t *testing.T) {
	svc, postRepo, _, authorID := newTestService(t)

	post, err := svc.Create(context.Background(), authorID, "original", "content", "")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	otherID := uuid.New().String()

	_, err = svc.Update(context.Background(), post.ID, otherID, UpdateFields{Title: "hacked", Content: "x"})
	if err == nil {
		t.Fatal("expected Update by non-author to fail")
	}
	appErr, ok := model.AsAppError(err)
	if !ok || appErr.Code != model.ErrCodeNotPostAuthor {
		t.Errorf("Update error = %v, want code %s", err, model.ErrCodeNotPostAuthor)
	}

	err = svc.Delete(context.Background(), post.ID, otherID)
	if err == nil {
		t.Fatal("expected Delete by non-author to fail")
	}
	appErr, ok = model.AsAppError(err)
	if !ok || appErr.Code != model.ErrCodeNotPostAuthor {
		t.Errorf("Delete error = %v, want code %s", err, model.ErrCodeNotPostAuthor)
	}

	// 記事が無変更であることを確認
	stored := postRepo.posts[post.ID]
	if stored == nil {
		t.Fatal("post was deleted by non-author")
	}
	if stored.Title != "original" {
		t.Errorf("Title = %q, want %q (unchanged)", stored.Title, "original")
	}
}

// 投稿者本人の更新でauthor_idとcreated_atが維持されることを検証
func TestService_Update_PreservesAuthorAndCreatedAt(t *testing.T) {
	svc, postRepo, _, authorID := newTestService(t)

	post, err := svc.Create(context.Background(), authorID, "before", "content", "")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	createdAt := postRepo.posts[post.ID].CreatedAt

	updated, err := svc.Update(context.Background(), post.ID, authorID, UpdateFields{Title: "after", Content: "new"})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.Title != "after" {
		t.Errorf("Title = %q, want %q", updated.Title, "after")
	}
	if updated.AuthorID != authorID {
		t.Errorf("AuthorID = %q, want %q (unchanged)", updated.AuthorID, authorID)
	}
	if !updated.CreatedAt.Equal(createdAt) {
		t.Errorf("CreatedAt changed: %v -> %v", createdAt, updated.CreatedAt)
	}
}

// 画像差し替え時に旧ファイルが削除され、差し替えなしでは維持されることを検証
func TestService_Update_ImageReplacement(t *testing.T) {
	svc, postRepo, remover, authorID := newTestService(t)

	post, err := svc.Create(context.Background(), authorID, "t", "c", "/uploads/image-old.png")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	// 画像なし更新: ImagePathは維持される
	updated, err := svc.Update(context.Background(), post.ID, authorID, UpdateFields{Title: "t2", Content: "c2"})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.ImagePath != "/uploads/image-old.png" {
		t.Errorf("ImagePath = %q, want unchanged", updated.ImagePath)
	}
	if len(remover.removed) != 0 {
		t.Errorf("removed %v, want no removals", remover.removed)
	}

	// 画像あり更新: 旧ファイルが削除される
	_, err = svc.Update(context.Background(), post.ID, authorID, UpdateFields{
		Title: "t3", Content: "c3", ImagePath: "/uploads/image-new.png", NewImage: true,
	})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if postRepo.posts[post.ID].ImagePath != "/uploads/image-new.png" {
		t.Errorf("ImagePath = %q, want new image", postRepo.posts[post.ID].ImagePath)
	}
	if len(remover.removed) != 1 || remover.removed[0] != "/uploads/image-old.png" {
		t.Errorf("removed = %v, want [/uploads/image-old.png]", remover.removed)
	}
}

// 削除で記事の行と画像ファイルの両方が消えることを検証
func TestService_Delete_RemovesRowAndImage(t *testing.T) {
	svc, postRepo, remover, authorID := newTestService(t)

	post, err := svc.Create(context.Background(), authorID, "t", "c", "/uploads/image-1.png")
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if err := svc.Delete(context.Background(), post.ID, authorID); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if _, ok := postRepo.posts[post.ID]; ok {
		t.Error("post row still exists after delete")
	}
	if len(remover.removed) != 1 || remover.removed[0] != "/uploads/image-1.png" {
		t.Errorf("removed = %v, want [/uploads/image-1.png]", remover.removed)
	}
}

// 存在しない記事の削除がNOT_FOUNDになることを検証
func TestService_Delete_NotFound(t *testing.T) {
	svc, _, _, authorID := newTestService(t)

	err := svc.Delete(context.Background(), uuid.New().String(), authorID)
	if err == nil {
		t.Fatal("expected error for nonexistent post, got nil")
	}
	appErr, ok := model.AsAppError(err)
	if !ok || appErr.Code != model.ErrCodePostNotFound {
		t.Errorf("error = %v, want code %s", err, model.ErrCodePostNotFound)
	}
}
