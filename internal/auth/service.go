// Package auth はユーザー登録、ログイン認証、セッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/tsuzuri/internal/model"
	"github.com/hitoshi/tsuzuri/internal/repository"
)

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
	BcryptCost    int // bcryptのコストファクタ
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	config      ServiceConfig
}

// NewService はServiceを生成する。
// BcryptCostが未指定（0以下）の場合はデフォルトの10を使用する。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	config ServiceConfig,
) *Service {
	if config.BcryptCost <= 0 {
		config.BcryptCost = 10
	}
	return &Service{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		config:      config,
	}
}

// Register は新規ユーザーを登録する。
// ユーザー名・パスワードが空の場合、またはユーザー名が重複している場合は
// validationカテゴリのAppErrorを返す。
// パスワードはbcryptでハッシュ化してから永続化し、平文は保持しない。
func (s *Service) Register(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return model.NewEmptyCredentialsError()
	}

	// 重複を事前チェックする。同時登録の競合はDBの一意制約が最終的に防ぐ。
	existing, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("failed to check existing username: %w", err)
	}
	if existing != nil {
		return model.NewDuplicateUsernameError(username)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.config.BcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:           uuid.New().String(),
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("new user registered",
		slog.String("user_id", user.ID),
		slog.String("username", username),
	)
	return nil
}

// Login はユーザー名とパスワードを検証し、セッションを発行する。
// ユーザー不在とパスワード不一致はいずれも同一のINVALID_CREDENTIALSエラーになる。
// 成功時はCookieに設定するためのセッションを返す。
func (s *Service) Login(ctx context.Context, username, password string) (*model.Session, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewInvalidCredentialsError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, model.NewInvalidCredentialsError()
	}

	session, err := s.createSession(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("user logged in",
		slog.String("user_id", user.ID),
		slog.String("username", username),
	)
	return session, nil
}

// Logout はセッションを破棄する。
// 既に存在しないセッションの破棄もエラーにしない（冪等）。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out", slog.String("session_id", sessionID))
	return nil
}

// GetCurrentUser はセッションから現在のユーザーを取得する。
// セッションが無効・期限切れの場合、またはユーザーが存在しない場合はnilを返す。
// 未ログイン状態の判定に使用するため、これらはエラーとして扱わない。
func (s *Service) GetCurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if sessionID == "" {
		return nil, nil
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, nil
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	session := &model.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
