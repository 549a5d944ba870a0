// Package auth はサインインとセッショントークンの発行を提供する。
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/lendman/internal/model"
	"github.com/hitoshi/lendman/internal/repository"
)

// TokenIssuer はセッショントークン発行のインターフェース。
type TokenIssuer interface {
	// Issue は本人情報を署名付きトークンにエンコードする。
	Issue(identity model.Identity) (string, error)
	// MaxAge はトークンの有効期間を返す。
	MaxAge() time.Duration
}

// SignInResult はサインイン処理の結果。
type SignInResult struct {
	Token         string         // 署名付きセッショントークン
	MaxAge        time.Duration  // トークンの有効期間（Cookieの寿命に使う）
	Identity      model.Identity // トークンに格納した本人情報
	AlreadyExists bool           // 既存emailでのサインインだった場合true
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	issuer   TokenIssuer
	userRepo repository.UserRepository
	now      func() time.Time
}

// NewService はServiceを生成する。
// nowがnilの場合はtime.Nowを使用する。
func NewService(issuer TokenIssuer, userRepo repository.UserRepository, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		issuer:   issuer,
		userRepo: userRepo,
		now:      now,
	}
}

// SignIn はemailをキーにユーザーを作成または特定し、セッショントークンを発行する。
// email作成は冪等なupsert: 既存emailの場合はレコードを一切変更せず
// AlreadyExists=trueを報告する。トークンの本人情報は保存済みレコードに従う。
func (s *Service) SignIn(ctx context.Context, email, name string, role model.Role) (*SignInResult, error) {
	if email == "" {
		return nil, model.NewValidationError("emailは必須です。")
	}
	if !role.IsValid() {
		return nil, model.NewInvalidRoleError(string(role))
	}

	// 1. 既存ユーザーの検索
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの検索に失敗しました: %w", err)
	}

	alreadyExists := user != nil

	if user == nil {
		// 2. 新規ユーザーの作成
		now := s.now()
		user = &model.User{
			ID:        uuid.New().String(),
			Email:     email,
			Name:      name,
			Role:      role,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
		}
		slog.Info("new user created",
			slog.String("user_id", user.ID),
			slog.String("email", email),
			slog.String("role", string(role)),
		)
	} else {
		slog.Info("existing user signed in",
			slog.String("user_id", user.ID),
			slog.String("email", email),
		)
	}

	// 3. 保存済みレコードの内容でトークンを発行
	identity := model.Identity{
		Email: user.Email,
		Name:  user.Name,
		Role:  user.Role,
	}
	token, err := s.issuer.Issue(identity)
	if err != nil {
		return nil, fmt.Errorf("トークンの発行に失敗しました: %w", err)
	}

	return &SignInResult{
		Token:         token,
		MaxAge:        s.issuer.MaxAge(),
		Identity:      identity,
		AlreadyExists: alreadyExists,
	}, nil
}
