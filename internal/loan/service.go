// Package loan は融資商品の掲載と管理のビジネスロジックを提供する。
package loan

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/lendman/internal/authz"
	"github.com/hitoshi/lendman/internal/model"
	"github.com/hitoshi/lendman/internal/repository"
)

// Sanitizer は説明文HTMLのサニタイズインターフェース。
type Sanitizer interface {
	Sanitize(rawHTML string) string
}

// Broadcaster は新着商品通知のファンアウトインターフェース。
type Broadcaster interface {
	BroadcastNewLoan(ctx context.Context, loan *model.Loan) (int, error)
}

// Input は融資商品の作成・更新の入力。
type Input struct {
	Title        string
	Description  string // 生HTML。保存前にサニタイズされる
	Category     string
	InterestRate float64
}

// Service は融資商品に関するビジネスロジックを提供する。
type Service struct {
	loanRepo    repository.LoanRepository
	sanitizer   Sanitizer
	broadcaster Broadcaster
	now         func() time.Time
}

// NewService はServiceを生成する。
// nowがnilの場合はtime.Nowを使用する。
func NewService(loanRepo repository.LoanRepository, sanitizer Sanitizer, broadcaster Broadcaster, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		loanRepo:    loanRepo,
		sanitizer:   sanitizer,
		broadcaster: broadcaster,
		now:         now,
	}
}

// Create は融資商品を掲載する。マネージャーまたは管理者のみ実行できる。
// 説明文は保存前にサニタイズされる。
// 掲載成功後、全ユーザーへの新着通知をベストエフォートでファンアウトする。
// ファンアウトの失敗は掲載結果に影響しない。
func (s *Service) Create(ctx context.Context, identity *model.Identity, input Input) (*model.Loan, error) {
	if err := authz.RequireRole(identity, model.RoleManager, model.RoleAdmin); err != nil {
		return nil, err
	}
	if input.Title == "" {
		return nil, model.NewValidationError("タイトルは必須です。")
	}

	now := s.now()
	loan := &model.Loan{
		ID:           uuid.New().String(),
		Title:        input.Title,
		Description:  s.sanitizer.Sanitize(input.Description),
		Category:     input.Category,
		InterestRate: input.InterestRate,
		AddedBy:      identity.Email,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.loanRepo.Create(ctx, loan); err != nil {
		return nil, fmt.Errorf("融資商品の作成に失敗しました: %w", err)
	}

	// 通知のファンアウト。主処理は既にコミット済みであり、失敗しても巻き戻さない。
	if _, err := s.broadcaster.BroadcastNewLoan(ctx, loan); err != nil {
		slog.Error("新着商品通知のファンアウトに失敗しました",
			slog.String("loan_id", loan.ID),
			slog.String("error", err.Error()),
		)
	}

	slog.Info("loan created",
		slog.String("loan_id", loan.ID),
		slog.String("added_by", identity.Email),
	)

	return loan, nil
}

// Get は指定IDの融資商品を取得する。認証済みであれば誰でも閲覧できる。
func (s *Service) Get(ctx context.Context, id string) (*model.Loan, error) {
	loan, err := s.loanRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("融資商品の取得に失敗しました: %w", err)
	}
	if loan == nil {
		return nil, model.NewLoanNotFoundError(id)
	}
	return loan, nil
}

// List は全融資商品を新しい順で返す。
func (s *Service) List(ctx context.Context) ([]*model.Loan, error) {
	return s.loanRepo.List(ctx)
}

// Update は融資商品を更新し、更新件数を返す。マネージャーまたは管理者のみ。
// 該当レコードがない場合は0件を返す。
func (s *Service) Update(ctx context.Context, identity *model.Identity, id string, input Input) (int64, error) {
	if err := authz.RequireRole(identity, model.RoleManager, model.RoleAdmin); err != nil {
		return 0, err
	}
	if input.Title == "" {
		return 0, model.NewValidationError("タイトルは必須です。")
	}

	existing, err := s.loanRepo.FindByID(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("融資商品の取得に失敗しました: %w", err)
	}
	if existing == nil {
		return 0, nil
	}

	existing.Title = input.Title
	existing.Description = s.sanitizer.Sanitize(input.Description)
	existing.Category = input.Category
	existing.InterestRate = input.InterestRate
	existing.UpdatedAt = s.now()

	modified, err := s.loanRepo.Update(ctx, existing)
	if err != nil {
		return 0, fmt.Errorf("融資商品の更新に失敗しました: %w", err)
	}
	return modified, nil
}

// Delete は融資商品を削除し、削除件数を返す。マネージャーまたは管理者のみ。
// 該当レコードがない場合は0件を返す。
func (s *Service) Delete(ctx context.Context, identity *model.Identity, id string) (int64, error) {
	if err := authz.RequireRole(identity, model.RoleManager, model.RoleAdmin); err != nil {
		return 0, err
	}

	deleted, err := s.loanRepo.Delete(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("融資商品の削除に失敗しました: %w", err)
	}
	return deleted, nil
}
