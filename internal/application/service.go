// Package application は融資申込のライフサイクル管理を提供する。
// 審査状態の遷移検証と、決定イベントの通知エンジンへの連携を担う。
package application

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

// LoanFinder は融資商品の取得インターフェース。
// repository.LoanRepositoryの部分集合として定義する。
type LoanFinder interface {
	FindByID(ctx context.Context, id string) (*model.Loan, error)
}

// DecisionNotifier は審査決定の通知インターフェース。
// notification.Serviceの部分集合として定義する。
type DecisionNotifier interface {
	NotifyDecision(ctx context.Context, applicationID string, newStatus model.ApplicationStatus) error
}

// Service は融資申込のサービス層。
type Service struct {
	appRepo  repository.ApplicationRepository
	loans    LoanFinder
	notifier DecisionNotifier
	now      func() time.Time
}

// NewService はServiceを生成する。
// nowがnilの場合はtime.Nowを使用する。
func NewService(
	appRepo repository.ApplicationRepository,
	loans LoanFinder,
	notifier DecisionNotifier,
	now func() time.Time,
) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		appRepo:  appRepo,
		loans:    loans,
		notifier: notifier,
		now:      now,
	}
}

// Create は申込者として新規の融資申込を作成する。
// 初期状態はstatus=pending、fee_status=unpaid。
// 商品名はクライアント入力を信用せず融資商品から解決する。
// 同一商品への重複申込は許容する（一意性の制約は設けない）。
func (s *Service) Create(ctx context.Context, identity *model.Identity, loanID string) (*model.Application, error) {
	loan, err := s.loans.FindByID(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("融資商品の取得に失敗しました: %w", err)
	}
	if loan == nil {
		return nil, model.NewLoanNotFoundError(loanID)
	}

	app := &model.Application{
		ID:        uuid.New().String(),
		UserEmail: identity.Email,
		LoanID:    loan.ID,
		LoanTitle: loan.Title,
		Status:    model.StatusPending,
		FeeStatus: model.FeeUnpaid,
		CreatedAt: s.now(),
	}

	if err := s.appRepo.Create(ctx, app); err != nil {
		return nil, fmt.Errorf("申込の作成に失敗しました: %w", err)
	}

	slog.Info("application created",
		slog.String("application_id", app.ID),
		slog.String("loan_id", loan.ID),
		slog.String("user_email", identity.Email),
	)

	return app, nil
}

// Get は指定IDの申込を取得する。
// 申込者本人・マネージャー・管理者のみ閲覧できる。
func (s *Service) Get(ctx context.Context, identity *model.Identity, id string) (*model.Application, error) {
	app, err := s.appRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("申込の取得に失敗しました: %w", err)
	}
	if app == nil {
		return nil, model.NewApplicationNotFoundError(id)
	}
	if authz.RequireRole(identity, model.RoleManager, model.RoleAdmin) != nil {
		if err := authz.RequireOwnerOrAdmin(identity, app.UserEmail); err != nil {
			return nil, err
		}
	}
	return app, nil
}

// List は申込一覧を返す。
// マネージャー・管理者は全件、申込者は自身の申込のみ。
func (s *Service) List(ctx context.Context, identity *model.Identity) ([]*model.Application, error) {
	if authz.RequireRole(identity, model.RoleManager, model.RoleAdmin) == nil {
		return s.appRepo.ListAll(ctx)
	}
	return s.appRepo.ListByUserEmail(ctx, identity.Email)
}

// UpdateStatus は審査状態を更新し、更新件数を返す。
// マネージャーまたは管理者のみ実行できる。
// 遷移テーブル（pending→approved、pending→rejected）に反する遷移は
// 型付きエラーとして拒否する。
// 更新が1件以上あった場合のみ決定イベントを通知エンジンに渡す。
// 該当申込がない場合は0件を返し、通知は作成されない。
func (s *Service) UpdateStatus(ctx context.Context, identity *model.Identity, id string, newStatus model.ApplicationStatus) (int64, error) {
	if err := authz.RequireRole(identity, model.RoleManager, model.RoleAdmin); err != nil {
		return 0, err
	}

	// 1. 現在の状態を取得（存在しない場合は0件更新として扱う）
	app, err := s.appRepo.FindByID(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("申込の取得に失敗しました: %w", err)
	}
	if app == nil {
		return 0, nil
	}

	// 2. 状態遷移の検証
	if err := model.ValidateStatusTransition(app.Status, newStatus); err != nil {
		return 0, err
	}

	// 3. 状態の書き込み
	modified, err := s.appRepo.UpdateStatus(ctx, id, newStatus)
	if err != nil {
		return 0, fmt.Errorf("審査状態の更新に失敗しました: %w", err)
	}

	// 4. 更新があった場合のみ決定通知を作成する。
	// 通知の失敗で主リソースの更新を取り消すことはしない（ベストエフォート）。
	if modified > 0 {
		if err := s.notifier.NotifyDecision(ctx, id, newStatus); err != nil {
			slog.Error("failed to notify application decision",
				slog.String("application_id", id),
				slog.String("status", string(newStatus)),
				slog.String("error", err.Error()),
			)
		}
	}

	return modified, nil
}

// Cancel は申込を削除し、削除件数を返す。
// 申込者本人または管理者のみ実行できる。
// 該当申込がない場合は0件を返す。
func (s *Service) Cancel(ctx context.Context, identity *model.Identity, id string) (int64, error) {
	app, err := s.appRepo.FindByID(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("申込の取得に失敗しました: %w", err)
	}
	if app == nil {
		return 0, nil
	}

	if err := authz.RequireOwnerOrAdmin(identity, app.UserEmail); err != nil {
		return 0, err
	}

	deleted, err := s.appRepo.Delete(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("申込の削除に失敗しました: %w", err)
	}

	slog.Info("application cancelled",
		slog.String("application_id", id),
		slog.String("requested_by", identity.Email),
	)

	return deleted, nil
}
