// Package notification は通知のファンアウトと閲覧管理を提供する。
// ライフサイクルイベント（融資商品の公開、申込の審査決定）から
// 通知レコードを導出して永続化する。
package notification

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

// EmailLister は全受信者のemail取得インターフェース。
// repository.UserRepositoryの部分集合として定義する。
type EmailLister interface {
	ListEmails(ctx context.Context) ([]string, error)
}

// ApplicationFinder は申込の取得インターフェース。
// repository.ApplicationRepositoryの部分集合として定義する。
type ApplicationFinder interface {
	FindByID(ctx context.Context, id string) (*model.Application, error)
}

// FanoutCollector はファンアウト結果のメトリクス記録インターフェース。
type FanoutCollector interface {
	RecordFanoutSuccess(count int)
	RecordFanoutFailure()
	RecordDecisionNotified(status string)
}

// Service は通知のファンアウトと閲覧管理のサービス層。
type Service struct {
	notifRepo repository.NotificationRepository
	users     EmailLister
	apps      ApplicationFinder
	collector FanoutCollector
	now       func() time.Time
}

// NewService はServiceを生成する。
// collectorはnil可（メトリクス収集なしで動作する）。
// nowがnilの場合はtime.Nowを使用する。
func NewService(
	notifRepo repository.NotificationRepository,
	users EmailLister,
	apps ApplicationFinder,
	collector FanoutCollector,
	now func() time.Time,
) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		notifRepo: notifRepo,
		users:     users,
		apps:      apps,
		collector: collector,
		now:       now,
	}
}

// BroadcastNewLoan は全ユーザーに新着融資商品の通知をファンアウトする。
// ユーザー1人につき1件の通知を合成し、一括INSERTで書き込む。
// 作成した通知数を返す。失敗はメトリクスに記録したうえでエラーを返すが、
// 呼び出し元（融資商品の作成パス）はこのエラーで主リソースの書き込みを
// 取り消してはならない。
func (s *Service) BroadcastNewLoan(ctx context.Context, loan *model.Loan) (int, error) {
	emails, err := s.users.ListEmails(ctx)
	if err != nil {
		s.recordFanoutFailure()
		return 0, fmt.Errorf("ファンアウト対象ユーザーの取得に失敗しました: %w", err)
	}
	if len(emails) == 0 {
		return 0, nil
	}

	now := s.now()
	notifications := make([]*model.Notification, 0, len(emails))
	for _, email := range emails {
		notifications = append(notifications, &model.Notification{
			ID:        uuid.New().String(),
			UserEmail: email,
			Message:   fmt.Sprintf("New loan available: %s", loan.Title),
			Type:      model.NotificationInfo,
			Path:      "/loans/" + loan.ID,
			Timestamp: now,
			Read:      false,
		})
	}

	if err := s.notifRepo.CreateMany(ctx, notifications); err != nil {
		s.recordFanoutFailure()
		return 0, fmt.Errorf("通知の一括作成に失敗しました: %w", err)
	}

	if s.collector != nil {
		s.collector.RecordFanoutSuccess(len(notifications))
	}
	slog.Info("new loan broadcast",
		slog.String("loan_id", loan.ID),
		slog.Int("recipient_count", len(notifications)),
	)

	return len(notifications), nil
}

// NotifyDecision は審査決定の通知を申込者に1件作成する。
// 受信者emailと商品名を回復するため申込を再読み込みする。
// 申込が見つからない場合は何もしない（状態更新が0件だったケース）。
func (s *Service) NotifyDecision(ctx context.Context, applicationID string, newStatus model.ApplicationStatus) error {
	app, err := s.apps.FindByID(ctx, applicationID)
	if err != nil {
		return fmt.Errorf("申込の再読み込みに失敗しました: %w", err)
	}
	if app == nil {
		return nil
	}

	notifType := model.NotificationError
	if newStatus == model.StatusApproved {
		notifType = model.NotificationSuccess
	}

	n := &model.Notification{
		ID:        uuid.New().String(),
		UserEmail: app.UserEmail,
		Message:   fmt.Sprintf("Your application for %s has been %s.", app.LoanTitle, newStatus),
		Type:      notifType,
		Timestamp: s.now(),
		Read:      false,
	}

	if err := s.notifRepo.Create(ctx, n); err != nil {
		return fmt.Errorf("審査結果通知の作成に失敗しました: %w", err)
	}

	if s.collector != nil {
		s.collector.RecordDecisionNotified(string(newStatus))
	}

	return nil
}

// ListForUser は呼び出し元自身の通知一覧をtimestamp降順で返す。
// 未読確認は時間に敏感なため、この読み取りパスのみ順序を保証する。
func (s *Service) ListForUser(ctx context.Context, identity *model.Identity) ([]*model.Notification, error) {
	return s.notifRepo.ListByUserEmail(ctx, identity.Email)
}

// MarkRead は指定通知を既読にし、更新件数を返す。冪等。
// 受信者本人または管理者のみ実行できる。
func (s *Service) MarkRead(ctx context.Context, identity *model.Identity, id string) (int64, error) {
	n, err := s.notifRepo.FindByID(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("通知の取得に失敗しました: %w", err)
	}
	if n == nil {
		return 0, nil
	}
	if err := authz.RequireOwnerOrAdmin(identity, n.UserEmail); err != nil {
		return 0, err
	}
	return s.notifRepo.MarkRead(ctx, id)
}

// MarkAllRead は呼び出し元自身の全未読通知を既読にし、更新件数を返す。冪等。
func (s *Service) MarkAllRead(ctx context.Context, identity *model.Identity) (int64, error) {
	return s.notifRepo.MarkAllRead(ctx, identity.Email)
}

// Delete は指定通知を削除し、削除件数を返す。
// 受信者本人または管理者のみ実行できる。
func (s *Service) Delete(ctx context.Context, identity *model.Identity, id string) (int64, error) {
	n, err := s.notifRepo.FindByID(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("通知の取得に失敗しました: %w", err)
	}
	if n == nil {
		return 0, nil
	}
	if err := authz.RequireOwnerOrAdmin(identity, n.UserEmail); err != nil {
		return 0, err
	}
	return s.notifRepo.Delete(ctx, id)
}

// recordFanoutFailure はファンアウト失敗をメトリクスに記録する。
func (s *Service) recordFanoutFailure() {
	if s.collector != nil {
		s.collector.RecordFanoutFailure()
	}
}
