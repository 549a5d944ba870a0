package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/lendman/internal/authz"
	"github.com/hitoshi/lendman/internal/model"
	"github.com/hitoshi/lendman/internal/repository"
)

// PaymentCollector は決済確認結果のメトリクス記録インターフェース。
type PaymentCollector interface {
	RecordPaymentConfirmed()
	RecordPaymentRejected()
}

// ServiceConfig は決済サービスの設定。
type ServiceConfig struct {
	WebhookSecret   string // コールバック署名の検証鍵
	FeeAmountCents  int64  // 申込手数料（固定額、商品金額から導出しない）
	FrontendBaseURL string // 成功・キャンセルリダイレクト先のベースURL
}

// Service は決済に関するビジネスロジックを提供する。
// チェックアウトセッションの作成と、署名検証つきの支払い確認を行う。
type Service struct {
	provider  CheckoutProvider
	appRepo   repository.ApplicationRepository
	collector PaymentCollector
	config    ServiceConfig
	now       func() time.Time
}

// NewService はServiceを生成する。
// nowがnilの場合はtime.Nowを使用する。
func NewService(
	provider CheckoutProvider,
	appRepo repository.ApplicationRepository,
	collector PaymentCollector,
	config ServiceConfig,
	now func() time.Time,
) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		provider:  provider,
		appRepo:   appRepo,
		collector: collector,
		config:    config,
		now:       now,
	}
}

// CreateCheckout は申込手数料のチェックアウトセッションを作成する。
// 申込者本人または管理者のみ実行できる。
// セッションには申込のメタデータ（申込ID、商品ID、申込者名）を持たせ、
// 成功リダイレクトが申込IDとトランザクションIDをこのサービスに返せるようにする。
func (s *Service) CreateCheckout(ctx context.Context, identity *model.Identity, applicationID string) (*CheckoutSession, error) {
	app, err := s.appRepo.FindByID(ctx, applicationID)
	if err != nil {
		return nil, fmt.Errorf("申込の取得に失敗しました: %w", err)
	}
	if app == nil {
		return nil, model.NewApplicationNotFoundError(applicationID)
	}
	if err := authz.RequireOwnerOrAdmin(identity, app.UserEmail); err != nil {
		return nil, err
	}

	session, err := s.provider.CreateCheckoutSession(ctx, CheckoutRequest{
		ApplicationID:  app.ID,
		LoanID:         app.LoanID,
		ApplicantName:  identity.Name,
		ApplicantEmail: app.UserEmail,
		AmountCents:    s.config.FeeAmountCents,
		SuccessURL:     s.config.FrontendBaseURL + "/payment/success?application_id=" + app.ID,
		CancelURL:      s.config.FrontendBaseURL + "/payment/cancel",
	})
	if err != nil {
		return nil, fmt.Errorf("チェックアウトセッションの作成に失敗しました: %w", err)
	}

	slog.Info("checkout session created",
		slog.String("application_id", app.ID),
		slog.String("session_id", session.ID),
	)

	return session, nil
}

// ConfirmPayment は支払い完了コールバックを検証し、手数料を支払い済みにする。
// クライアント提供のトランザクションIDを信用せず、プロバイダー発行の秘密鍵に
// よるHMAC署名の検証を必須とする。検証に失敗した場合は状態を変更せず
// 型付きの拒否エラーを返す。
// 検証成功時はfee_status=paid、transaction_id、paid_atを記録し、
// 更新件数を返す。該当申込がない場合は0件を返す。
// 冪等性は強制しない: 同一申込への再確認は前回の確認を上書きする。
func (s *Service) ConfirmPayment(ctx context.Context, applicationID, transactionID, signature string) (int64, error) {
	// 1. 署名検証（検証前に状態を変更しない）
	if !s.verifySignature(applicationID, transactionID, signature) {
		if s.collector != nil {
			s.collector.RecordPaymentRejected()
		}
		slog.Warn("payment confirmation rejected",
			slog.String("application_id", applicationID),
		)
		return 0, model.NewPaymentRejectedError()
	}

	// 2. 支払い確認の記録
	modified, err := s.appRepo.ConfirmPayment(ctx, applicationID, transactionID, s.now())
	if err != nil {
		return 0, fmt.Errorf("支払い確認の記録に失敗しました: %w", err)
	}

	if modified > 0 {
		if s.collector != nil {
			s.collector.RecordPaymentConfirmed()
		}
		slog.Info("payment confirmed",
			slog.String("application_id", applicationID),
			slog.String("transaction_id", transactionID),
		)
	}

	return modified, nil
}

// verifySignature はコールバック署名を検証する。
// 署名は "applicationID.transactionID" に対するHMAC-SHA256のhex表現。
// 比較はタイミング攻撃を避けるため定数時間で行う。
func (s *Service) verifySignature(applicationID, transactionID, signature string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(s.config.WebhookSecret))
	mac.Write([]byte(applicationID + "." + transactionID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// SignConfirmation は確認ペイロードの署名を生成する。
// テストおよびプロバイダーシミュレーション用。
func SignConfirmation(secret, applicationID, transactionID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(applicationID + "." + transactionID))
	return hex.EncodeToString(mac.Sum(nil))
}
