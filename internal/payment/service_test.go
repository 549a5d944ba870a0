package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/lendman/internal/model"
)

// --- モック ---

type mockAppRepo struct {
	findByIDFn       func(ctx context.Context, id string) (*model.Application, error)
	confirmPaymentFn func(ctx context.Context, id, transactionID string, paidAt time.Time) (int64, error)
}

func (m *mockAppRepo) FindByID(ctx context.Context, id string) (*model.Application, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockAppRepo) ListByUserEmail(ctx context.Context, email string) ([]*model.Application, error) {
	return nil, nil
}
func (m *mockAppRepo) ListAll(ctx context.Context) ([]*model.Application, error) {
	return nil, nil
}
func (m *mockAppRepo) Create(ctx context.Context, app *model.Application) error {
	return nil
}
func (m *mockAppRepo) UpdateStatus(ctx context.Context, id string, status model.ApplicationStatus) (int64, error) {
	return 0, nil
}
func (m *mockAppRepo) ConfirmPayment(ctx context.Context, id, transactionID string, paidAt time.Time) (int64, error) {
	if m.confirmPaymentFn != nil {
		return m.confirmPaymentFn(ctx, id, transactionID, paidAt)
	}
	return 0, nil
}
func (m *mockAppRepo) Delete(ctx context.Context, id string) (int64, error) {
	return 0, nil
}

type mockProvider struct {
	lastRequest *CheckoutRequest
	session     *CheckoutSession
	err         error
}

func (m *mockProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	m.lastRequest = &req
	return m.session, m.err
}

type mockPaymentCollector struct {
	confirmed int
	rejected  int
}

func (m *mockPaymentCollector) RecordPaymentConfirmed() { m.confirmed++ }
func (m *mockPaymentCollector) RecordPaymentRejected()  { m.rejected++ }

const testWebhookSecret = "whsec_test"

func newTestService(repo *mockAppRepo, provider *mockProvider, collector *mockPaymentCollector, now func() time.Time) *Service {
	return NewService(provider, repo, collector, ServiceConfig{
		WebhookSecret:   testWebhookSecret,
		FeeAmountCents:  5000,
		FrontendBaseURL: "https://app.example.com",
	}, now)
}

var ownerIdentity = &model.Identity{Email: "taro@example.com", Name: "Taro", Role: model.RoleApplicant}

// --- CreateCheckout テスト ---

// 申込者本人がチェックアウトセッションを作成できることを検証
func TestService_CreateCheckout_Owner(t *testing.T) {
	repo := &mockAppRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Application, error) {
			return &model.Application{ID: id, LoanID: "loan-1", UserEmail: "taro@example.com"}, nil
		},
	}
	provider := &mockProvider{session: &CheckoutSession{ID: "cs_1", URL: "https://pay.example.com/cs_1"}}

	svc := newTestService(repo, provider, &mockPaymentCollector{}, nil)

	session, err := svc.CreateCheckout(context.Background(), ownerIdentity, "app-1")
	if err != nil {
		t.Fatalf("CreateCheckout failed: %v", err)
	}
	if session.ID != "cs_1" {
		t.Errorf("session ID = %q, want %q", session.ID, "cs_1")
	}

	req := provider.lastRequest
	if req == nil {
		t.Fatal("expected provider to be called")
	}
	if req.ApplicationID != "app-1" {
		t.Errorf("ApplicationID = %q, want %q", req.ApplicationID, "app-1")
	}
	if req.AmountCents != 5000 {
		t.Errorf("AmountCents = %d, want 5000", req.AmountCents)
	}
	if req.SuccessURL != "https://app.example.com/payment/success?application_id=app-1" {
		t.Errorf("unexpected SuccessURL: %q", req.SuccessURL)
	}
}

// 他人の申込に対するチェックアウト作成が拒否されることを検証
func TestService_CreateCheckout_NotOwner(t *testing.T) {
	repo := &mockAppRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Application, error) {
			return &model.Application{ID: id, UserEmail: "other@example.com"}, nil
		},
	}
	provider := &mockProvider{}

	svc := newTestService(repo, provider, &mockPaymentCollector{}, nil)

	_, err := svc.CreateCheckout(context.Background(), ownerIdentity, "app-1")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeForbidden {
		t.Fatalf("expected forbidden error, got: %v", err)
	}
	if provider.lastRequest != nil {
		t.Error("provider should not be called for forbidden request")
	}
}

// 存在しない申込に対するチェックアウト作成がエラーになることを検証
func TestService_CreateCheckout_ApplicationNotFound(t *testing.T) {
	repo := &mockAppRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Application, error) {
			return nil, nil
		},
	}

	svc := newTestService(repo, &mockProvider{}, &mockPaymentCollector{}, nil)

	_, err := svc.CreateCheckout(context.Background(), ownerIdentity, "missing")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeApplicationNotFound {
		t.Fatalf("expected application not found error, got: %v", err)
	}
}

// --- ConfirmPayment テスト ---

// 正しい署名で支払いが確認され、paid_atに現在時刻が記録されることを検証
func TestService_ConfirmPayment_ValidSignature(t *testing.T) {
	fixedNow := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	var gotID, gotTx string
	var gotPaidAt time.Time
	repo := &mockAppRepo{
		confirmPaymentFn: func(ctx context.Context, id, transactionID string, paidAt time.Time) (int64, error) {
			gotID = id
			gotTx = transactionID
			gotPaidAt = paidAt
			return 1, nil
		},
	}
	collector := &mockPaymentCollector{}

	svc := newTestService(repo, &mockProvider{}, collector, func() time.Time { return fixedNow })

	sig := SignConfirmation(testWebhookSecret, "app-1", "tx_123")
	modified, err := svc.ConfirmPayment(context.Background(), "app-1", "tx_123", sig)
	if err != nil {
		t.Fatalf("ConfirmPayment failed: %v", err)
	}
	if modified != 1 {
		t.Errorf("modified = %d, want 1", modified)
	}
	if gotID != "app-1" || gotTx != "tx_123" {
		t.Errorf("recorded (%q, %q), want (app-1, tx_123)", gotID, gotTx)
	}
	if !gotPaidAt.Equal(fixedNow) {
		t.Errorf("paidAt = %v, want %v", gotPaidAt, fixedNow)
	}
	if collector.confirmed != 1 {
		t.Errorf("confirmed metric = %d, want 1", collector.confirmed)
	}
}

// 署名が不正な場合に状態を変更せず拒否することを検証
func TestService_ConfirmPayment_InvalidSignature(t *testing.T) {
	repoCalled := false
	repo := &mockAppRepo{
		confirmPaymentFn: func(ctx context.Context, id, transactionID string, paidAt time.Time) (int64, error) {
			repoCalled = true
			return 1, nil
		},
	}
	collector := &mockPaymentCollector{}

	svc := newTestService(repo, &mockProvider{}, collector, nil)

	cases := []struct {
		name      string
		signature string
	}{
		{"空の署名", ""},
		{"別の鍵による署名", SignConfirmation("wrong-secret", "app-1", "tx_123")},
		{"別のペイロードの署名", SignConfirmation(testWebhookSecret, "app-1", "tx_999")},
		{"hexでない文字列", "not-a-signature"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.ConfirmPayment(context.Background(), "app-1", "tx_123", tc.signature)
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodePaymentRejected {
				t.Fatalf("expected payment rejected error, got: %v", err)
			}
		})
	}

	if repoCalled {
		t.Error("repository should not be touched for rejected confirmations")
	}
	if collector.rejected != len(cases) {
		t.Errorf("rejected metric = %d, want %d", collector.rejected, len(cases))
	}
}

// 該当申込がない場合に0件が返り、確認メトリクスが増えないことを検証
func TestService_ConfirmPayment_NoMatch(t *testing.T) {
	repo := &mockAppRepo{
		confirmPaymentFn: func(ctx context.Context, id, transactionID string, paidAt time.Time) (int64, error) {
			return 0, nil
		},
	}
	collector := &mockPaymentCollector{}

	svc := newTestService(repo, &mockProvider{}, collector, nil)

	sig := SignConfirmation(testWebhookSecret, "missing", "tx_123")
	modified, err := svc.ConfirmPayment(context.Background(), "missing", "tx_123", sig)
	if err != nil {
		t.Fatalf("ConfirmPayment failed: %v", err)
	}
	if modified != 0 {
		t.Errorf("modified = %d, want 0", modified)
	}
	if collector.confirmed != 0 {
		t.Errorf("confirmed metric = %d, want 0", collector.confirmed)
	}
}

// 同一申込への再確認が前回の確認を上書きすることを検証
func TestService_ConfirmPayment_Reconfirm(t *testing.T) {
	var lastTx string
	repo := &mockAppRepo{
		confirmPaymentFn: func(ctx context.Context, id, transactionID string, paidAt time.Time) (int64, error) {
			lastTx = transactionID
			return 1, nil
		},
	}

	svc := newTestService(repo, &mockProvider{}, &mockPaymentCollector{}, nil)

	for _, tx := range []string{"tx_first", "tx_second"} {
		sig := SignConfirmation(testWebhookSecret, "app-1", tx)
		if _, err := svc.ConfirmPayment(context.Background(), "app-1", tx, sig); err != nil {
			t.Fatalf("ConfirmPayment(%s) failed: %v", tx, err)
		}
	}
	if lastTx != "tx_second" {
		t.Errorf("last recorded transaction = %q, want %q", lastTx, "tx_second")
	}
}
