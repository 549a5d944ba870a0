package application

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
	listByUserFn     func(ctx context.Context, email string) ([]*model.Application, error)
	listAllFn        func(ctx context.Context) ([]*model.Application, error)
	createFn         func(ctx context.Context, app *model.Application) error
	updateStatusFn   func(ctx context.Context, id string, status model.ApplicationStatus) (int64, error)
	confirmPaymentFn func(ctx context.Context, id, transactionID string, paidAt time.Time) (int64, error)
	deleteFn         func(ctx context.Context, id string) (int64, error)
}

func (m *mockAppRepo) FindByID(ctx context.Context, id string) (*model.Application, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockAppRepo) ListByUserEmail(ctx context.Context, email string) ([]*model.Application, error) {
	if m.listByUserFn != nil {
		return m.listByUserFn(ctx, email)
	}
	return nil, nil
}
func (m *mockAppRepo) ListAll(ctx context.Context) ([]*model.Application, error) {
	if m.listAllFn != nil {
		return m.listAllFn(ctx)
	}
	return nil, nil
}
func (m *mockAppRepo) Create(ctx context.Context, app *model.Application) error {
	if m.createFn != nil {
		return m.createFn(ctx, app)
	}
	return nil
}
func (m *mockAppRepo) UpdateStatus(ctx context.Context, id string, status model.ApplicationStatus) (int64, error) {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(ctx, id, status)
	}
	return 0, nil
}
func (m *mockAppRepo) ConfirmPayment(ctx context.Context, id, transactionID string, paidAt time.Time) (int64, error) {
	if m.confirmPaymentFn != nil {
		return m.confirmPaymentFn(ctx, id, transactionID, paidAt)
	}
	return 0, nil
}
func (m *mockAppRepo) Delete(ctx context.Context, id string) (int64, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return 0, nil
}

type mockLoanFinder struct {
	findByIDFn func(ctx context.Context, id string) (*model.Loan, error)
}

func (m *mockLoanFinder) FindByID(ctx context.Context, id string) (*model.Loan, error) {
	return m.findByIDFn(ctx, id)
}

type mockNotifier struct {
	notified []model.ApplicationStatus
	err      error
}

func (m *mockNotifier) NotifyDecision(ctx context.Context, applicationID string, newStatus model.ApplicationStatus) error {
	m.notified = append(m.notified, newStatus)
	return m.err
}

var (
	applicantIdentity = &model.Identity{Email: "taro@example.com", Role: model.RoleApplicant}
	managerIdentity   = &model.Identity{Email: "manager@example.com", Role: model.RoleManager}
	adminIdentity     = &model.Identity{Email: "admin@example.com", Role: model.RoleAdmin}
)

// --- Create テスト ---

// 申込が初期状態pending・unpaidで作成されることを検証
func TestService_Create_InitialState(t *testing.T) {
	var created *model.Application
	repo := &mockAppRepo{
		createFn: func(ctx context.Context, app *model.Application) error {
			created = app
			return nil
		},
	}
	loans := &mockLoanFinder{
		findByIDFn: func(ctx context.Context, id string) (*model.Loan, error) {
			return &model.Loan{ID: id, Title: "Car Loan"}, nil
		},
	}

	svc := NewService(repo, loans, &mockNotifier{}, nil)

	app, err := svc.Create(context.Background(), applicantIdentity, "loan-1")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if created == nil {
		t.Fatal("expected application to be persisted")
	}
	if app.Status != model.StatusPending {
		t.Errorf("status = %q, want %q", app.Status, model.StatusPending)
	}
	if app.FeeStatus != model.FeeUnpaid {
		t.Errorf("fee status = %q, want %q", app.FeeStatus, model.FeeUnpaid)
	}
	if app.UserEmail != "taro@example.com" {
		t.Errorf("user email = %q, want taro@example.com", app.UserEmail)
	}
	// 商品名はクライアント入力ではなく商品レコードから解決される
	if app.LoanTitle != "Car Loan" {
		t.Errorf("loan title = %q, want Car Loan", app.LoanTitle)
	}
}

// 存在しない商品への申込が拒否されることを検証
func TestService_Create_LoanNotFound(t *testing.T) {
	loans := &mockLoanFinder{
		findByIDFn: func(ctx context.Context, id string) (*model.Loan, error) {
			return nil, nil
		},
	}

	svc := NewService(&mockAppRepo{}, loans, &mockNotifier{}, nil)

	_, err := svc.Create(context.Background(), applicantIdentity, "unknown")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeLoanNotFound {
		t.Errorf("error = %v, want LOAN_NOT_FOUND", err)
	}
}

// --- UpdateStatus テスト ---

// pending→approvedの更新で通知が1回発火することを検証
func TestService_UpdateStatus_Approved(t *testing.T) {
	repo := &mockAppRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Application, error) {
			return &model.Application{ID: id, Status: model.StatusPending, UserEmail: "taro@example.com"}, nil
		},
		updateStatusFn: func(ctx context.Context, id string, status model.ApplicationStatus) (int64, error) {
			if status != model.StatusApproved {
				t.Errorf("status = %q, want approved", status)
			}
			return 1, nil
		},
	}
	notifier := &mockNotifier{}

	svc := NewService(repo, nil, notifier, nil)

	modified, err := svc.UpdateStatus(context.Background(), managerIdentity, "app-1", model.StatusApproved)
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if modified != 1 {
		t.Errorf("modified = %d, want 1", modified)
	}
	if len(notifier.notified) != 1 || notifier.notified[0] != model.StatusApproved {
		t.Errorf("notified = %v, want [approved]", notifier.notified)
	}
}

// 存在しない申込の更新が0件・通知なしで完了することを検証
func TestService_UpdateStatus_UnknownID(t *testing.T) {
	repo := &mockAppRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Application, error) {
			return nil, nil
		},
	}
	notifier := &mockNotifier{}

	svc := NewService(repo, nil, notifier, nil)

	modified, err := svc.UpdateStatus(context.Background(), managerIdentity, "unknown", model.StatusApproved)
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if modified != 0 {
		t.Errorf("modified = %d, want 0", modified)
	}
	if len(notifier.notified) != 0 {
		t.Errorf("notified = %v, want empty", notifier.notified)
	}
}

// 許可されていない状態遷移が型付きエラーで拒否されることを検証
func TestService_UpdateStatus_InvalidTransition(t *testing.T) {
	tests := []struct {
		name     string
		current  model.ApplicationStatus
		next     model.ApplicationStatus
		wantCode string
	}{
		{"承認済みからの再承認", model.StatusApproved, model.StatusApproved, model.ErrCodeInvalidTransition},
		{"却下済みからの承認", model.StatusRejected, model.StatusApproved, model.ErrCodeInvalidTransition},
		{"承認済みからpendingへの巻き戻し", model.StatusApproved, model.StatusPending, model.ErrCodeInvalidTransition},
		{"未定義の状態", model.StatusPending, model.ApplicationStatus("frozen"), model.ErrCodeInvalidStatus},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockAppRepo{
				findByIDFn: func(ctx context.Context, id string) (*model.Application, error) {
					return &model.Application{ID: id, Status: tt.current}, nil
				},
			}
			notifier := &mockNotifier{}
			svc := NewService(repo, nil, notifier, nil)

			_, err := svc.UpdateStatus(context.Background(), managerIdentity, "app-1", tt.next)
			var apiErr *model.APIError
			if !errors.As(err, &apiErr) || apiErr.Code != tt.wantCode {
				t.Errorf("error = %v, want code %s", err, tt.wantCode)
			}
			if len(notifier.notified) != 0 {
				t.Error("no notification should be created for rejected transition")
			}
		})
	}
}

// 申込者による審査状態の更新が拒否されることを検証
func TestService_UpdateStatus_ApplicantForbidden(t *testing.T) {
	svc := NewService(&mockAppRepo{}, nil, &mockNotifier{}, nil)

	_, err := svc.UpdateStatus(context.Background(), applicantIdentity, "app-1", model.StatusApproved)
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeForbidden {
		t.Errorf("error = %v, want FORBIDDEN", err)
	}
}

// 通知の失敗が主リソースの更新結果に影響しないことを検証
func TestService_UpdateStatus_NotifyFailureIsBestEffort(t *testing.T) {
	repo := &mockAppRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Application, error) {
			return &model.Application{ID: id, Status: model.StatusPending}, nil
		},
		updateStatusFn: func(ctx context.Context, id string, status model.ApplicationStatus) (int64, error) {
			return 1, nil
		},
	}
	notifier := &mockNotifier{err: errors.New("insert failed")}

	svc := NewService(repo, nil, notifier, nil)

	modified, err := svc.UpdateStatus(context.Background(), managerIdentity, "app-1", model.StatusRejected)
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if modified != 1 {
		t.Errorf("modified = %d, want 1", modified)
	}
}

// --- Cancel テスト ---

// 申込者本人によるキャンセルが許可されることを検証
func TestService_Cancel_Owner(t *testing.T) {
	repo := &mockAppRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Application, error) {
			return &model.Application{ID: id, UserEmail: "taro@example.com"}, nil
		},
		deleteFn: func(ctx context.Context, id string) (int64, error) {
			return 1, nil
		},
	}

	svc := NewService(repo, nil, &mockNotifier{}, nil)

	deleted, err := svc.Cancel(context.Background(), applicantIdentity, "app-1")
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}
}

// 他人の申込のキャンセルが拒否されることを検証
func TestService_Cancel_NotOwner(t *testing.T) {
	repo := &mockAppRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Application, error) {
			return &model.Application{ID: id, UserEmail: "hanako@example.com"}, nil
		},
	}

	svc := NewService(repo, nil, &mockNotifier{}, nil)

	_, err := svc.Cancel(context.Background(), applicantIdentity, "app-1")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeForbidden {
		t.Errorf("error = %v, want FORBIDDEN", err)
	}
}

// 管理者によるキャンセルが許可されることを検証
func TestService_Cancel_Admin(t *testing.T) {
	repo := &mockAppRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Application, error) {
			return &model.Application{ID: id, UserEmail: "taro@example.com"}, nil
		},
		deleteFn: func(ctx context.Context, id string) (int64, error) {
			return 1, nil
		},
	}

	svc := NewService(repo, nil, &mockNotifier{}, nil)

	deleted, err := svc.Cancel(context.Background(), adminIdentity, "app-1")
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}
}

// 存在しない申込のキャンセルが0件を返すことを検証
func TestService_Cancel_NotFound(t *testing.T) {
	repo := &mockAppRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Application, error) {
			return nil, nil
		},
	}

	svc := NewService(repo, nil, &mockNotifier{}, nil)

	deleted, err := svc.Cancel(context.Background(), applicantIdentity, "unknown")
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if deleted != 0 {
		t.Errorf("deleted = %d, want 0", deleted)
	}
}

// --- List テスト ---

// 申込者には自身の申込のみが返ることを検証
func TestService_List_ApplicantSeesOwn(t *testing.T) {
	repo := &mockAppRepo{
		listByUserFn: func(ctx context.Context, email string) ([]*model.Application, error) {
			if email != "taro@example.com" {
				t.Errorf("email = %q, want taro@example.com", email)
			}
			return []*model.Application{{ID: "app-1"}}, nil
		},
		listAllFn: func(ctx context.Context) ([]*model.Application, error) {
			t.Error("ListAll should not be called for applicant")
			return nil, nil
		},
	}

	svc := NewService(repo, nil, &mockNotifier{}, nil)

	apps, err := svc.List(context.Background(), applicantIdentity)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(apps) != 1 {
		t.Errorf("len = %d, want 1", len(apps))
	}
}

// マネージャーには全申込が返ることを検証
func TestService_List_ManagerSeesAll(t *testing.T) {
	repo := &mockAppRepo{
		listAllFn: func(ctx context.Context) ([]*model.Application, error) {
			return []*model.Application{{ID: "app-1"}, {ID: "app-2"}}, nil
		},
	}

	svc := NewService(repo, nil, &mockNotifier{}, nil)

	apps, err := svc.List(context.Background(), managerIdentity)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(apps) != 2 {
		t.Errorf("len = %d, want 2", len(apps))
	}
}
