package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/lendman/internal/loan"
	"github.com/hitoshi/lendman/internal/middleware"
	"github.com/hitoshi/lendman/internal/model"
)

type mockLoanService struct {
	createFn func(ctx context.Context, identity *model.Identity, input loan.Input) (*model.Loan, error)
	getFn    func(ctx context.Context, id string) (*model.Loan, error)
	listFn   func(ctx context.Context) ([]*model.Loan, error)
	updateFn func(ctx context.Context, identity *model.Identity, id string, input loan.Input) (int64, error)
	deleteFn func(ctx context.Context, identity *model.Identity, id string) (int64, error)
}

func (m *mockLoanService) Create(ctx context.Context, identity *model.Identity, input loan.Input) (*model.Loan, error) {
	return m.createFn(ctx, identity, input)
}
func (m *mockLoanService) Get(ctx context.Context, id string) (*model.Loan, error) {
	return m.getFn(ctx, id)
}
func (m *mockLoanService) List(ctx context.Context) ([]*model.Loan, error) {
	return m.listFn(ctx)
}
func (m *mockLoanService) Update(ctx context.Context, identity *model.Identity, id string, input loan.Input) (int64, error) {
	return m.updateFn(ctx, identity, id, input)
}
func (m *mockLoanService) Delete(ctx context.Context, identity *model.Identity, id string) (int64, error) {
	return m.deleteFn(ctx, identity, id)
}

// authedRequest は認証済みコンテキストを持つリクエストを生成する。
func authedRequest(method, target string, body string, identity *model.Identity) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	return req.WithContext(middleware.ContextWithIdentity(req.Context(), identity))
}

// withURLParam はchiのURLパラメータをリクエストコンテキストに設定する。
func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

var managerID = &model.Identity{Email: "manager@example.com", Role: model.RoleManager}

// マネージャーが商品を掲載でき201が返ることを検証
func TestLoanHandler_CreateLoan(t *testing.T) {
	service := &mockLoanService{
		createFn: func(ctx context.Context, identity *model.Identity, input loan.Input) (*model.Loan, error) {
			return &model.Loan{ID: "loan-1", Title: input.Title, AddedBy: identity.Email}, nil
		},
	}
	h := NewLoanHandler(service)

	req := authedRequest(http.MethodPost, "/api/loans", `{"title":"Car Loan","interest_rate":1.2}`, managerID)
	rec := httptest.NewRecorder()

	h.CreateLoan(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	var resp loanResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ID != "loan-1" || resp.Title != "Car Loan" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

// 権限エラーが403で返ることを検証
func TestLoanHandler_CreateLoan_Forbidden(t *testing.T) {
	service := &mockLoanService{
		createFn: func(ctx context.Context, identity *model.Identity, input loan.Input) (*model.Loan, error) {
			return nil, model.NewForbiddenError()
		},
	}
	h := NewLoanHandler(service)

	applicant := &model.Identity{Email: "taro@example.com", Role: model.RoleApplicant}
	req := authedRequest(http.MethodPost, "/api/loans", `{"title":"Car Loan"}`, applicant)
	rec := httptest.NewRecorder()

	h.CreateLoan(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

// 存在しない商品の取得が404になることを検証
func TestLoanHandler_GetLoan_NotFound(t *testing.T) {
	service := &mockLoanService{
		getFn: func(ctx context.Context, id string) (*model.Loan, error) {
			return nil, model.NewLoanNotFoundError(id)
		},
	}
	h := NewLoanHandler(service)

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/loans/missing", nil), "id", "missing")
	rec := httptest.NewRecorder()

	h.GetLoan(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

// 削除が件数レスポンスを返すことを検証
func TestLoanHandler_DeleteLoan_Count(t *testing.T) {
	service := &mockLoanService{
		deleteFn: func(ctx context.Context, identity *model.Identity, id string) (int64, error) {
			return 1, nil
		},
	}
	h := NewLoanHandler(service)

	req := withURLParam(authedRequest(http.MethodDelete, "/api/loans/loan-1", "", managerID), "id", "loan-1")
	rec := httptest.NewRecorder()

	h.DeleteLoan(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp map[string]int64
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["deleted"] != 1 {
		t.Errorf("deleted = %d, want 1", resp["deleted"])
	}
}

// 不正なJSONボディが400になることを検証
func TestLoanHandler_CreateLoan_InvalidBody(t *testing.T) {
	h := NewLoanHandler(&mockLoanService{})

	req := authedRequest(http.MethodPost, "/api/loans", `{not json`, managerID)
	rec := httptest.NewRecorder()

	h.CreateLoan(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
