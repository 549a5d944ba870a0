package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/lendman/internal/middleware"
	"github.com/hitoshi/lendman/internal/model"
)

// ApplicationServiceInterface は申込ハンドラーが必要とするサービスインターフェース。
type ApplicationServiceInterface interface {
	Create(ctx context.Context, identity *model.Identity, loanID string) (*model.Application, error)
	Get(ctx context.Context, identity *model.Identity, id string) (*model.Application, error)
	List(ctx context.Context, identity *model.Identity) ([]*model.Application, error)
	UpdateStatus(ctx context.Context, identity *model.Identity, id string, newStatus model.ApplicationStatus) (int64, error)
	Cancel(ctx context.Context, identity *model.Identity, id string) (int64, error)
}

// ApplicationHandler は融資申込のHTTPハンドラー。
type ApplicationHandler struct {
	service ApplicationServiceInterface
}

// NewApplicationHandler はApplicationHandlerを生成する。
func NewApplicationHandler(service ApplicationServiceInterface) *ApplicationHandler {
	return &ApplicationHandler{service: service}
}

// createApplicationRequest は申込作成リクエストのボディ。
type createApplicationRequest struct {
	LoanID string `json:"loan_id"`
}

// updateStatusRequest は審査状態更新リクエストのボディ。
type updateStatusRequest struct {
	Status string `json:"status"`
}

// applicationResponse は申込のAPIレスポンス。
type applicationResponse struct {
	ID            string     `json:"id"`
	UserEmail     string     `json:"user_email"`
	LoanID        string     `json:"loan_id"`
	LoanTitle     string     `json:"loan_title"`
	Status        string     `json:"status"`
	FeeStatus     string     `json:"fee_status"`
	TransactionID string     `json:"transaction_id,omitempty"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// CreateApplication は融資申込の作成を処理する。
// POST /api/applications
func (h *ApplicationHandler) CreateApplication(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	var req createApplicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	if req.LoanID == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("loan_idは必須です。"))
		return
	}

	app, err := h.service.Create(r.Context(), identity, req.LoanID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toApplicationResponse(app))
}

// ListApplications は申込一覧を返す。
// 申込者は自分の申込のみ、マネージャー・管理者は全件を取得する。
// GET /api/applications
func (h *ApplicationHandler) ListApplications(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	apps, err := h.service.List(r.Context(), identity)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]applicationResponse, 0, len(apps))
	for _, app := range apps {
		responses = append(responses, toApplicationResponse(app))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(responses)
}

// GetApplication は申込詳細を取得する。
// GET /api/applications/{id}
func (h *ApplicationHandler) GetApplication(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	id := chi.URLParam(r, "id")

	app, err := h.service.Get(r.Context(), identity, id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toApplicationResponse(app))
}

// UpdateApplicationStatus は審査状態の更新を処理する。
// PATCH /api/applications/{id}/status
func (h *ApplicationHandler) UpdateApplicationStatus(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	id := chi.URLParam(r, "id")

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	modified, err := h.service.UpdateStatus(r.Context(), identity, id, model.ApplicationStatus(req.Status))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeCountResponse(w, "modified", modified)
}

// CancelApplication は申込を取り下げる。
// DELETE /api/applications/{id}
func (h *ApplicationHandler) CancelApplication(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	id := chi.URLParam(r, "id")

	deleted, err := h.service.Cancel(r.Context(), identity, id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeCountResponse(w, "deleted", deleted)
}

// toApplicationResponse はmodel.ApplicationからAPIレスポンスに変換する。
func toApplicationResponse(app *model.Application) applicationResponse {
	return applicationResponse{
		ID:            app.ID,
		UserEmail:     app.UserEmail,
		LoanID:        app.LoanID,
		LoanTitle:     app.LoanTitle,
		Status:        string(app.Status),
		FeeStatus:     string(app.FeeStatus),
		TransactionID: app.TransactionID,
		PaidAt:        app.PaidAt,
		CreatedAt:     app.CreatedAt,
	}
}
