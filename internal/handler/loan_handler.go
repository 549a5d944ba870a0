package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/lendman/internal/loan"
	"github.com/hitoshi/lendman/internal/middleware"
	"github.com/hitoshi/lendman/internal/model"
)

// LoanServiceInterface は融資商品ハンドラーが必要とするサービスインターフェース。
type LoanServiceInterface interface {
	Create(ctx context.Context, identity *model.Identity, input loan.Input) (*model.Loan, error)
	Get(ctx context.Context, id string) (*model.Loan, error)
	List(ctx context.Context) ([]*model.Loan, error)
	Update(ctx context.Context, identity *model.Identity, id string, input loan.Input) (int64, error)
	Delete(ctx context.Context, identity *model.Identity, id string) (int64, error)
}

// LoanHandler は融資商品管理のHTTPハンドラー。
type LoanHandler struct {
	service LoanServiceInterface
}

// NewLoanHandler はLoanHandlerを生成する。
func NewLoanHandler(service LoanServiceInterface) *LoanHandler {
	return &LoanHandler{service: service}
}

// loanRequest は融資商品の作成・更新リクエストのボディ。
type loanRequest struct {
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Category     string  `json:"category"`
	InterestRate float64 `json:"interest_rate"`
}

// loanResponse は融資商品のAPIレスポンス。
type loanResponse struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Category     string    `json:"category"`
	InterestRate float64   `json:"interest_rate"`
	AddedBy      string    `json:"added_by"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateLoan は融資商品の掲載を処理する。
// POST /api/loans
func (h *LoanHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	var req loanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	created, err := h.service.Create(r.Context(), identity, loan.Input{
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		InterestRate: req.InterestRate,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toLoanResponse(created))
}

// ListLoans は融資商品一覧を返す。
// GET /api/loans
func (h *LoanHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	responses := make([]loanResponse, 0, len(loans))
	for _, l := range loans {
		responses = append(responses, toLoanResponse(l))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(responses)
}

// GetLoan は融資商品詳細を取得する。
// GET /api/loans/{id}
func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	l, err := h.service.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toLoanResponse(l))
}

// UpdateLoan は融資商品を更新する。
// PATCH /api/loans/{id}
func (h *LoanHandler) UpdateLoan(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	id := chi.URLParam(r, "id")

	var req loanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	modified, err := h.service.Update(r.Context(), identity, id, loan.Input{
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		InterestRate: req.InterestRate,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeCountResponse(w, "modified", modified)
}

// DeleteLoan は融資商品を削除する。
// DELETE /api/loans/{id}
func (h *LoanHandler) DeleteLoan(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	id := chi.URLParam(r, "id")

	deleted, err := h.service.Delete(r.Context(), identity, id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeCountResponse(w, "deleted", deleted)
}

// --- ヘルパー関数 ---

// toLoanResponse はmodel.LoanからAPIレスポンスに変換する。
func toLoanResponse(l *model.Loan) loanResponse {
	return loanResponse{
		ID:           l.ID,
		Title:        l.Title,
		Description:  l.Description,
		Category:     l.Category,
		InterestRate: l.InterestRate,
		AddedBy:      l.AddedBy,
		CreatedAt:    l.CreatedAt,
		UpdatedAt:    l.UpdatedAt,
	}
}

// writeCountResponse は更新・削除件数のレスポンスを書き込む。
// 0件は「対象なし」を意味しエラーにはしない。
func writeCountResponse(w http.ResponseWriter, key string, count int64) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int64{key: count})
}

// writeInvalidRequestBody はリクエストボディの解析失敗レスポンスを書き込む。
func writeInvalidRequestBody(w http.ResponseWriter) {
	middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUnauthenticated:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeInvalidStatus, model.ErrCodeInvalidRole, model.ErrCodeValidationFailed:
		return http.StatusBadRequest
	case model.ErrCodeInvalidTransition:
		return http.StatusConflict
	case model.ErrCodeLoanNotFound, model.ErrCodeApplicationNotFound, model.ErrCodeUserNotFound:
		return http.StatusNotFound
	case model.ErrCodePaymentRejected:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
