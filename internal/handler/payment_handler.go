package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/lendman/internal/middleware"
	"github.com/hitoshi/lendman/internal/model"
	"github.com/hitoshi/lendman/internal/payment"
)

// PaymentServiceInterface は決済ハンドラーが必要とするサービスインターフェース。
type PaymentServiceInterface interface {
	CreateCheckout(ctx context.Context, identity *model.Identity, applicationID string) (*payment.CheckoutSession, error)
	ConfirmPayment(ctx context.Context, applicationID, transactionID, signature string) (int64, error)
}

// PaymentHandler は申込手数料決済のHTTPハンドラー。
type PaymentHandler struct {
	service PaymentServiceInterface
}

// NewPaymentHandler はPaymentHandlerを生成する。
func NewPaymentHandler(service PaymentServiceInterface) *PaymentHandler {
	return &PaymentHandler{service: service}
}

// checkoutRequest はチェックアウトセッション作成リクエストのボディ。
type checkoutRequest struct {
	ApplicationID string `json:"application_id"`
}

// checkoutResponse はチェックアウトセッションのAPIレスポンス。
type checkoutSessionResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// confirmRequest は支払い完了コールバックのボディ。
// signatureはプロバイダー発行の秘密鍵によるHMAC署名。
type confirmRequest struct {
	ApplicationID string `json:"application_id"`
	TransactionID string `json:"transaction_id"`
	Signature     string `json:"signature"`
}

// Checkout は手数料のチェックアウトセッション作成を処理する。
// POST /api/payments/checkout
func (h *PaymentHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	if req.ApplicationID == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("application_idは必須です。"))
		return
	}

	session, err := h.service.CreateCheckout(r.Context(), identity, req.ApplicationID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(checkoutSessionResponse{
		SessionID: session.ID,
		URL:       session.URL,
	})
}

// Confirm は支払い完了コールバックを処理する。
// セッション認証の外に置かれ、代わりに署名検証で認証する。
// POST /api/payments/confirm
func (h *PaymentHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	if req.ApplicationID == "" || req.TransactionID == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("application_idとtransaction_idは必須です。"))
		return
	}

	modified, err := h.service.ConfirmPayment(r.Context(), req.ApplicationID, req.TransactionID, req.Signature)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeCountResponse(w, "modified", modified)
}
