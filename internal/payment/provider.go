// Package payment は決済プロバイダー連携と手数料の支払い確認を提供する。
// ホスト型チェックアウトセッションの作成と、支払い完了コールバックの
// 署名検証を担う。
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
)

// CheckoutRequest はチェックアウトセッション作成の入力。
// 成功リダイレクトで申込を特定できるよう、申込のメタデータを持ち回る。
type CheckoutRequest struct {
	ApplicationID  string
	LoanID         string
	ApplicantName  string
	ApplicantEmail string
	AmountCents    int64 // 固定手数料（最小通貨単位）
	SuccessURL     string
	CancelURL      string
}

// CheckoutSession は作成されたホスト型チェックアウトセッション。
type CheckoutSession struct {
	ID  string // プロバイダー発行のセッションID
	URL string // クライアントをリダイレクトするチェックアウトURL
}

// CheckoutProvider はチェックアウトセッション作成のインターフェース。
type CheckoutProvider interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
}

// HTTPProvider は決済プロバイダーのREST APIを呼び出すCheckoutProvider実装。
type HTTPProvider struct {
	httpClient *http.Client
	logger     *slog.Logger
	endpoint   string
	apiKey     string
}

// NewHTTPProvider はHTTPProviderを生成する。
func NewHTTPProvider(httpClient *http.Client, logger *slog.Logger, endpoint, apiKey string) *HTTPProvider {
	return &HTTPProvider{
		httpClient: httpClient,
		logger:     logger,
		endpoint:   endpoint,
		apiKey:     apiKey,
	}
}

// checkoutResponse はプロバイダーAPIのレスポンスボディ。
type checkoutResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CreateCheckoutSession はホスト型チェックアウトセッションを作成する。
// 固定手数料と申込のメタデータをフォームエンコードで送信する。
func (p *HTTPProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(req.AmountCents, 10))
	form.Set("currency", "usd")
	form.Set("success_url", req.SuccessURL)
	form.Set("cancel_url", req.CancelURL)
	form.Set("customer_email", req.ApplicantEmail)
	form.Set("metadata[application_id]", req.ApplicationID)
	form.Set("metadata[loan_id]", req.LoanID)
	form.Set("metadata[applicant_name]", req.ApplicantName)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		p.logger.Error("決済プロバイダーAPIの呼び出しに失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		p.logger.Error("決済プロバイダーAPIがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, fmt.Errorf("決済プロバイダーAPIがステータス %d を返しました", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("レスポンスの読み取りに失敗しました: %w", err)
	}

	var session checkoutResponse
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("レスポンスのパースに失敗しました: %w", err)
	}
	if session.ID == "" || session.URL == "" {
		return nil, fmt.Errorf("決済プロバイダーのレスポンスが不完全です")
	}

	return &CheckoutSession{ID: session.ID, URL: session.URL}, nil
}

// compile-time interface check
var _ CheckoutProvider = (*HTTPProvider)(nil)
