// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, loan, payment, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthenticated     = "UNAUTHENTICATED"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeInvalidStatus       = "INVALID_STATUS"
	ErrCodeInvalidTransition   = "INVALID_TRANSITION"
	ErrCodeInvalidRole         = "INVALID_ROLE"
	ErrCodeLoanNotFound        = "LOAN_NOT_FOUND"
	ErrCodeApplicationNotFound = "APPLICATION_NOT_FOUND"
	ErrCodeUserNotFound        = "USER_NOT_FOUND"
	ErrCodePaymentRejected     = "PAYMENT_REJECTED"
	ErrCodeValidationFailed    = "VALIDATION_FAILED"
)

// NewUnauthenticatedError は未認証エラーを生成する。
// トークン欠落・署名不正・期限切れのいずれかを区別せずに返す。
func NewUnauthenticatedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthenticated,
		Message:  "認証されていません。",
		Category: "auth",
		Action:   "サインインし直してください。",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この操作を実行する権限がありません。",
		Category: "auth",
		Action:   "必要な権限を持つアカウントでサインインしてください。",
	}
}

// NewInvalidStatusError は未定義の審査状態が指定された場合のエラーを生成する。
func NewInvalidStatusError(status string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidStatus,
		Message:  fmt.Sprintf("無効な審査状態です: %s", status),
		Category: "validation",
		Action:   "審査状態には approved または rejected を指定してください。",
	}
}

// NewInvalidTransitionError は許可されていない状態遷移エラーを生成する。
func NewInvalidTransitionError(from, to string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidTransition,
		Message:  fmt.Sprintf("許可されていない状態遷移です: %s → %s", from, to),
		Category: "validation",
		Action:   "審査待ちの申込に対してのみ承認・却下を実行できます。",
	}
}

// NewInvalidRoleError は未定義の役割が指定された場合のエラーを生成する。
func NewInvalidRoleError(role string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRole,
		Message:  fmt.Sprintf("無効な役割です: %s", role),
		Category: "validation",
		Action:   "役割には applicant、manager、admin のいずれかを指定してください。",
	}
}

// NewLoanNotFoundError は融資商品が見つからない場合のエラーを生成する。
func NewLoanNotFoundError(loanID string) *APIError {
	return &APIError{
		Code:     ErrCodeLoanNotFound,
		Message:  fmt.Sprintf("指定された融資商品が見つかりません: %s", loanID),
		Category: "loan",
		Action:   "融資商品IDを確認してください。",
	}
}

// NewApplicationNotFoundError は申込が見つからない場合のエラーを生成する。
func NewApplicationNotFoundError(applicationID string) *APIError {
	return &APIError{
		Code:     ErrCodeApplicationNotFound,
		Message:  fmt.Sprintf("指定された申込が見つかりません: %s", applicationID),
		Category: "loan",
		Action:   "申込IDを確認してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "サインインし直してください。",
	}
}

// NewPaymentRejectedError は決済確認の署名検証に失敗した場合のエラーを生成する。
func NewPaymentRejectedError() *APIError {
	return &APIError{
		Code:     ErrCodePaymentRejected,
		Message:  "決済の確認に失敗しました。",
		Category: "payment",
		Action:   "決済が完了しているか確認のうえ、サポートへお問い合わせください。",
	}
}

// NewValidationError は入力値の検証エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("入力値が不正です: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認して再度お試しください。",
	}
}
