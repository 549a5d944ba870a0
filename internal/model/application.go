package model

import "time"

// ApplicationStatus は融資申込の審査状態を表す。
// 閉じた集合として扱い、遷移はValidateStatusTransitionで検証する。
type ApplicationStatus string

const (
	// StatusPending は審査待ち。申込作成時の初期状態。
	StatusPending ApplicationStatus = "pending"
	// StatusApproved は承認済み。終端状態。
	StatusApproved ApplicationStatus = "approved"
	// StatusRejected は却下済み。終端状態。
	StatusRejected ApplicationStatus = "rejected"
)

// IsValid は定義済みの審査状態かどうかを返す。
func (s ApplicationStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// IsTerminal は終端状態（承認済み・却下済み）かどうかを返す。
func (s ApplicationStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// ValidateStatusTransition は審査状態の遷移が許可されているか検証する。
// 許可される遷移は pending→approved と pending→rejected のみ。
// 不正な遷移の場合はAPIErrorを返す。
func ValidateStatusTransition(from, to ApplicationStatus) error {
	if !to.IsValid() {
		return NewInvalidStatusError(string(to))
	}
	if from == StatusPending && to.IsTerminal() {
		return nil
	}
	return NewInvalidTransitionError(string(from), string(to))
}

// FeeStatus は申込手数料の支払い状態を表す。
type FeeStatus string

const (
	// FeeUnpaid は手数料未払い。申込作成時の初期状態。
	FeeUnpaid FeeStatus = "unpaid"
	// FeePaid は決済プロバイダーによる支払い確認済み。
	FeePaid FeeStatus = "paid"
)

// Application は融資申込を表す。
// FeeStatusの更新は決済確認フローのみが行う。
type Application struct {
	ID            string
	UserEmail     string
	LoanID        string
	LoanTitle     string
	Status        ApplicationStatus
	FeeStatus     FeeStatus
	TransactionID string
	PaidAt        *time.Time
	CreatedAt     time.Time
}
