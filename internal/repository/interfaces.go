// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/lendman/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByEmail は指定emailのユーザーを取得する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。emailの一意制約に違反した場合はエラーを返す。
	Create(ctx context.Context, user *model.User) error

	// ListEmails は全ユーザーのemail一覧を返す。通知のファンアウトに使用する。
	ListEmails(ctx context.Context) ([]string, error)
}

// LoanRepository は融資商品データの永続化インターフェース。
type LoanRepository interface {
	// FindByID は指定IDの融資商品を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Loan, error)

	// List は全融資商品をcreated_at降順で返す。
	List(ctx context.Context) ([]*model.Loan, error)

	// Create は融資商品を作成する。
	Create(ctx context.Context, loan *model.Loan) error

	// Update は融資商品を上書き更新し、更新件数を返す。
	// 該当レコードがない場合は0件を返す（エラーにはしない）。
	Update(ctx context.Context, loan *model.Loan) (int64, error)

	// Delete は指定IDの融資商品を削除し、削除件数を返す。
	Delete(ctx context.Context, id string) (int64, error)
}

// ApplicationRepository は融資申込データの永続化インターフェース。
type ApplicationRepository interface {
	// FindByID は指定IDの申込を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Application, error)

	// ListByUserEmail は指定ユーザーの申込一覧をcreated_at降順で返す。
	ListByUserEmail(ctx context.Context, email string) ([]*model.Application, error)

	// ListAll は全申込をcreated_at降順で返す。マネージャー・管理者の審査画面用。
	ListAll(ctx context.Context) ([]*model.Application, error)

	// Create は申込を作成する。
	Create(ctx context.Context, app *model.Application) error

	// UpdateStatus は審査状態を更新し、更新件数を返す。
	// 該当レコードがない場合は0件を返す（エラーにはしない）。
	UpdateStatus(ctx context.Context, id string, status model.ApplicationStatus) (int64, error)

	// ConfirmPayment は手数料の支払い確認結果を記録し、更新件数を返す。
	// fee_statusをpaidに設定し、transaction_idとpaid_atを保存する。
	ConfirmPayment(ctx context.Context, id, transactionID string, paidAt time.Time) (int64, error)

	// Delete は指定IDの申込を削除し、削除件数を返す。
	Delete(ctx context.Context, id string) (int64, error)
}

// NotificationRepository は通知データの永続化インターフェース。
type NotificationRepository interface {
	// FindByID は指定IDの通知を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Notification, error)

	// Create は通知を1件作成する。
	Create(ctx context.Context, n *model.Notification) error

	// CreateMany は通知を一括作成する。ファンアウト用。
	// 空スライスの場合は何もしない。
	CreateMany(ctx context.Context, notifications []*model.Notification) error

	// ListByUserEmail は指定受信者の通知一覧をtimestamp降順で返す。
	ListByUserEmail(ctx context.Context, email string) ([]*model.Notification, error)

	// MarkRead は指定IDの通知を既読にし、更新件数を返す。冪等。
	MarkRead(ctx context.Context, id string) (int64, error)

	// MarkAllRead は指定受信者の全未読通知を既読にし、更新件数を返す。冪等。
	MarkAllRead(ctx context.Context, email string) (int64, error)

	// Delete は指定IDの通知を削除し、削除件数を返す。
	Delete(ctx context.Context, id string) (int64, error)
}
