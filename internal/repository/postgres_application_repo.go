package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/lendman/internal/model"
)

// PostgresApplicationRepo はPostgreSQLを使用した融資申込リポジトリ。
type PostgresApplicationRepo struct {
	db *sql.DB
}

// NewPostgresApplicationRepo はPostgresApplicationRepoを生成する。
func NewPostgresApplicationRepo(db *sql.DB) *PostgresApplicationRepo {
	return &PostgresApplicationRepo{db: db}
}

const applicationColumns = `id, user_email, loan_id, loan_title, status, fee_status, transaction_id, paid_at, created_at`

// scanApplication は1行分の申込レコードをスキャンする。
func scanApplication(row interface {
	Scan(dest ...interface{}) error
}) (*model.Application, error) {
	app := &model.Application{}
	var paidAt sql.NullTime
	err := row.Scan(&app.ID, &app.UserEmail, &app.LoanID, &app.LoanTitle,
		&app.Status, &app.FeeStatus, &app.TransactionID, &paidAt, &app.CreatedAt)
	if err != nil {
		return nil, err
	}
	if paidAt.Valid {
		app.PaidAt = &paidAt.Time
	}
	return app, nil
}

// FindByID は指定IDの申込を取得する。見つからない場合はnilを返す。
func (r *PostgresApplicationRepo) FindByID(ctx context.Context, id string) (*model.Application, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id)

	app, err := scanApplication(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find application by ID: %w", err)
	}
	return app, nil
}

// ListByUserEmail は指定ユーザーの申込一覧をcreated_at降順で返す。
func (r *PostgresApplicationRepo) ListByUserEmail(ctx context.Context, email string) ([]*model.Application, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE user_email = $1 ORDER BY created_at DESC`,
		email,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications by user: %w", err)
	}
	defer rows.Close()

	return collectApplications(rows)
}

// ListAll は全申込をcreated_at降順で返す。
func (r *PostgresApplicationRepo) ListAll(ctx context.Context) ([]*model.Application, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+applicationColumns+` FROM applications ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	return collectApplications(rows)
}

// collectApplications は結果セットの全行を申込スライスに変換する。
func collectApplications(rows *sql.Rows) ([]*model.Application, error) {
	var apps []*model.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate applications: %w", err)
	}
	return apps, nil
}

// Create は申込を作成する。
func (r *PostgresApplicationRepo) Create(ctx context.Context, app *model.Application) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO applications (id, user_email, loan_id, loan_title, status, fee_status, transaction_id, paid_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		app.ID, app.UserEmail, app.LoanID, app.LoanTitle,
		app.Status, app.FeeStatus, app.TransactionID, app.PaidAt, app.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert application: %w", err)
	}
	return nil
}

// UpdateStatus は審査状態を更新し、更新件数を返す。
func (r *PostgresApplicationRepo) UpdateStatus(ctx context.Context, id string, status model.ApplicationStatus) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE applications SET status = $2 WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to update application status: %w", err)
	}
	return result.RowsAffected()
}

// ConfirmPayment は手数料の支払い確認結果を記録し、更新件数を返す。
func (r *PostgresApplicationRepo) ConfirmPayment(ctx context.Context, id, transactionID string, paidAt time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE applications SET fee_status = $2, transaction_id = $3, paid_at = $4 WHERE id = $1`,
		id, model.FeePaid, transactionID, paidAt,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to confirm payment: %w", err)
	}
	return result.RowsAffected()
}

// Delete は指定IDの申込を削除し、削除件数を返す。
func (r *PostgresApplicationRepo) Delete(ctx context.Context, id string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM applications WHERE id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete application: %w", err)
	}
	return result.RowsAffected()
}

// compile-time interface check
var _ ApplicationRepository = (*PostgresApplicationRepo)(nil)
