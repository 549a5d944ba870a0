package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/lendman/internal/model"
)

// PostgresLoanRepo はPostgreSQLを使用した融資商品リポジトリ。
type PostgresLoanRepo struct {
	db *sql.DB
}

// NewPostgresLoanRepo はPostgresLoanRepoを生成する。
func NewPostgresLoanRepo(db *sql.DB) *PostgresLoanRepo {
	return &PostgresLoanRepo{db: db}
}

// FindByID は指定IDの融資商品を取得する。見つからない場合はnilを返す。
func (r *PostgresLoanRepo) FindByID(ctx context.Context, id string) (*model.Loan, error) {
	loan := &model.Loan{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, description, category, interest_rate, added_by, created_at, updated_at
		 FROM loans WHERE id = $1`,
		id,
	).Scan(&loan.ID, &loan.Title, &loan.Description, &loan.Category,
		&loan.InterestRate, &loan.AddedBy, &loan.CreatedAt, &loan.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find loan by ID: %w", err)
	}

	return loan, nil
}

// List は全融資商品をcreated_at降順で返す。
func (r *PostgresLoanRepo) List(ctx context.Context) ([]*model.Loan, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, description, category, interest_rate, added_by, created_at, updated_at
		 FROM loans ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}
	defer rows.Close()

	var loans []*model.Loan
	for rows.Next() {
		loan := &model.Loan{}
		if err := rows.Scan(&loan.ID, &loan.Title, &loan.Description, &loan.Category,
			&loan.InterestRate, &loan.AddedBy, &loan.CreatedAt, &loan.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan loan: %w", err)
		}
		loans = append(loans, loan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate loans: %w", err)
	}

	return loans, nil
}

// Create は融資商品を作成する。
func (r *PostgresLoanRepo) Create(ctx context.Context, loan *model.Loan) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO loans (id, title, description, category, interest_rate, added_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		loan.ID, loan.Title, loan.Description, loan.Category,
		loan.InterestRate, loan.AddedBy, loan.CreatedAt, loan.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert loan: %w", err)
	}
	return nil
}

// Update は融資商品を上書き更新し、更新件数を返す。
func (r *PostgresLoanRepo) Update(ctx context.Context, loan *model.Loan) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE loans
		 SET title = $2, description = $3, category = $4, interest_rate = $5, updated_at = $6
		 WHERE id = $1`,
		loan.ID, loan.Title, loan.Description, loan.Category, loan.InterestRate, loan.UpdatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to update loan: %w", err)
	}
	return result.RowsAffected()
}

// Delete は指定IDの融資商品を削除し、削除件数を返す。
func (r *PostgresLoanRepo) Delete(ctx context.Context, id string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM loans WHERE id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete loan: %w", err)
	}
	return result.RowsAffected()
}

// compile-time interface check
var _ LoanRepository = (*PostgresLoanRepo)(nil)
