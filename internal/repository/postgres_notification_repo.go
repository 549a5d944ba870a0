package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hitoshi/lendman/internal/model"
)

// PostgresNotificationRepo はPostgreSQLを使用した通知リポジトリ。
type PostgresNotificationRepo struct {
	db *sql.DB
}

// NewPostgresNotificationRepo はPostgresNotificationRepoを生成する。
func NewPostgresNotificationRepo(db *sql.DB) *PostgresNotificationRepo {
	return &PostgresNotificationRepo{db: db}
}

// FindByID は指定IDの通知を取得する。見つからない場合はnilを返す。
func (r *PostgresNotificationRepo) FindByID(ctx context.Context, id string) (*model.Notification, error) {
	n := &model.Notification{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_email, message, type, path, timestamp, read
		 FROM notifications WHERE id = $1`,
		id,
	).Scan(&n.ID, &n.UserEmail, &n.Message, &n.Type, &n.Path, &n.Timestamp, &n.Read)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find notification by ID: %w", err)
	}

	return n, nil
}

// Create は通知を1件作成する。
func (r *PostgresNotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notifications (id, user_email, message, type, path, timestamp, read)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		n.ID, n.UserEmail, n.Message, n.Type, n.Path, n.Timestamp, n.Read,
	)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// CreateMany は通知を一括作成する。
// 単一のマルチバリューINSERTで書き込み、部分的な成功を発生させない。
func (r *PostgresNotificationRepo) CreateMany(ctx context.Context, notifications []*model.Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(`INSERT INTO notifications (id, user_email, message, type, path, timestamp, read) VALUES `)

	args := make([]interface{}, 0, len(notifications)*7)
	for i, n := range notifications {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 7
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7)
		args = append(args, n.ID, n.UserEmail, n.Message, n.Type, n.Path, n.Timestamp, n.Read)
	}

	if _, err := r.db.ExecContext(ctx, sb.String(), args...); err != nil {
		return fmt.Errorf("failed to bulk insert notifications: %w", err)
	}
	return nil
}

// ListByUserEmail は指定受信者の通知一覧をtimestamp降順で返す。
func (r *PostgresNotificationRepo) ListByUserEmail(ctx context.Context, email string) ([]*model.Notification, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_email, message, type, path, timestamp, read
		 FROM notifications WHERE user_email = $1 ORDER BY timestamp DESC`,
		email,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*model.Notification
	for rows.Next() {
		n := &model.Notification{}
		if err := rows.Scan(&n.ID, &n.UserEmail, &n.Message, &n.Type, &n.Path, &n.Timestamp, &n.Read); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notifications: %w", err)
	}

	return notifications, nil
}

// MarkRead は指定IDの通知を既読にし、更新件数を返す。
// 既に既読の場合は0件を返す（冪等）。
func (r *PostgresNotificationRepo) MarkRead(ctx context.Context, id string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read = true WHERE id = $1 AND read = false`,
		id,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notification as read: %w", err)
	}
	return result.RowsAffected()
}

// MarkAllRead は指定受信者の全未読通知を既読にし、更新件数を返す。
// 未読がない場合は0件を返す（冪等）。
func (r *PostgresNotificationRepo) MarkAllRead(ctx context.Context, email string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read = true WHERE user_email = $1 AND read = false`,
		email,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark all notifications as read: %w", err)
	}
	return result.RowsAffected()
}

// Delete は指定IDの通知を削除し、削除件数を返す。
func (r *PostgresNotificationRepo) Delete(ctx context.Context, id string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete notification: %w", err)
	}
	return result.RowsAffected()
}

// compile-time interface check
var _ NotificationRepository = (*PostgresNotificationRepo)(nil)
