package model

import "time"

// NotificationType は通知の種別を表す。
type NotificationType string

const (
	// NotificationInfo はお知らせ通知（新着融資商品など）。
	NotificationInfo NotificationType = "info"
	// NotificationSuccess は成功通知（申込承認など）。
	NotificationSuccess NotificationType = "success"
	// NotificationError はエラー通知（申込却下など）。
	NotificationError NotificationType = "error"
)

// Notification はユーザーへの通知レコードを表す。
// ライフサイクルイベントの副作用としてのみ作成される。
type Notification struct {
	ID        string
	UserEmail string // 受信者
	Message   string
	Type      NotificationType
	Path      string // 画面遷移用のディープリンク（任意）
	Timestamp time.Time
	Read      bool
}
