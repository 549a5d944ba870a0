// Package model はドメインモデルを定義する。
package model

import "time"

// Role はユーザーの役割を表す。
type Role string

const (
	// RoleApplicant は融資に申し込む一般ユーザー。
	RoleApplicant Role = "applicant"
	// RoleManager は融資商品の掲載と審査を行うローンマネージャー。
	RoleManager Role = "manager"
	// RoleAdmin はシステム管理者。
	RoleAdmin Role = "admin"
)

// IsValid は定義済みの役割かどうかを返す。
func (r Role) IsValid() bool {
	switch r {
	case RoleApplicant, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// User はサービス利用ユーザーを表す。
// emailが一意キーであり、初回サインイン時に自動作成される。
type User struct {
	ID        string
	Email     string
	Name      string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Identity はサインイン時にトークンへ格納する本人情報を表す。
// 署名付きトークンの中にのみ存在し、永続化されない。
type Identity struct {
	Email string
	Name  string
	Role  Role
}
