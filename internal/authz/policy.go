// Package authz は認証後に評価する宣言的な認可ポリシーを提供する。
// 各操作は必要な能力（役割の集合、または対象リソースの所有）を宣言し、
// 単一の評価関数で一律に強制する。
package authz

import "github.com/hitoshi/lendman/internal/model"

// RequireRole は呼び出し元の役割が許可リストに含まれることを要求する。
// 含まれない場合はForbiddenエラーを返す。
func RequireRole(identity *model.Identity, roles ...model.Role) error {
	if identity == nil {
		return model.NewForbiddenError()
	}
	for _, role := range roles {
		if identity.Role == role {
			return nil
		}
	}
	return model.NewForbiddenError()
}

// RequireOwnerOrAdmin は呼び出し元がリソースの所有者または管理者であることを要求する。
// 申込や通知の削除など、所有権で保護される操作に使用する。
func RequireOwnerOrAdmin(identity *model.Identity, ownerEmail string) error {
	if identity == nil {
		return model.NewForbiddenError()
	}
	if identity.Role == model.RoleAdmin {
		return nil
	}
	if identity.Email != "" && identity.Email == ownerEmail {
		return nil
	}
	return model.NewForbiddenError()
}
