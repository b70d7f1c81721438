// Package permissions проверяет возможности роли в проекте.
// Проверки рекомендательные и не являются границей безопасности.
package permissions

import "github.com/iudanet/gophboard/internal/models"

// CanEdit сообщает, может ли роль редактировать документы и доски.
func CanEdit(role models.Role) bool {
	switch role {
	case models.RoleOwner, models.RoleAdmin, models.RoleEditor:
		return true
	default:
		return false
	}
}

// CanShareProject сообщает, может ли роль делиться проектом.
func CanShareProject(role models.Role) bool {
	switch role {
	case models.RoleOwner, models.RoleAdmin:
		return true
	default:
		return false
	}
}

// IsShareable сообщает, можно ли выдать роль через шаринг.
// Владелец у проекта один, его роль не выдается.
func IsShareable(role models.Role) bool {
	switch role {
	case models.RoleAdmin, models.RoleEditor, models.RoleViewer:
		return true
	default:
		return false
	}
}
