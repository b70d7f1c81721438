package models

// Role роль пользователя в проекте
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
	RoleNone   Role = ""
)

// User представляет пользователя в системе
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Share доступ пользователя к чужому проекту
type Share struct {
	UserID string `json:"user_id"`
	Role   Role   `json:"role"`
}

// Project проект, которому принадлежат документы и доски
type Project struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	OwnerID string  `json:"owner_id"`
	Shares  []Share `json:"shares,omitempty"`
}

// DocumentMeta метаданные документа проекта (содержимое живет в CRDT-движке)
type DocumentMeta struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Title     string `json:"title"`
}

// Board колонка Kanban-доски
type Board struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Title     string `json:"title"`
}

// Task карточка Kanban-доски
type Task struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	BoardID   string `json:"board_id"`
	Title     string `json:"title"`
}
