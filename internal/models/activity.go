package models

// ActivityType тип записи в ленте активности
type ActivityType string

const (
	ActivityProjectShare ActivityType = "project_share"
	ActivityDocumentEdit ActivityType = "document_edit"
	ActivityTaskMove     ActivityType = "task_move"
)

// ActivityEvent запись ленты активности проекта
type ActivityEvent struct {
	Data      ActivityData `json:"data"`
	ID        string       `json:"id"`
	Type      ActivityType `json:"type"`
	UserID    string       `json:"user_id"`
	UserName  string       `json:"user_name"`
	Timestamp int64        `json:"timestamp"` // unix milliseconds
}

// ActivityData детали события. Заполняются только поля, относящиеся к типу.
type ActivityData struct {
	ProjectID     string `json:"project_id,omitempty"`
	ProjectName   string `json:"project_name,omitempty"`
	DocumentID    string `json:"document_id,omitempty"`
	DocumentTitle string `json:"document_title,omitempty"`
	TaskID        string `json:"task_id,omitempty"`
	TaskTitle     string `json:"task_title,omitempty"`
	FromBoardID   string `json:"from_board_id,omitempty"`
	FromBoard     string `json:"from_board,omitempty"`
	ToBoardID     string `json:"to_board_id,omitempty"`
	ToBoard       string `json:"to_board,omitempty"`
	SharedWithID  string `json:"shared_with_id,omitempty"`
	SharedWith    string `json:"shared_with,omitempty"`
	Role          Role   `json:"role,omitempty"`
}
