package models

// Version снимок закодированного состояния документа.
// Неизменяем после создания.
type Version struct {
	ID          string `json:"id"`
	DocumentID  string `json:"document_id"`
	ProjectID   string `json:"project_id"`
	Title       string `json:"title"`
	CreatedBy   string `json:"created_by"`
	Content     []byte `json:"content"`   // Content полное закодированное состояние CRDT
	Timestamp   int64  `json:"timestamp"` // Timestamp unix milliseconds
	IsAutoSaved bool   `json:"is_auto_saved"`
}

// NewVersion параметры создания версии
type NewVersion struct {
	DocumentID  string
	ProjectID   string
	Title       string
	CreatedBy   string
	Content     []byte
	IsAutoSaved bool
}

// Clone возвращает глубокую копию версии (Content копируется)
func (v *Version) Clone() *Version {
	c := *v
	if v.Content != nil {
		c.Content = append([]byte(nil), v.Content...)
	}
	return &c
}
