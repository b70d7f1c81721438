// Package directory статический справочник пользователей, проектов,
// документов и Kanban-досок. Заменяет внешние хранилища, которые
// ядро только читает.
package directory

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/iudanet/gophboard/internal/models"
	"github.com/iudanet/gophboard/internal/permissions"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrProjectNotFound  = errors.New("project not found")
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidRole      = errors.New("invalid share role")
)

// Directory потокобезопасный справочник.
type Directory struct {
	users     map[string]models.User
	projects  map[string]models.Project
	documents map[string]models.DocumentMeta
	boards    map[string]models.Board
	tasks     map[string]models.Task
	mu        sync.RWMutex
}

// New создает справочник с начальным набором данных.
func New() *Directory {
	d := &Directory{
		users:     make(map[string]models.User),
		projects:  make(map[string]models.Project),
		documents: make(map[string]models.DocumentMeta),
		boards:    make(map[string]models.Board),
		tasks:     make(map[string]models.Task),
	}
	d.seed()
	return d
}

func (d *Directory) seed() {
	for _, u := range []models.User{
		{ID: "userA", Name: "Alice", Email: "alice@example.com"},
		{ID: "userB", Name: "Bob", Email: "bob@example.com"},
		{ID: "userC", Name: "Charlie", Email: "charlie@example.com"},
	} {
		d.users[u.ID] = u
	}

	for _, p := range []models.Project{
		{ID: "1", Name: "Project Alpha", OwnerID: "userA", Shares: []models.Share{{UserID: "userB", Role: models.RoleEditor}}},
		{ID: "2", Name: "Project Beta", OwnerID: "userA", Shares: []models.Share{{UserID: "userC", Role: models.RoleViewer}}},
		{ID: "3", Name: "Project Gamma", OwnerID: "userB", Shares: []models.Share{{UserID: "userA", Role: models.RoleAdmin}}},
	} {
		d.projects[p.ID] = p
	}

	for _, doc := range []models.DocumentMeta{
		{ID: "doc-1", ProjectID: "1", Title: "Meeting notes"},
		{ID: "doc-2", ProjectID: "1", Title: "Roadmap"},
		{ID: "doc-3", ProjectID: "2", Title: "Research"},
	} {
		d.documents[doc.ID] = doc
	}

	for _, b := range []models.Board{
		{ID: "board-1", ProjectID: "1", Title: "To Do"},
		{ID: "board-2", ProjectID: "1", Title: "In Progress"},
		{ID: "board-3", ProjectID: "1", Title: "Done"},
		{ID: "board-4", ProjectID: "2", Title: "Backlog"},
		{ID: "board-5", ProjectID: "2", Title: "Testing"},
	} {
		d.boards[b.ID] = b
	}

	for _, t := range []models.Task{
		{ID: "task-1", ProjectID: "1", BoardID: "board-1", Title: "Design homepage"},
		{ID: "task-2", ProjectID: "1", BoardID: "board-1", Title: "Setup database"},
		{ID: "task-3", ProjectID: "1", BoardID: "board-2", Title: "Implement authentication"},
		{ID: "task-4", ProjectID: "1", BoardID: "board-3", Title: "Write API documentation"},
		{ID: "task-5", ProjectID: "2", BoardID: "board-4", Title: "Research tech stack"},
	} {
		d.tasks[t.ID] = t
	}
}

// Users возвращает всех пользователей, отсортированных по ID.
func (d *Directory) Users() []models.User {
	d.mu.RLock()
	defer d.mu.RUnlock()

	users := make([]models.User, 0, len(d.users))
	for _, u := range d.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users
}

func (d *Directory) User(id string) (models.User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[id]
	return u, ok
}

// UserByName ищет пользователя по имени или email.
func (d *Directory) UserByName(name string) (models.User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, u := range d.users {
		if u.Name == name || u.Email == name || u.ID == name {
			return u, true
		}
	}
	return models.User{}, false
}

func (d *Directory) Project(id string) (models.Project, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.projects[id]
	if !ok {
		return models.Project{}, false
	}
	p.Shares = append([]models.Share(nil), p.Shares...)
	return p, true
}

// VisibleProjects проекты, которыми пользователь владеет или которые ему расшарены.
func (d *Directory) VisibleProjects(userID string) []models.Project {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var result []models.Project
	for _, p := range d.projects {
		if roleLocked(p, userID) != models.RoleNone {
			p.Shares = append([]models.Share(nil), p.Shares...)
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Role возвращает роль пользователя в проекте: owner для владельца,
// роль из шаринга для остальных, RoleNone если доступа нет.
func (d *Directory) Role(projectID, userID string) models.Role {
	d.mu.RLock()
	defer d.mu.RUnlock()
	p, ok := d.projects[projectID]
	if !ok {
		return models.RoleNone
	}
	return roleLocked(p, userID)
}

func roleLocked(p models.Project, userID string) models.Role {
	if p.OwnerID == userID {
		return models.RoleOwner
	}
	for _, s := range p.Shares {
		if s.UserID == userID {
			return s.Role
		}
	}
	return models.RoleNone
}

// AddShare выдает пользователю роль в проекте. Повторный шаринг меняет роль.
func (d *Directory) AddShare(projectID, userID string, role models.Role) error {
	if !permissions.IsShareable(role) {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.projects[projectID]
	if !ok {
		return ErrProjectNotFound
	}
	if _, ok := d.users[userID]; !ok {
		return ErrUserNotFound
	}

	shares := append([]models.Share(nil), p.Shares...)
	replaced := false
	for i := range shares {
		if shares[i].UserID == userID {
			shares[i].Role = role
			replaced = true
		}
	}
	if !replaced {
		shares = append(shares, models.Share{UserID: userID, Role: role})
	}
	p.Shares = shares
	d.projects[projectID] = p
	return nil
}

func (d *Directory) Document(id string) (models.DocumentMeta, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	doc, ok := d.documents[id]
	return doc, ok
}

// Documents документы проекта, отсортированные по ID.
func (d *Directory) Documents(projectID string) []models.DocumentMeta {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var docs []models.DocumentMeta
	for _, doc := range d.documents {
		if doc.ProjectID == projectID {
			docs = append(docs, doc)
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs
}

// AddDocument создает документ в проекте.
func (d *Directory) AddDocument(projectID, title string) (models.DocumentMeta, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.projects[projectID]; !ok {
		return models.DocumentMeta{}, ErrProjectNotFound
	}
	doc := models.DocumentMeta{
		ID:        "doc-" + uuid.New().String(),
		ProjectID: projectID,
		Title:     title,
	}
	d.documents[doc.ID] = doc
	return doc, nil
}

// Boards доски проекта, отсортированные по ID.
func (d *Directory) Boards(projectID string) []models.Board {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var boards []models.Board
	for _, b := range d.boards {
		if b.ProjectID == projectID {
			boards = append(boards, b)
		}
	}
	sort.Slice(boards, func(i, j int) bool { return boards[i].ID < boards[j].ID })
	return boards
}

// Tasks задачи доски, отсортированные по ID.
func (d *Directory) Tasks(boardID string) []models.Task {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var tasks []models.Task
	for _, t := range d.tasks {
		if t.BoardID == boardID {
			tasks = append(tasks, t)
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks
}

func (d *Directory) Board(id string) (models.Board, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	b, ok := d.boards[id]
	return b, ok
}

func (d *Directory) Task(id string) (models.Task, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	t, ok := d.tasks[id]
	return t, ok
}

// MoveTask переносит задачу на другую доску того же проекта.
func (d *Directory) MoveTask(taskID, boardID string) (from, to models.Board, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	task, ok := d.tasks[taskID]
	if !ok {
		return models.Board{}, models.Board{}, fmt.Errorf("task %s not found", taskID)
	}
	target, ok := d.boards[boardID]
	if !ok || target.ProjectID != task.ProjectID {
		return models.Board{}, models.Board{}, fmt.Errorf("board %s not found in project %s", boardID, task.ProjectID)
	}

	from = d.boards[task.BoardID]
	task.BoardID = boardID
	d.tasks[taskID] = task
	return from, target, nil
}
