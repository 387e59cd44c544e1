package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/ayush/blog/internal/models"
)

// MemoryStore implements the same operations as PostgresStore in process
// memory. It backs STORE=memory for local development and the handler tests.
type MemoryStore struct {
	mu    sync.Mutex
	users []*models.User
	posts []*models.Post

	userIDCounter int64
	postIDCounter int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) userByID(id int64) *models.User {
	for _, u := range m.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (m *MemoryStore) taken(id int64, handle, email string) bool {
	for _, u := range m.users {
		if u.ID == id {
			continue
		}
		if handle != "" && strings.EqualFold(u.Handle, handle) {
			return true
		}
		if email != "" && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

func (m *MemoryStore) GetUserByHandle(_ context.Context, handle string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Handle, handle) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (m *MemoryStore) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.userByID(id)
	if u == nil {
		return nil, models.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryStore) CreateUser(_ context.Context, u *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.taken(0, u.Handle, u.Email) {
		return nil, models.ErrDuplicateRegistration
	}
	m.userIDCounter++
	u.ID = m.userIDCounter
	u.CreatedAt = time.Now().UTC()
	cp := *u
	m.users = append(m.users, &cp)
	return u, nil
}

func (m *MemoryStore) UpdatePassword(_ context.Context, id int64, hash string, mustReset bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.userByID(id)
	if u == nil {
		return models.ErrNotFound
	}
	u.PasswordHash = hash
	u.MustResetPassword = mustReset
	return nil
}

func (m *MemoryStore) ToggleActive(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.userByID(id)
	if u == nil {
		return false, models.ErrNotFound
	}
	u.Active = !u.Active
	return u.Active, nil
}

func (m *MemoryStore) UpdateProfile(_ context.Context, id int64, name, handle, avatar string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.userByID(id)
	if u == nil {
		return models.ErrNotFound
	}
	if m.taken(id, handle, "") {
		return models.ErrDuplicateRegistration
	}
	u.Name, u.Handle, u.Avatar = name, handle, avatar
	return nil
}

func (m *MemoryStore) UpdateEmail(_ context.Context, id int64, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.userByID(id)
	if u == nil {
		return models.ErrNotFound
	}
	if m.taken(id, "", email) {
		return models.ErrDuplicateRegistration
	}
	u.Email = email
	return nil
}

func (m *MemoryStore) DeleteUser(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, u := range m.users {
		if u.ID != id {
			continue
		}
		m.users = append(m.users[:i], m.users[i+1:]...)
		kept := m.posts[:0]
		for _, p := range m.posts {
			if p.AuthorID != id {
				kept = append(kept, p)
			}
		}
		m.posts = kept
		return nil
	}
	return models.ErrNotFound
}

func (m *MemoryStore) ListUsers(_ context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		cp := *u
		cp.PasswordHash = ""
		out = append(out, cp)
	}
	return out, nil
}

func (m *MemoryStore) CountUsers(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users), nil
}

func (m *MemoryStore) GetPost(_ context.Context, id int64) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.posts {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

// visible returns the posts of active authors, newest first.
func (m *MemoryStore) visible() []models.PostView {
	var out []models.PostView
	for _, p := range m.posts {
		u := m.userByID(p.AuthorID)
		if u == nil || !u.Active {
			continue
		}
		out = append(out, models.PostView{Post: *p, AuthorHandle: u.Handle, AuthorAvatar: u.Avatar})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (m *MemoryStore) ListPosts(_ context.Context) ([]models.PostView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.visible(), nil
}

func (m *MemoryStore) CreatePost(_ context.Context, p *models.Post) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.userByID(p.AuthorID) == nil {
		return nil, models.ErrNotFound
	}
	m.postIDCounter++
	p.ID = m.postIDCounter
	p.CreatedAt = time.Now().UTC()
	cp := *p
	m.posts = append(m.posts, &cp)
	return p, nil
}

func (m *MemoryStore) UpdatePost(_ context.Context, id, authorID int64, title, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.posts {
		if p.ID != id {
			continue
		}
		if p.AuthorID != authorID {
			return models.ErrNotAuthorized
		}
		p.Title, p.Body = title, body
		return nil
	}
	return models.ErrNotFound
}

func (m *MemoryStore) DeletePost(_ context.Context, id, actorID int64, asAdmin bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.posts {
		if p.ID != id {
			continue
		}
		if !asAdmin && p.AuthorID != actorID {
			return models.ErrNotAuthorized
		}
		m.posts = append(m.posts[:i], m.posts[i+1:]...)
		return nil
	}
	return models.ErrNotFound
}

func (m *MemoryStore) CountPosts(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.posts), nil
}

func (m *MemoryStore) MostFamousPost(_ context.Context) (*models.PostView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *models.PostView
	for _, v := range m.visible() {
		if best == nil || utf8.RuneCountInString(v.Body) > utf8.RuneCountInString(best.Body) {
			cp := v
			best = &cp
		}
	}
	if best == nil {
		return nil, models.ErrNotFound
	}
	return best, nil
}

func (m *MemoryStore) TopAuthor(_ context.Context) (*models.AuthorStat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[int64]int)
	for _, v := range m.visible() {
		counts[v.AuthorID]++
	}
	var best *models.AuthorStat
	for _, u := range m.users {
		n := counts[u.ID]
		if n == 0 {
			continue
		}
		if best == nil || n > best.Posts {
			best = &models.AuthorStat{UserID: u.ID, Handle: u.Handle, Avatar: u.Avatar, Posts: n}
		}
	}
	if best == nil {
		return nil, models.ErrNotFound
	}
	return best, nil
}
