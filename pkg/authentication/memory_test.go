// Copyright 2026 Canonical Ltd.
// SPDX-License-Identifier: AGPL-3.0

package authentication

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/canonical/erp-auth/internal/storage"
	"github.com/canonical/erp-auth/internal/tenancy"
	"github.com/canonical/erp-auth/internal/types"
	"github.com/canonical/erp-auth/pkg/audit"
)

// memoryStore is a tenant-aware in-memory StorageInterface. ConsumeSession
// holds the lock for the whole compare and swap, like the conditional UPDATE.
type memoryStore struct {
	mu  sync.Mutex
	seq int

	orgs        map[string]*types.Organization
	roles       map[string]*types.Role
	users       map[string]*types.User
	sessions    map[string]*types.Session
	resetTokens map[string]*types.PasswordResetToken
	permissions map[string][]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		orgs:        make(map[string]*types.Organization),
		roles:       make(map[string]*types.Role),
		users:       make(map[string]*types.User),
		sessions:    make(map[string]*types.Session),
		resetTokens: make(map[string]*types.PasswordResetToken),
		permissions: make(map[string][]string),
	}
}

func (m *memoryStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func visible(ctx context.Context, orgID string) bool {
	tenant, ok := tenancy.TenantIDFromContext(ctx)
	return !ok || tenant == orgID
}

func (m *memoryStore) WithTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

func (m *memoryStore) CreateOrganization(_ context.Context, o *types.Organization) (*types.Organization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.orgs {
		if existing.Slug == o.Slug {
			return nil, fmt.Errorf("insert organization: %w", storage.ErrDuplicateKey)
		}
	}

	org := *o
	org.ID = m.nextID("org")
	org.IsActive = true
	org.CreatedAt = time.Now()
	m.orgs[org.ID] = &org

	out := org
	return &out, nil
}

func (m *memoryStore) CreateRole(ctx context.Context, r *types.Role) (*types.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	role := *r
	role.ID = m.nextID("role")
	if tenant, ok := tenancy.TenantIDFromContext(ctx); ok {
		role.OrganizationID = tenant
	}
	m.roles[role.ID] = &role

	out := role
	return &out, nil
}

func (m *memoryStore) GrantPermissionKeys(_ context.Context, roleID string, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.permissions[roleID] = append(m.permissions[roleID], keys...)
	return nil
}

func (m *memoryStore) addUser(u *types.User) *types.User {
	m.mu.Lock()
	defer m.mu.Unlock()

	user := *u
	if user.ID == "" {
		user.ID = m.nextID("user")
	}
	user.CreatedAt = time.Now()
	m.users[user.ID] = &user

	out := user
	return &out
}

func (m *memoryStore) CreateUser(ctx context.Context, u *types.User) (*types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	user := *u
	if tenant, ok := tenancy.TenantIDFromContext(ctx); ok {
		user.OrganizationID = tenant
	}
	user.Email = strings.ToLower(user.Email)

	for _, existing := range m.users {
		if existing.OrganizationID == user.OrganizationID && existing.Email == user.Email {
			return nil, fmt.Errorf("insert user: %w", storage.ErrDuplicateKey)
		}
	}

	user.ID = m.nextID("user")
	user.IsActive = true
	user.CreatedAt = time.Now()
	m.users[user.ID] = &user

	out := user
	return &out, nil
}

func (m *memoryStore) GetUserByID(ctx context.Context, id string) (*types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok || !visible(ctx, u.OrganizationID) {
		return nil, storage.ErrNotFound
	}

	out := *u
	return &out, nil
}

func (m *memoryStore) GetUserWithRole(ctx context.Context, id string) (*types.UserWithRole, error) {
	u, err := m.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	res := &types.UserWithRole{User: u, Permissions: m.permissions[u.RoleID]}
	if r, ok := m.roles[u.RoleID]; ok {
		role := *r
		res.Role = &role
	}
	return res, nil
}

func (m *memoryStore) FindUsersByEmail(ctx context.Context, email string) ([]*types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var users []*types.User
	for _, u := range m.users {
		if u.Email == strings.ToLower(email) && visible(ctx, u.OrganizationID) {
			out := *u
			users = append(users, &out)
		}
	}

	for i := 1; i < len(users); i++ {
		for j := i; j > 0 && users[j].CreatedAt.Before(users[j-1].CreatedAt); j-- {
			users[j], users[j-1] = users[j-1], users[j]
		}
	}
	return users, nil
}

func (m *memoryStore) UpdateUserPassword(ctx context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok || !visible(ctx, u.OrganizationID) {
		return storage.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (m *memoryStore) CreateSession(_ context.Context, in *types.Session) (*types.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := *in
	s.ID = m.nextID("session")
	s.IsValid = true
	if s.RefreshTokenHash == "" {
		s.RefreshTokenHash = types.PendingTokenHash
	}
	s.CreatedAt = time.Now()
	m.sessions[s.ID] = &s

	out := s
	return &out, nil
}

func (m *memoryStore) UpdateSessionToken(_ context.Context, id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok || !s.IsValid {
		return storage.ErrNotFound
	}
	s.RefreshTokenHash = hash
	return nil
}

func (m *memoryStore) FindSessionByID(_ context.Context, id string) (*types.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := *s
	return &out, nil
}

func (m *memoryStore) ConsumeSession(_ context.Context, id, hash string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok || !s.IsValid || s.RefreshTokenHash != hash || !time.Now().Before(s.ExpiresAt) {
		return false, nil
	}

	now := time.Now()
	s.IsValid = false
	s.RevokedAt = &now
	return true, nil
}

func (m *memoryStore) SetSessionReplacement(_ context.Context, id, replacedBy string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[id]; ok {
		s.ReplacedBy = &replacedBy
	}
	return nil
}

func (m *memoryStore) RevokeSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[id]; ok {
		s.IsValid = false
	}
	return nil
}

func (m *memoryStore) RevokeAllUserSessions(_ context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, s := range m.sessions {
		if s.UserID == userID && s.IsValid {
			s.IsValid = false
			n++
		}
	}
	return n, nil
}

func (m *memoryStore) CreateResetToken(_ context.Context, t *types.PasswordResetToken) (*types.PasswordResetToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	token := *t
	token.ID = m.nextID("reset")
	m.resetTokens[token.ID] = &token

	out := token
	return &out, nil
}

func (m *memoryStore) DeleteUnusedResetTokens(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, t := range m.resetTokens {
		if t.UserID == userID && !t.Used {
			delete(m.resetTokens, id)
		}
	}
	return nil
}

func (m *memoryStore) ListResetTokens(_ context.Context, userID string) ([]*types.PasswordResetToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var tokens []*types.PasswordResetToken
	for _, t := range m.resetTokens {
		if t.UserID == userID {
			out := *t
			tokens = append(tokens, &out)
		}
	}
	return tokens, nil
}

func (m *memoryStore) MarkResetTokenUsed(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.resetTokens[id]
	if !ok || t.Used {
		return false, nil
	}
	t.Used = true
	return true, nil
}

func (m *memoryStore) session(id string) *types.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := *m.sessions[id]
	return &s
}

func (m *memoryStore) user(id string) types.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.users[id]
}

// flakyStore rolls sessions back when a transaction fails and can refuse to
// create sessions.
type flakyStore struct {
	*memoryStore

	failCreate bool
}

func (f *flakyStore) WithTx(ctx context.Context, fn func(context.Context) error) error {
	f.mu.Lock()
	snapshot := make(map[string]types.Session, len(f.sessions))
	for id, s := range f.sessions {
		snapshot[id] = *s
	}
	f.mu.Unlock()

	err := fn(ctx)
	if err == nil {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.sessions = make(map[string]*types.Session, len(snapshot))
	for id := range snapshot {
		s := snapshot[id]
		f.sessions[id] = &s
	}
	return err
}

func (f *flakyStore) CreateSession(ctx context.Context, in *types.Session) (*types.Session, error) {
	if f.failCreate {
		return nil, errors.New("insert session failed")
	}
	return f.memoryStore.CreateSession(ctx, in)
}

// recordingAuditor keeps every entry in memory.
type recordingAuditor struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (a *recordingAuditor) Log(_ context.Context, e audit.Entry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
}

func (a *recordingAuditor) actions(action string) []audit.Entry {
	a.mu.Lock()
	defer a.mu.Unlock()

	var out []audit.Entry
	for _, e := range a.entries {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

// capturingNotifier remembers the last token handed out.
type capturingNotifier struct {
	mu    sync.Mutex
	token string
}

func (n *capturingNotifier) SendResetToken(_ context.Context, _ *types.User, token string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.token = token
	return nil
}

func (n *capturingNotifier) last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.token
}
