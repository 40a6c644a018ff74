// Package session carries the authenticated operator through a request.
// Credentials are compared in plaintext; there is no further security model.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jensholdgaard/league-auction/internal/store"
)

// ErrInvalidCredentials is returned when a username/password pair does not match.
var ErrInvalidCredentials = errors.New("invalid username or password")

// Principal is the user acting in a request.
type Principal struct {
	Username string
	Role     string
}

// CanMutate reports whether the principal may change the ledger.
func (p Principal) CanMutate() bool {
	return p.Role == store.RoleAdmin || p.Role == store.RoleAuctioneer
}

// IsAdmin reports whether the principal has the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == store.RoleAdmin
}

type principalKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal stored in ctx, if any.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// Authenticate checks username and password against the user store.
func Authenticate(ctx context.Context, users store.UserRepository, username, password string) (Principal, error) {
	u, err := users.Get(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return Principal{}, ErrInvalidCredentials
	}
	if err != nil {
		return Principal{}, fmt.Errorf("looking up user: %w", err)
	}
	if u.Password != password {
		return Principal{}, ErrInvalidCredentials
	}
	return Principal{Username: u.Username, Role: u.Role}, nil
}

// Table maps an external identity (a Discord user ID) to a logged-in principal.
// It is safe for concurrent use.
type Table struct {
	mu       sync.RWMutex
	sessions map[string]Principal
}

// NewTable returns an empty session table.
func NewTable() *Table {
	return &Table{sessions: make(map[string]Principal)}
}

// Login records p for id, replacing any previous session.
func (t *Table) Login(id string, p Principal) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessions[id] = p
}

// Logout drops the session for id. It reports whether one existed.
func (t *Table) Logout(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.sessions[id]
	delete(t.sessions, id)
	return ok
}

// Lookup returns the principal logged in as id.
func (t *Table) Lookup(id string) (Principal, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.sessions[id]
	return p, ok
}

// Clear drops every session. Used after a ledger reset reloads the users.
func (t *Table) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	clear(t.sessions)
}
