package session_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jensholdgaard/league-auction/internal/session"
	"github.com/jensholdgaard/league-auction/internal/store"
)

type mockUserRepo struct {
	users map[string]store.User
	err   error
}

func (m *mockUserRepo) Get(_ context.Context, username string) (*store.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[username]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (m *mockUserRepo) Insert(_ context.Context, users ...store.User) error {
	for _, u := range users {
		m.users[u.Username] = u
	}
	return nil
}

func (m *mockUserRepo) Count(_ context.Context) (int, error) { return len(m.users), nil }

func (m *mockUserRepo) DeleteAll(_ context.Context) error {
	m.users = map[string]store.User{}
	return nil
}

func TestAuthenticate(t *testing.T) {
	repo := &mockUserRepo{users: map[string]store.User{
		"alice": {Username: "alice", Password: "pw", Role: store.RoleAdmin},
		"bob":   {Username: "bob", Password: "hunter2", Role: store.RoleViewer},
	}}
	ctx := context.Background()

	p, err := session.Authenticate(ctx, repo, "alice", "pw")
	require.NoError(t, err)
	assert.Equal(t, session.Principal{Username: "alice", Role: store.RoleAdmin}, p)

	_, err = session.Authenticate(ctx, repo, "alice", "wrong")
	assert.ErrorIs(t, err, session.ErrInvalidCredentials)

	_, err = session.Authenticate(ctx, repo, "carol", "pw")
	assert.ErrorIs(t, err, session.ErrInvalidCredentials)

	repo.err = errors.New("connection refused")
	_, err = session.Authenticate(ctx, repo, "alice", "pw")
	require.Error(t, err)
	assert.NotErrorIs(t, err, session.ErrInvalidCredentials)
}

func TestPrincipal_Roles(t *testing.T) {
	tests := []struct {
		role      string
		canMutate bool
		isAdmin   bool
	}{
		{store.RoleAdmin, true, true},
		{store.RoleAuctioneer, true, false},
		{store.RoleViewer, false, false},
		{"captain", false, false},
		{"", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			p := session.Principal{Username: "u", Role: tt.role}
			assert.Equal(t, tt.canMutate, p.CanMutate())
			assert.Equal(t, tt.isAdmin, p.IsAdmin())
		})
	}
}

func TestPrincipalContext(t *testing.T) {
	_, ok := session.PrincipalFrom(context.Background())
	assert.False(t, ok)

	ctx := session.WithPrincipal(context.Background(), session.Principal{Username: "alice", Role: store.RoleAdmin})
	p, ok := session.PrincipalFrom(ctx)
	require.True(t, ok)
	assert.Equal(t, "alice", p.Username)
}

func TestTable(t *testing.T) {
	tbl := session.NewTable()
	p := session.Principal{Username: "alice", Role: store.RoleAuctioneer}

	_, ok := tbl.Lookup("discord-1")
	assert.False(t, ok)

	tbl.Login("discord-1", p)
	got, ok := tbl.Lookup("discord-1")
	require.True(t, ok)
	assert.Equal(t, p, got)

	assert.True(t, tbl.Logout("discord-1"))
	assert.False(t, tbl.Logout("discord-1"))

	tbl.Login("discord-2", p)
	tbl.Clear()
	_, ok = tbl.Lookup("discord-2")
	assert.False(t, ok)
}
