// Package memory provides a store.Driver that keeps the ledger in process
// memory. It is used for dry runs and as the backing store in unit tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/jensholdgaard/league-auction/internal/clock"
	"github.com/jensholdgaard/league-auction/internal/config"
	"github.com/jensholdgaard/league-auction/internal/event"
	"github.com/jensholdgaard/league-auction/internal/store"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func init() {
	store.Register("memory", func(_ context.Context, _ config.DatabaseConfig, clk clock.Clock) (*store.Repositories, error) {
		return New(clk), nil
	})
}

// New returns empty in-memory repositories.
func New(clk clock.Clock) *store.Repositories {
	return &store.Repositories{
		Players: NewPlayerRepo(clk),
		Teams:   NewTeamRepo(),
		Users:   NewUserRepo(),
		Events:  NewEventStore(clk),
		Closer:  nopCloser{},
		Ping:    func(context.Context) error { return nil },
		Migrate: func(context.Context) error { return nil },
	}
}

// PlayerRepo implements store.PlayerRepository in memory.
type PlayerRepo struct {
	mu      sync.RWMutex
	players map[string]store.Player
	clock   clock.Clock
}

// NewPlayerRepo returns an empty PlayerRepo.
func NewPlayerRepo(clk clock.Clock) *PlayerRepo {
	return &PlayerRepo{players: make(map[string]store.Player), clock: clk}
}

func (r *PlayerRepo) Get(_ context.Context, name string) (*store.Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.players[name]
	if !ok {
		return nil, fmt.Errorf("player %q: %w", name, store.ErrNotFound)
	}
	return &p, nil
}

// List returns matching players ordered by points descending, then name.
func (r *PlayerRepo) List(_ context.Context, filter store.PlayerFilter) ([]store.Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]store.Player, 0, len(r.players))
	for _, p := range r.players {
		if filter.Match(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r *PlayerRepo) Insert(_ context.Context, players ...store.Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range players {
		if _, ok := r.players[p.Name]; ok {
			return fmt.Errorf("player %q already exists: %w", p.Name, store.ErrConflict)
		}
	}
	now := r.clock.Now().UTC()
	for _, p := range players {
		p.UpdatedAt = now
		r.players[p.Name] = p
	}
	return nil
}

func (r *PlayerRepo) WritePlayer(_ context.Context, name string, expect store.Status, u store.PlayerUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[name]
	if !ok {
		return fmt.Errorf("player %q: %w", name, store.ErrNotFound)
	}
	if expect != "" && p.Status != expect {
		return fmt.Errorf("player %q is %s: %w", name, p.Status, store.ErrConflict)
	}
	u.Apply(&p)
	p.UpdatedAt = r.clock.Now().UTC()
	r.players[name] = p
	return nil
}

func (r *PlayerRepo) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players), nil
}

func (r *PlayerRepo) DeleteAll(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.players)
	return nil
}

// TeamRepo implements store.TeamRepository in memory.
type TeamRepo struct {
	mu    sync.RWMutex
	teams map[string]store.Team
}

// NewTeamRepo returns an empty TeamRepo.
func NewTeamRepo() *TeamRepo {
	return &TeamRepo{teams: make(map[string]store.Team)}
}

func (r *TeamRepo) Get(_ context.Context, name string) (*store.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.teams[name]
	if !ok {
		return nil, fmt.Errorf("team %q: %w", name, store.ErrNotFound)
	}
	return &t, nil
}

// List returns all teams ordered by name.
func (r *TeamRepo) List(_ context.Context) ([]store.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]store.Team, 0, len(r.teams))
	for _, t := range r.teams {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *TeamRepo) Insert(_ context.Context, teams ...store.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range teams {
		if _, ok := r.teams[t.Name]; ok {
			return fmt.Errorf("team %q already exists: %w", t.Name, store.ErrConflict)
		}
	}
	for _, t := range teams {
		r.teams[t.Name] = t
	}
	return nil
}

func (r *TeamRepo) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.teams), nil
}

func (r *TeamRepo) DeleteAll(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.teams)
	return nil
}

// UserRepo implements store.UserRepository in memory.
type UserRepo struct {
	mu    sync.RWMutex
	users map[string]store.User
}

// NewUserRepo returns an empty UserRepo.
func NewUserRepo() *UserRepo {
	return &UserRepo{users: make(map[string]store.User)}
}

func (r *UserRepo) Get(_ context.Context, username string) (*store.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[username]
	if !ok {
		return nil, fmt.Errorf("user %q: %w", username, store.ErrNotFound)
	}
	return &u, nil
}

func (r *UserRepo) Insert(_ context.Context, users ...store.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range users {
		if _, ok := r.users[u.Username]; ok {
			return fmt.Errorf("user %q already exists: %w", u.Username, store.ErrConflict)
		}
	}
	for _, u := range users {
		r.users[u.Username] = u
	}
	return nil
}

func (r *UserRepo) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users), nil
}

func (r *UserRepo) DeleteAll(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.users)
	return nil
}

// EventStore implements event.Store in memory.
type EventStore struct {
	mu     sync.RWMutex
	events []event.Event
	clock  clock.Clock
}

// NewEventStore returns an empty EventStore.
func NewEventStore(clk clock.Clock) *EventStore {
	return &EventStore{clock: clk}
}

func (s *EventStore) Append(_ context.Context, events ...event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range events {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = s.clock.Now().UTC()
		}
		s.events = append(s.events, e)
	}
	return nil
}

func (s *EventStore) Load(_ context.Context, aggregateID string) ([]event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []event.Event
	for _, e := range s.events {
		if e.AggregateID == aggregateID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *EventStore) LoadByType(_ context.Context, eventType event.Type) ([]event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []event.Event
	for _, e := range s.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out, nil
}
