package postgres_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jensholdgaard/league-auction/internal/store"
	"github.com/jensholdgaard/league-auction/internal/store/postgres"
)

func TestTeamRepo(t *testing.T) {
	db, _ := newTestDB(t)
	repo := postgres.NewTeamRepo(db)
	ctx := context.Background()

	if err := repo.Insert(ctx, store.Team{Name: "Owls", Budget: 20000}, store.Team{Name: "Hawks", Budget: 25000}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := repo.Get(ctx, "Hawks")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Budget != 25000 {
		t.Errorf("Budget = %d, want 25000", got.Budget)
	}

	teams, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(teams) != 2 || teams[0].Name != "Hawks" || teams[1].Name != "Owls" {
		t.Errorf("List = %+v, want Hawks, Owls", teams)
	}

	if _, err := repo.Get(ctx, "Lions"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}

	if err := repo.Insert(ctx, store.Team{Name: "Broke", Budget: 0}); err == nil {
		t.Error("expected zero budget to be rejected")
	}

	if err := repo.DeleteAll(ctx); err != nil {
		t.Fatalf("DeleteAll: %v", err)
	}
	if n, _ := repo.Count(ctx); n != 0 {
		t.Errorf("Count after DeleteAll = %d", n)
	}
}

func TestUserRepo(t *testing.T) {
	db, _ := newTestDB(t)
	repo := postgres.NewUserRepo(db)
	ctx := context.Background()

	if err := repo.Insert(ctx, store.User{Username: "admin", Password: "secret", Role: store.RoleAdmin}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := repo.Get(ctx, "admin")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Role != store.RoleAdmin || got.Password != "secret" {
		t.Errorf("Get = %+v", got)
	}

	if _, err := repo.Get(ctx, "ghost"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
	if n, _ := repo.Count(ctx); n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
}
