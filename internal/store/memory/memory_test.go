package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jensholdgaard/league-auction/internal/clock"
	"github.com/jensholdgaard/league-auction/internal/event"
	"github.com/jensholdgaard/league-auction/internal/store"
	"github.com/jensholdgaard/league-auction/internal/store/memory"
)

var testClk = clock.Mock{T: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}

func TestPlayerRepo_InsertGetList(t *testing.T) {
	repo := memory.NewPlayerRepo(testClk)
	ctx := context.Background()

	err := repo.Insert(ctx,
		store.Player{Name: "Alpha", Skill: "Batsman", Points: 300, Tier: store.TierRegular, AuctionState: store.Unsold()},
		store.Player{Name: "Bravo", Skill: "Bowler", Points: 500, Tier: store.TierPrime, AuctionState: store.Unsold()},
		store.Player{Name: "Charlie", Skill: "Bowler", Points: 300, Tier: store.TierRegular, AuctionState: store.SoldTo("Hawks", 400)},
	)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := repo.Get(ctx, "Bravo")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Points != 500 || !got.UpdatedAt.Equal(testClk.T) {
		t.Errorf("Get = %+v, want points 500 and UpdatedAt %v", got, testClk.T)
	}

	all, _ := repo.List(ctx, store.PlayerFilter{})
	wantOrder := []string{"Bravo", "Alpha", "Charlie"}
	for i, name := range wantOrder {
		if all[i].Name != name {
			t.Errorf("List()[%d] = %q, want %q", i, all[i].Name, name)
		}
	}

	bowlers, _ := repo.List(ctx, store.PlayerFilter{Skill: "Bowler", Status: store.StatusUnsold})
	if len(bowlers) != 1 || bowlers[0].Name != "Bravo" {
		t.Errorf("unsold bowlers = %v, want [Bravo]", bowlers)
	}

	if err := repo.Insert(ctx, store.Player{Name: "Alpha"}); err == nil {
		t.Error("expected error inserting duplicate player")
	}

	if _, err := repo.Get(ctx, "Nobody"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Get(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestPlayerRepo_WritePlayer(t *testing.T) {
	repo := memory.NewPlayerRepo(testClk)
	ctx := context.Background()
	if err := repo.Insert(ctx, store.Player{Name: "Alpha", Tier: store.TierPrime, AuctionState: store.Unsold()}); err != nil {
		t.Fatal(err)
	}

	sold := store.SoldTo("Hawks", 600)
	if err := repo.WritePlayer(ctx, "Alpha", store.StatusUnsold, store.PlayerUpdate{State: &sold}); err != nil {
		t.Fatalf("WritePlayer(sell): %v", err)
	}

	// Second conditional sale must lose.
	err := repo.WritePlayer(ctx, "Alpha", store.StatusUnsold, store.PlayerUpdate{State: &sold})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("second sell error = %v, want ErrConflict", err)
	}

	end := store.TierEnd
	if err := repo.WritePlayer(ctx, "Alpha", "", store.PlayerUpdate{Tier: &end}); err != nil {
		t.Fatalf("WritePlayer(tier): %v", err)
	}
	got, _ := repo.Get(ctx, "Alpha")
	if got.Tier != store.TierEnd || got.Owner != "Hawks" || got.Price != 600 {
		t.Errorf("player = %+v, want tier end owned by Hawks for 600", got)
	}

	if err := repo.WritePlayer(ctx, "Ghost", "", store.PlayerUpdate{Tier: &end}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("WritePlayer(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestTeamAndUserRepos(t *testing.T) {
	ctx := context.Background()
	teams := memory.NewTeamRepo()
	if err := teams.Insert(ctx, store.Team{Name: "Owls", Budget: 20000}, store.Team{Name: "Hawks", Budget: 20000}); err != nil {
		t.Fatal(err)
	}
	list, _ := teams.List(ctx)
	if len(list) != 2 || list[0].Name != "Hawks" {
		t.Errorf("List = %v, want Hawks first", list)
	}
	if n, _ := teams.Count(ctx); n != 2 {
		t.Errorf("Count = %d, want 2", n)
	}
	_ = teams.DeleteAll(ctx)
	if n, _ := teams.Count(ctx); n != 0 {
		t.Errorf("Count after DeleteAll = %d, want 0", n)
	}

	users := memory.NewUserRepo()
	if err := users.Insert(ctx, store.User{Username: "admin", Password: "pw", Role: store.RoleAdmin}); err != nil {
		t.Fatal(err)
	}
	u, err := users.Get(ctx, "admin")
	if err != nil || u.Role != store.RoleAdmin {
		t.Errorf("Get(admin) = %+v, %v", u, err)
	}
	if _, err := users.Get(ctx, "nobody"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Get(nobody) error = %v, want ErrNotFound", err)
	}
}

func TestEventStore(t *testing.T) {
	es := memory.NewEventStore(testClk)
	ctx := context.Background()

	if err := es.Append(ctx,
		event.Event{AggregateID: "Alpha", Type: event.PlayerAssigned},
		event.Event{AggregateID: "Alpha", Type: event.PlayerUnassigned},
		event.Event{AggregateID: "Bravo", Type: event.PlayerAssigned},
	); err != nil {
		t.Fatal(err)
	}

	alpha, _ := es.Load(ctx, "Alpha")
	if len(alpha) != 2 || alpha[0].Type != event.PlayerAssigned {
		t.Fatalf("Load(Alpha) = %v", alpha)
	}
	if alpha[0].ID == "" || alpha[0].CreatedAt.IsZero() {
		t.Errorf("expected ID and CreatedAt to be filled, got %+v", alpha[0])
	}

	assigned, _ := es.LoadByType(ctx, event.PlayerAssigned)
	if len(assigned) != 2 {
		t.Errorf("LoadByType(assigned) = %d events, want 2", len(assigned))
	}
}
