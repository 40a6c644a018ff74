package store

import (
	"context"
	"errors"
	"time"

	"github.com/jensholdgaard/league-auction/internal/scoring"
)

// Errors returned by repository implementations.
var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conditional write did not match current state")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Status is the auction status of a player.
type Status string

const (
	StatusUnsold Status = "unsold"
	StatusSold   Status = "sold"
)

// Tier controls the order in which unsold players are drawn.
type Tier string

const (
	TierPrime   Tier = "prime"
	TierRegular Tier = "regular"
	TierEnd     Tier = "end"
)

// Tiers lists the tiers in draw order.
var Tiers = []Tier{TierPrime, TierRegular, TierEnd}

// Valid reports whether t is a known tier.
func (t Tier) Valid() bool {
	switch t {
	case TierPrime, TierRegular, TierEnd:
		return true
	}
	return false
}

// AuctionState is the mutable part of a player record.
type AuctionState struct {
	Status Status `db:"status"`
	Owner  string `db:"owner"`
	Price  int    `db:"auction_price"`
}

// Unsold is the state of a player nobody owns.
func Unsold() AuctionState {
	return AuctionState{Status: StatusUnsold}
}

// SoldTo is the state of a player bought by team at price.
func SoldTo(team string, price int) AuctionState {
	return AuctionState{Status: StatusSold, Owner: team, Price: price}
}

// Player is a draftable player. Name is unique.
type Player struct {
	Name         string `db:"name"`
	FlatNo       string `db:"flat_no"`
	Skill        string `db:"skill"`
	Position     string `db:"position"`
	BattingLevel string `db:"batting_level"`
	BowlingLevel string `db:"bowling_level"`
	BowlingStyle string `db:"bowling_style"`
	Wicketkeeper string `db:"wicketkeeper"`
	Points       int    `db:"points"`
	Tier         Tier   `db:"tier"`
	AuctionState
	UpdatedAt time.Time `db:"updated_at"`
}

// Attributes returns the scorable attributes of p.
func (p Player) Attributes() scoring.Attributes {
	return scoring.Attributes{
		Position:     p.Position,
		Skill:        p.Skill,
		BattingLevel: p.BattingLevel,
		BowlingLevel: p.BowlingLevel,
		BowlingStyle: p.BowlingStyle,
		Wicketkeeper: p.Wicketkeeper,
	}
}

// Sold reports whether the player is owned by a team. Status is the single
// source of truth; owner and price are only meaningful when sold.
func (p Player) Sold() bool { return p.Status == StatusSold }

// Team is a franchise with a fixed starting budget. Name is unique.
type Team struct {
	Name   string `db:"name"`
	Budget int    `db:"budget"`
}

// Role values for users.
const (
	RoleAdmin      = "admin"
	RoleAuctioneer = "auctioneer"
	RoleViewer     = "viewer"
)

// User is an operator or viewer account.
type User struct {
	Username string `db:"username"`
	Password string `db:"password"`
	Role     string `db:"role"`
}

// PlayerFilter narrows List results. Zero values match everything.
type PlayerFilter struct {
	Status Status
	Owner  string
	Skill  string
	Tier   Tier
}

// Match reports whether p satisfies the filter.
func (f PlayerFilter) Match(p Player) bool {
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	if f.Owner != "" && p.Owner != f.Owner {
		return false
	}
	if f.Skill != "" && !scoring.SameSkill(p.Skill, f.Skill) {
		return false
	}
	if f.Tier != "" && p.Tier != f.Tier {
		return false
	}
	return true
}

// PlayerUpdate lists the player fields to write. Nil fields are left unchanged.
type PlayerUpdate struct {
	State *AuctionState
	Tier  *Tier
}

// Apply writes the non-nil fields of u onto p.
func (u PlayerUpdate) Apply(p *Player) {
	if u.State != nil {
		p.AuctionState = *u.State
	}
	if u.Tier != nil {
		p.Tier = *u.Tier
	}
}

// PlayerRepository defines player persistence operations.
type PlayerRepository interface {
	Get(ctx context.Context, name string) (*Player, error)
	List(ctx context.Context, filter PlayerFilter) ([]Player, error)
	// Insert adds new players. A duplicate name yields ErrConflict.
	Insert(ctx context.Context, players ...Player) error
	// WritePlayer applies u to the named player. When expect is non-empty the
	// write only happens if the stored status equals expect, and ErrConflict
	// is returned otherwise. The check and the write are one atomic step.
	WritePlayer(ctx context.Context, name string, expect Status, u PlayerUpdate) error
	Count(ctx context.Context) (int, error)
	DeleteAll(ctx context.Context) error
}

// TeamRepository defines team persistence operations.
type TeamRepository interface {
	Get(ctx context.Context, name string) (*Team, error)
	List(ctx context.Context) ([]Team, error)
	Insert(ctx context.Context, teams ...Team) error
	Count(ctx context.Context) (int, error)
	DeleteAll(ctx context.Context) error
}

// UserRepository defines user persistence operations.
type UserRepository interface {
	Get(ctx context.Context, username string) (*User, error)
	Insert(ctx context.Context, users ...User) error
	Count(ctx context.Context) (int, error)
	DeleteAll(ctx context.Context) error
}
