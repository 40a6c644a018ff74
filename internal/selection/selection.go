// Package selection chooses the next lot to put up for auction.
//
// Unsold players are bucketed by tier and the first non-empty bucket in the
// order prime, regular, end is used; the lot is drawn uniformly at random
// from that bucket. A category filter narrows the chosen bucket only and
// never falls through to a later tier.
package selection

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jensholdgaard/league-auction/internal/ledger"
	"github.com/jensholdgaard/league-auction/internal/scoring"
	"github.com/jensholdgaard/league-auction/internal/store"
)

// ErrNoPlayersAvailable is returned when no unsold player matches the draw.
var ErrNoPlayersAvailable = errors.New("no players available")

// AllCategories disables the category filter, as does an empty string.
const AllCategories = "All"

// Criteria narrows a draw. A zero Criteria draws from the first non-empty tier.
type Criteria struct {
	Tier     store.Tier
	Category string
}

// Selector draws lots from the unsold pool. It is safe for concurrent use.
type Selector struct {
	players store.PlayerRepository
	tracer  trace.Tracer

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSelector returns a Selector drawing with rng. A nil rng uses a randomly
// seeded source.
func NewSelector(players store.PlayerRepository, tp trace.TracerProvider, rng *rand.Rand) *Selector {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Selector{
		players: players,
		tracer:  tp.Tracer("github.com/jensholdgaard/league-auction/internal/selection"),
		rng:     rng,
	}
}

// SelectNext draws the next lot according to c.
func (s *Selector) SelectNext(ctx context.Context, c Criteria) (*store.Player, error) {
	ctx, span := s.tracer.Start(ctx, "Selector.SelectNext",
		trace.WithAttributes(
			attribute.String("tier", string(c.Tier)),
			attribute.String("category", c.Category),
		),
	)
	defer span.End()

	if c.Tier != "" && !c.Tier.Valid() {
		return nil, fmt.Errorf("unknown tier %q", c.Tier)
	}

	unsold, err := s.players.List(ctx, store.PlayerFilter{Status: store.StatusUnsold})
	if err != nil {
		return nil, fmt.Errorf("listing unsold players: %w", err)
	}

	bucket, tier := chooseBucket(unsold, c.Tier)
	if category := c.Category; category != "" && category != AllCategories {
		bucket = filterCategory(bucket, category)
	}
	if len(bucket) == 0 {
		return nil, noneAvailable(c, tier)
	}

	span.SetAttributes(attribute.String("drawn_tier", string(tier)), attribute.Int("bucket_size", len(bucket)))

	s.mu.Lock()
	p := bucket[s.rng.IntN(len(bucket))]
	s.mu.Unlock()
	return &p, nil
}

// Pick returns the named player as the next lot if it is still unsold.
func (s *Selector) Pick(ctx context.Context, name string) (*store.Player, error) {
	ctx, span := s.tracer.Start(ctx, "Selector.Pick",
		trace.WithAttributes(attribute.String("player", name)),
	)
	defer span.End()

	p, err := s.players.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("getting player %q: %w", name, err)
	}
	if p.Sold() {
		return nil, fmt.Errorf("%w: %s belongs to %s", ledger.ErrAlreadySold, p.Name, p.Owner)
	}
	return p, nil
}

// chooseBucket partitions unsold players by tier and returns the requested
// bucket, or the first non-empty one in draw order when want is empty.
// Players with an unrecognised tier are drawn as regular.
func chooseBucket(unsold []store.Player, want store.Tier) ([]store.Player, store.Tier) {
	buckets := make(map[store.Tier][]store.Player, len(store.Tiers))
	for _, p := range unsold {
		if p.Sold() {
			continue
		}
		tier := p.Tier
		if !tier.Valid() {
			tier = store.TierRegular
		}
		buckets[tier] = append(buckets[tier], p)
	}

	if want != "" {
		return buckets[want], want
	}
	for _, tier := range store.Tiers {
		if len(buckets[tier]) > 0 {
			return buckets[tier], tier
		}
	}
	return nil, ""
}

func filterCategory(players []store.Player, category string) []store.Player {
	var out []store.Player
	for _, p := range players {
		if scoring.SameSkill(p.Skill, category) {
			out = append(out, p)
		}
	}
	return out
}

func noneAvailable(c Criteria, tier store.Tier) error {
	switch {
	case tier == "":
		return fmt.Errorf("%w: every player has been sold", ErrNoPlayersAvailable)
	case c.Category != "" && c.Category != AllCategories:
		return fmt.Errorf("%w: no unsold %s in the %s tier", ErrNoPlayersAvailable, c.Category, tier)
	default:
		return fmt.Errorf("%w: no unsold players in the %s tier", ErrNoPlayersAvailable, tier)
	}
}
