package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jensholdgaard/league-auction/internal/clock"
	"github.com/jensholdgaard/league-auction/internal/scoring"
	"github.com/jensholdgaard/league-auction/internal/store"
)

// Player document fields.
const (
	fieldName   = "Name"
	fieldSkill  = "Skill"
	fieldPoints = "points"
	fieldOwner  = "owner"
	fieldPrice  = "auction_price"
	fieldTier   = "auction_status"
	fieldUpdate = "updated_at"
)

// playerDoc is the stored player. A null owner means unsold.
type playerDoc struct {
	Name         text      `bson:"Name"`
	FlatNo       text      `bson:"Flat No"`
	Skill        text      `bson:"Skill"`
	Position     text      `bson:"Preferred Playing Position"`
	BattingLevel text      `bson:"Batting Skill Level"`
	BowlingLevel text      `bson:"Bowler Skill Level"`
	BowlingStyle text      `bson:"Bowler Type"`
	Wicketkeeper text      `bson:"Wicket Keeper"`
	Points       int       `bson:"points"`
	Owner        *string   `bson:"owner"`
	Price        int       `bson:"auction_price"`
	Tier         text      `bson:"auction_status"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func toPlayerDoc(p store.Player) playerDoc {
	return playerDoc{
		Name:         text(p.Name),
		FlatNo:       text(p.FlatNo),
		Skill:        text(p.Skill),
		Position:     text(p.Position),
		BattingLevel: text(p.BattingLevel),
		BowlingLevel: text(p.BowlingLevel),
		BowlingStyle: text(p.BowlingStyle),
		Wicketkeeper: text(p.Wicketkeeper),
		Points:       p.Points,
		Owner:        ownerValue(p.AuctionState),
		Price:        priceValue(p.AuctionState),
		Tier:         text(p.Tier),
		UpdatedAt:    p.UpdatedAt,
	}
}

func (d playerDoc) player() store.Player {
	p := store.Player{
		Name:         string(d.Name),
		FlatNo:       string(d.FlatNo),
		Skill:        string(d.Skill),
		Position:     string(d.Position),
		BattingLevel: string(d.BattingLevel),
		BowlingLevel: string(d.BowlingLevel),
		BowlingStyle: string(d.BowlingStyle),
		Wicketkeeper: string(d.Wicketkeeper),
		Points:       d.Points,
		Tier:         store.Tier(d.Tier),
		AuctionState: store.Unsold(),
		UpdatedAt:    d.UpdatedAt,
	}
	if !p.Tier.Valid() {
		p.Tier = store.TierRegular
	}
	if d.Owner != nil {
		p.AuctionState = store.SoldTo(*d.Owner, d.Price)
	}
	return p
}

func ownerValue(s store.AuctionState) *string {
	if s.Status != store.StatusSold {
		return nil
	}
	owner := s.Owner
	return &owner
}

func priceValue(s store.AuctionState) int {
	if s.Status != store.StatusSold {
		return 0
	}
	return s.Price
}

// statusFilter matches documents in status st.
func statusFilter(st store.Status) any {
	if st == store.StatusSold {
		return bson.M{"$ne": nil}
	}
	return nil
}

// PlayerRepo implements store.PlayerRepository over a MongoDB collection.
type PlayerRepo struct {
	coll  *mongo.Collection
	clock clock.Clock
}

// NewPlayerRepo returns a new PlayerRepo.
func NewPlayerRepo(db *mongo.Database, clk clock.Clock) *PlayerRepo {
	return &PlayerRepo{coll: db.Collection(playersCollection), clock: clk}
}

func (r *PlayerRepo) Get(ctx context.Context, name string) (*store.Player, error) {
	var d playerDoc
	if err := r.coll.FindOne(ctx, bson.M{fieldName: name}).Decode(&d); err != nil {
		return nil, wrap(fmt.Sprintf("getting player %q", name), err)
	}
	p := d.player()
	return &p, nil
}

func (r *PlayerRepo) List(ctx context.Context, filter store.PlayerFilter) ([]store.Player, error) {
	q := bson.M{}
	switch {
	case filter.Owner != "" && filter.Status == store.StatusUnsold:
		// An owned player is sold by definition.
		return []store.Player{}, nil
	case filter.Owner != "":
		q[fieldOwner] = filter.Owner
	case filter.Status != "":
		q[fieldOwner] = statusFilter(filter.Status)
	}
	if filter.Skill != "" {
		q[fieldSkill] = scoring.NormalizeSkill(filter.Skill)
	}
	if filter.Tier != "" {
		q[fieldTier] = string(filter.Tier)
	}

	opts := options.Find().SetSort(bson.D{{Key: fieldPoints, Value: -1}, {Key: fieldName, Value: 1}})
	cur, err := r.coll.Find(ctx, q, opts)
	if err != nil {
		return nil, wrap("listing players", err)
	}
	var docs []playerDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, wrap("decoding players", err)
	}

	players := make([]store.Player, 0, len(docs))
	for _, d := range docs {
		players = append(players, d.player())
	}
	return players, nil
}

// Insert writes players with an ordered InsertMany. A duplicate name stops
// the batch at that player.
func (r *PlayerRepo) Insert(ctx context.Context, players ...store.Player) error {
	if len(players) == 0 {
		return nil
	}
	now := r.clock.Now().UTC()
	docs := make([]any, 0, len(players))
	for _, p := range players {
		p.UpdatedAt = now
		docs = append(docs, toPlayerDoc(p))
	}
	if _, err := r.coll.InsertMany(ctx, docs); err != nil {
		return wrap("inserting players", err)
	}
	return nil
}

// WritePlayer folds the status check into the update filter, so the check
// and the write are one server-side operation.
func (r *PlayerRepo) WritePlayer(ctx context.Context, name string, expect store.Status, u store.PlayerUpdate) error {
	filter := bson.M{fieldName: name}
	if expect != "" {
		filter[fieldOwner] = statusFilter(expect)
	}

	set := bson.M{fieldUpdate: r.clock.Now().UTC()}
	if u.State != nil {
		set[fieldOwner] = ownerValue(*u.State)
		set[fieldPrice] = priceValue(*u.State)
	}
	if u.Tier != nil {
		set[fieldTier] = string(*u.Tier)
	}

	res, err := r.coll.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return wrap(fmt.Sprintf("writing player %q", name), err)
	}
	if res.MatchedCount == 1 {
		return nil
	}

	if _, err := r.Get(ctx, name); err != nil {
		return err
	}
	return fmt.Errorf("player %q is not %s: %w", name, expect, store.ErrConflict)
}

func (r *PlayerRepo) Count(ctx context.Context) (int, error) {
	n, err := r.coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, wrap("counting players", err)
	}
	return int(n), nil
}

func (r *PlayerRepo) DeleteAll(ctx context.Context) error {
	if _, err := r.coll.DeleteMany(ctx, bson.D{}); err != nil {
		return wrap("deleting players", err)
	}
	return nil
}
